package repository

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitkey/bitkey/internal/models"
	"github.com/bitkey/bitkey/internal/random"
)

const storeExt = ".vault"

// envelopeAAD authenticates the envelope format version alongside the data.
var envelopeAAD = []byte("BKV1")

// envelope is the on-disk form of a per-account secret file: KDF parameters
// and salt in the clear, entries as an AEAD-sealed JSON payload.
type envelope struct {
	Version      int    `json:"version"`
	ArgonTime    uint32 `json:"argon_time"`
	ArgonMemory  uint32 `json:"argon_memory"`
	ArgonThreads uint8  `json:"argon_threads"`
	Salt         string `json:"salt"`
	Nonce        string `json:"nonce"`
	Data         string `json:"data"`
}

// SecretStore locates and opens per-account secret files under a data
// directory. File names are the hex SHA-256 of the account identifier, never
// the identifier itself.
type SecretStore struct {
	dir string
}

// NewSecretStore returns a SecretStore rooted at dir. The directory is
// created on first use.
func NewSecretStore(dir string) *SecretStore {
	return &SecretStore{dir: dir}
}

// Path returns the backing file path for the given account identifier.
func (s *SecretStore) Path(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+storeExt)
}

// Open loads and decrypts the secret file for identifier using a key derived
// from credential. A missing file yields an empty store with a fresh salt
// (absence is not an error). An unparseable envelope or a failed decryption
// surfaces models.ErrCorrupt; entering the authenticated state for that
// account must be blocked rather than silently resetting it.
//
// At most one handle per identifier should be open at a time; operations on
// the handle are serialized internally, but nothing coordinates across
// processes.
func (s *SecretStore) Open(identifier, credential string) (*AccountSecrets, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	a := &AccountSecrets{
		path:         s.Path(identifier),
		argonTime:    argonTime,
		argonMemory:  argonMemory,
		argonThreads: argonThreads,
	}

	raw, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			salt, err := random.Bytes(saltLength)
			if err != nil {
				return nil, err
			}
			key, err := deriveFileKey(credential, salt, a.argonTime, a.argonMemory, a.argonThreads)
			if err != nil {
				return nil, err
			}
			a.salt = salt
			a.key = key
			return a, nil
		}
		return nil, fmt.Errorf("open secret store: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: secret store: %s", models.ErrCorrupt, err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: secret store salt", models.ErrCorrupt)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: secret store nonce", models.ErrCorrupt)
	}
	ct, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: secret store payload", models.ErrCorrupt)
	}

	a.argonTime = env.ArgonTime
	a.argonMemory = env.ArgonMemory
	a.argonThreads = env.ArgonThreads
	a.salt = salt

	key, err := deriveFileKey(credential, salt, a.argonTime, a.argonMemory, a.argonThreads)
	if err != nil {
		return nil, err
	}

	pt, err := aeadOpen(key, nonce, envelopeAAD, ct)
	if err != nil {
		zero(key)
		return nil, fmt.Errorf("%w: secret store decryption failed", models.ErrCorrupt)
	}

	var entries []models.SecretEntry
	if err := json.Unmarshal(pt, &entries); err != nil {
		zero(key)
		return nil, fmt.Errorf("%w: secret store entries: %s", models.ErrCorrupt, err)
	}

	a.key = key
	a.entries = entries
	return a, nil
}

// AccountSecrets is a session-scoped handle on one account's ordered secret
// sequence. Every mutation rewrites the whole file atomically before
// returning; no partial state is observable to a subsequent Open.
type AccountSecrets struct {
	path string
	key  []byte
	salt []byte

	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8

	mu      sync.Mutex
	entries []models.SecretEntry
}

// List returns the entries in append order. The returned slice is a copy.
func (a *AccountSecrets) List() []models.SecretEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]models.SecretEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of stored entries.
func (a *AccountSecrets) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Append adds entry at the end of the sequence and persists before returning.
// On a failed write the in-memory sequence is rolled back.
func (a *AccountSecrets) Append(entry models.SecretEntry) error {
	if entry.Value == "" {
		return errors.New("secret entry value must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, entry)
	if err := a.save(); err != nil {
		a.entries = a.entries[:len(a.entries)-1]
		return fmt.Errorf("persist secret store: %w", err)
	}
	return nil
}

// DeleteAt removes the entry at index (0-based, current order) and persists.
// It returns models.ErrIndexOutOfRange and leaves the store unchanged if
// index is not within bounds. Later entries shift down by one.
func (a *AccountSecrets) DeleteAt(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 || index >= len(a.entries) {
		return models.ErrIndexOutOfRange
	}

	removed := a.entries[index]
	a.entries = append(a.entries[:index], a.entries[index+1:]...)
	if err := a.save(); err != nil {
		a.entries = append(a.entries[:index], append([]models.SecretEntry{removed}, a.entries[index:]...)...)
		return fmt.Errorf("persist secret store: %w", err)
	}
	return nil
}

// Save rewrites the backing file from the current in-memory sequence. It is
// used at registration to create the account's store file up front; Append
// and DeleteAt persist on their own.
func (a *AccountSecrets) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save()
}

// Close wipes the file key from memory. The handle must not be used after.
func (a *AccountSecrets) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	zero(a.key)
	a.key = nil
	a.entries = nil
}

func (a *AccountSecrets) save() error {
	if a.key == nil {
		return errors.New("secret store is closed")
	}

	entries := a.entries
	if entries == nil {
		entries = []models.SecretEntry{}
	}
	pt, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	nonce, ct, err := aeadSeal(a.key, pt, envelopeAAD)
	if err != nil {
		return err
	}

	env := envelope{
		Version:      1,
		ArgonTime:    a.argonTime,
		ArgonMemory:  a.argonMemory,
		ArgonThreads: a.argonThreads,
		Salt:         base64.StdEncoding.EncodeToString(a.salt),
		Nonce:        base64.StdEncoding.EncodeToString(nonce),
		Data:         base64.StdEncoding.EncodeToString(ct),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return atomicWriteFile(a.path, raw, 0600)
}
