package repository

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bitkey/bitkey/internal/random"
)

const (
	saltLength   = 16
	keyLength    = 32
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 2
)

// fileKeyInfo binds derived file keys to this format version.
var fileKeyInfo = []byte("bitkey file key v1")

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// hashCredential generates a PHC-format argon2id hash string with a fresh
// random salt and the parameters embedded.
func hashCredential(credential string) (string, error) {
	salt, err := random.Bytes(saltLength)
	if err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(credential), salt, argonTime, argonMemory, argonThreads, keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonTime,
		argonThreads,
		b64Salt,
		b64Hash,
	), nil
}

// verifyCredential compares a plaintext credential against a PHC-style
// argon2id hash in constant time.
func verifyCredential(credential, encodedHash string) error {
	// Expected structure: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	parts := make([]string, 0, 6)
	start := 0
	for i := 0; i < len(encodedHash); i++ {
		if encodedHash[i] == '$' {
			parts = append(parts, encodedHash[start:i])
			start = i + 1
		}
	}
	parts = append(parts, encodedHash[start:])

	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(credential), salt, iters, mem, par, uint32(len(expected)))

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return errors.New("credential does not match")
}

// deriveFileKey stretches the account credential into a file encryption key:
// argon2id over the per-file salt, then HKDF-SHA256 with a fixed info string.
func deriveFileKey(credential string, salt []byte, time, memory uint32, threads uint8) ([]byte, error) {
	master := argon2.IDKey([]byte(credential), salt, time, memory, threads, keyLength)
	h := hkdf.New(sha256.New, master, nil, fileKeyInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		zero(master)
		return nil, err
	}
	zero(master)
	return key, nil
}

func aeadSeal(key, plaintext, aad []byte) (nonce, ct []byte, err error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = random.Bytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, nil, err
	}
	return nonce, aead.Seal(nil, nonce, plaintext, aad), nil
}

func aeadOpen(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

// atomicWriteFile writes data to a temp file in the target directory, syncs
// it, and renames it over path. A crashed write never leaves a partial file
// observable to a subsequent load.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "bitkey-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	_ = os.Chmod(path, perm)
	return nil
}
