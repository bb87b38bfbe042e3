// Package repository provides the file-backed persistence layer of the vault:
// the account directory and the per-account encrypted secret stores.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bitkey/bitkey/internal/models"
)

// AccountDirectory is the durable mapping of account identifier to credential
// hash, backed by a single JSON file rewritten in full on every registration.
// Identifiers are case-sensitive and used verbatim as map keys. Not safe for
// concurrent external writers of the backing file.
type AccountDirectory struct {
	path string

	mu    sync.Mutex
	users map[string]string
}

// OpenAccountDirectory loads the directory file at path. A missing file is an
// empty directory; a file that exists but cannot be parsed surfaces
// models.ErrCorrupt rather than being silently reset.
func OpenAccountDirectory(path string) (*AccountDirectory, error) {
	d := &AccountDirectory{
		path:  path,
		users: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("open account directory: %w", err)
	}

	if err := json.Unmarshal(raw, &d.users); err != nil {
		return nil, fmt.Errorf("%w: account directory: %s", models.ErrCorrupt, err)
	}
	return d, nil
}

// Register creates a new account. It returns models.ErrAccountExists if the
// identifier is already present, and persists the full directory before
// returning on success.
func (d *AccountDirectory) Register(identifier, credential string) error {
	if identifier == "" || credential == "" {
		return errors.New("identifier and credential must not be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[identifier]; ok {
		return models.ErrAccountExists
	}

	phc, err := hashCredential(credential)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}

	d.users[identifier] = phc
	if err := d.save(); err != nil {
		delete(d.users, identifier)
		return fmt.Errorf("persist account directory: %w", err)
	}
	return nil
}

// Authenticate verifies a credential against the stored hash. It returns
// models.ErrInvalidCredentials if the identifier is absent or the credential
// does not match. It performs no writes.
func (d *AccountDirectory) Authenticate(identifier, credential string) error {
	d.mu.Lock()
	phc, ok := d.users[identifier]
	d.mu.Unlock()

	if !ok {
		return models.ErrInvalidCredentials
	}
	if err := verifyCredential(credential, phc); err != nil {
		return models.ErrInvalidCredentials
	}
	return nil
}

// Account returns the stored record for identifier, if present.
func (d *AccountDirectory) Account(identifier string) (models.Account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	phc, ok := d.users[identifier]
	if !ok {
		return models.Account{}, false
	}
	return models.Account{Identifier: identifier, CredentialHash: phc}, true
}

func (d *AccountDirectory) save() error {
	raw, err := json.MarshalIndent(d.users, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(d.path, raw, 0600)
}
