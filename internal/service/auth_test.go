package service

import (
	"errors"
	"testing"

	"github.com/bitkey/bitkey/internal/models"
)

type recordingDirectory struct {
	lastIdentifier string
	lastCredential string
	err            error
}

func (r *recordingDirectory) Register(identifier, credential string) error {
	r.lastIdentifier, r.lastCredential = identifier, credential
	return r.err
}

func (r *recordingDirectory) Authenticate(identifier, credential string) error {
	r.lastIdentifier, r.lastCredential = identifier, credential
	return r.err
}

func TestAuthService_Register(t *testing.T) {
	dir := &recordingDirectory{}
	svc := NewAuthService(dir)

	if err := svc.Register("carol", "pw"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if dir.lastIdentifier != "carol" || dir.lastCredential != "pw" {
		t.Errorf("Register passed (%q, %q) to the directory", dir.lastIdentifier, dir.lastCredential)
	}
}

func TestAuthService_RegisterConflict(t *testing.T) {
	svc := NewAuthService(&recordingDirectory{err: models.ErrAccountExists})

	if err := svc.Register("bob", "pw"); !errors.Is(err, models.ErrAccountExists) {
		t.Fatalf("Register error = %v; want ErrAccountExists", err)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	dir := &recordingDirectory{}
	svc := NewAuthService(dir)

	if err := svc.Authenticate("alice", "pw"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	dir.err = models.ErrInvalidCredentials
	if err := svc.Authenticate("alice", "wrong"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("Authenticate error = %v; want ErrInvalidCredentials", err)
	}
}
