package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitkey/bitkey/internal/models"
)

// fakeDirectory implements AccountDirectory for testing.
type fakeDirectory struct {
	registerErr error
	authErr     error
	registered  []string
}

func (f *fakeDirectory) Register(identifier, credential string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, identifier)
	return nil
}

func (f *fakeDirectory) Authenticate(identifier, credential string) error {
	return f.authErr
}

// fakeStore implements SecretAccess in memory.
type fakeStore struct {
	entries   []models.SecretEntry
	appendErr error
	saved     bool
	closed    bool
}

func (f *fakeStore) List() []models.SecretEntry {
	out := make([]models.SecretEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeStore) Len() int { return len(f.entries) }

func (f *fakeStore) Append(e models.SecretEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) DeleteAt(i int) error {
	if i < 0 || i >= len(f.entries) {
		return models.ErrIndexOutOfRange
	}
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	return nil
}

func (f *fakeStore) Save() error { f.saved = true; return nil }
func (f *fakeStore) Close()      { f.closed = true }

type fakeGen struct {
	value string
	err   error
}

func (f *fakeGen) Generate(length int, includeLettersAndSymbols bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

type fakeChecker struct {
	exposed bool
	called  bool
}

func (f *fakeChecker) Check(ctx context.Context, secret string) bool {
	f.called = true
	return f.exposed
}

func newTestEngine(dir *fakeDirectory, store *fakeStore, gen *fakeGen, checker *fakeChecker) (*Engine, *fakeStore) {
	if store == nil {
		store = &fakeStore{}
	}
	open := StoreOpener(func(identifier, credential string) (SecretAccess, error) {
		return store, nil
	})
	return NewEngine(NewAuthService(dir), open, gen, checker, nil), store
}

func TestEngine_RegisterEntersSession(t *testing.T) {
	e, store := newTestEngine(&fakeDirectory{}, nil, &fakeGen{}, &fakeChecker{})

	if err := e.Register("a@x.com", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	id, ok := e.CurrentAccount()
	if !ok || id != "a@x.com" {
		t.Errorf("CurrentAccount = (%q, %v); want (a@x.com, true)", id, ok)
	}
	if !store.saved {
		t.Error("expected the empty store to be persisted at registration")
	}
}

func TestEngine_RegisterConflictStaysLoggedOut(t *testing.T) {
	e, _ := newTestEngine(&fakeDirectory{registerErr: models.ErrAccountExists}, nil, &fakeGen{}, &fakeChecker{})

	err := e.Register("a@x.com", "pw1")
	if !errors.Is(err, models.ErrAccountExists) {
		t.Fatalf("Register error = %v; want ErrAccountExists", err)
	}
	if _, ok := e.CurrentAccount(); ok {
		t.Error("engine entered a session after a failed registration")
	}
}

func TestEngine_LoginFailureStaysLoggedOut(t *testing.T) {
	e, _ := newTestEngine(&fakeDirectory{authErr: models.ErrInvalidCredentials}, nil, &fakeGen{}, &fakeChecker{})

	err := e.Login("a@x.com", "wrong")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("Login error = %v; want ErrInvalidCredentials", err)
	}
	if _, ok := e.CurrentAccount(); ok {
		t.Error("engine entered a session after a failed login")
	}
}

func TestEngine_CorruptStoreBlocksLogin(t *testing.T) {
	open := StoreOpener(func(identifier, credential string) (SecretAccess, error) {
		return nil, models.ErrCorrupt
	})
	e := NewEngine(NewAuthService(&fakeDirectory{}), open, &fakeGen{}, &fakeChecker{}, nil)

	err := e.Login("a@x.com", "pw1")
	if !errors.Is(err, models.ErrCorrupt) {
		t.Fatalf("Login error = %v; want ErrCorrupt", err)
	}
	if _, ok := e.CurrentAccount(); ok {
		t.Error("engine entered a session with a corrupt store")
	}
}

func TestEngine_SecretOpsRequireSession(t *testing.T) {
	e, _ := newTestEngine(&fakeDirectory{}, nil, &fakeGen{value: "123456"}, &fakeChecker{})

	if _, err := e.GenerateAndStore(context.Background(), 6, false); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("GenerateAndStore error = %v; want ErrNotAuthenticated", err)
	}
	if _, err := e.List(); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("List error = %v; want ErrNotAuthenticated", err)
	}
	if err := e.DeleteAt(0); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("DeleteAt error = %v; want ErrNotAuthenticated", err)
	}
	if _, err := e.Count(); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("Count error = %v; want ErrNotAuthenticated", err)
	}
}

func TestEngine_GenerateAndStore(t *testing.T) {
	checker := &fakeChecker{exposed: true}
	e, store := newTestEngine(&fakeDirectory{}, nil, &fakeGen{value: "s3cr3t!"}, checker)

	if err := e.Register("a@x.com", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	entry, err := e.GenerateAndStore(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("GenerateAndStore returned error: %v", err)
	}
	if entry.Value != "s3cr3t!" {
		t.Errorf("entry value = %q; want the generated secret", entry.Value)
	}
	if !entry.Exposed {
		t.Error("entry should carry the checker's exposed outcome")
	}
	if entry.ID == "" {
		t.Error("entry should be assigned an ID")
	}
	if !checker.called {
		t.Error("exposure checker was not invoked")
	}
	if len(store.entries) != 1 {
		t.Fatalf("store holds %d entries; want 1", len(store.entries))
	}
}

func TestEngine_GenerateErrorDoesNotStore(t *testing.T) {
	e, store := newTestEngine(&fakeDirectory{}, nil, &fakeGen{err: errors.New("bad length")}, &fakeChecker{})

	if err := e.Register("a@x.com", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := e.GenerateAndStore(context.Background(), 0, false); err == nil {
		t.Fatal("GenerateAndStore expected error, got nil")
	}
	if len(store.entries) != 0 {
		t.Errorf("store holds %d entries after a failed generation; want 0", len(store.entries))
	}
}

func TestEngine_LogoutClearsSession(t *testing.T) {
	e, store := newTestEngine(&fakeDirectory{}, nil, &fakeGen{value: "123456"}, &fakeChecker{})

	if err := e.Register("a@x.com", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	e.Logout()

	if _, ok := e.CurrentAccount(); ok {
		t.Error("CurrentAccount reports a session after logout")
	}
	if !store.closed {
		t.Error("secret store was not closed on logout")
	}
	if _, err := e.List(); !errors.Is(err, models.ErrNotAuthenticated) {
		t.Errorf("List after logout error = %v; want ErrNotAuthenticated", err)
	}

	// Logout while logged out is a no-op.
	e.Logout()
}

func TestEngine_DeleteAt(t *testing.T) {
	e, store := newTestEngine(&fakeDirectory{}, nil, &fakeGen{value: "123456"}, &fakeChecker{})

	if err := e.Register("a@x.com", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := e.GenerateAndStore(context.Background(), 6, false); err != nil {
			t.Fatalf("GenerateAndStore returned error: %v", err)
		}
	}

	if err := e.DeleteAt(1); err != nil {
		t.Fatalf("DeleteAt returned error: %v", err)
	}
	if len(store.entries) != 2 {
		t.Errorf("store holds %d entries; want 2", len(store.entries))
	}
	if err := e.DeleteAt(5); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Errorf("DeleteAt(5) error = %v; want ErrIndexOutOfRange", err)
	}
}
