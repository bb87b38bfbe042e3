package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitkey/bitkey/internal/models"
)

// clipboardClearAfter is how long a copied secret stays on the clipboard.
const clipboardClearAfter = 30 * time.Second

// SecretAccess is a session-scoped handle on one account's ordered secrets.
type SecretAccess interface {
	List() []models.SecretEntry
	Len() int
	Append(entry models.SecretEntry) error
	DeleteAt(index int) error
	Save() error
	Close()
}

// StoreOpener opens (and decrypts) the secret store for an authenticated
// account. Corruption of the backing file surfaces models.ErrCorrupt.
type StoreOpener func(identifier, credential string) (SecretAccess, error)

// Generator produces random secret strings.
type Generator interface {
	Generate(length int, includeLettersAndSymbols bool) (string, error)
}

// ExposureChecker reports whether a secret appears in a breach database.
// Implementations are best-effort and must fail open.
type ExposureChecker interface {
	Check(ctx context.Context, secret string) bool
}

// session is the single in-process authenticated identity. It is never
// persisted and is discarded on logout or process exit.
type session struct {
	identifier string
	store      SecretAccess

	// ctx is cancelled on logout so an in-flight exposure check cannot
	// outlive the session that started it.
	ctx    context.Context
	cancel context.CancelFunc
}

// Engine composes authentication, generation, exposure checking, and storage
// into the operations the presentation layer invokes. It holds at most one
// active session; callers needing responsiveness run its methods off their
// presentation thread.
type Engine struct {
	auth    *AuthService
	open    StoreOpener
	gen     Generator
	checker ExposureChecker
	log     *zap.Logger

	mu      sync.Mutex
	session *session
}

// NewEngine constructs the vault engine facade.
func NewEngine(auth *AuthService, open StoreOpener, gen Generator, checker ExposureChecker, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		auth:    auth,
		open:    open,
		gen:     gen,
		checker: checker,
		log:     log,
	}
}

// Register creates a new account and enters the authenticated state for it,
// creating its (empty) secret store. On models.ErrAccountExists the engine
// stays logged out.
func (e *Engine) Register(identifier, credential string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.auth.Register(identifier, credential); err != nil {
		return err
	}

	store, err := e.open(identifier, credential)
	if err != nil {
		return err
	}
	// Persist the empty sequence so the account's store file exists from
	// the moment the account does.
	if err := store.Save(); err != nil {
		store.Close()
		return err
	}

	e.startSession(identifier, store)
	e.log.Info("account registered", zap.String("account", identifier))
	return nil
}

// Login authenticates an existing account and loads its secret store. On
// models.ErrInvalidCredentials or models.ErrCorrupt the engine stays logged
// out; a corrupt store blocks the authenticated state rather than silently
// resetting it.
func (e *Engine) Login(identifier, credential string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.auth.Authenticate(identifier, credential); err != nil {
		return err
	}

	store, err := e.open(identifier, credential)
	if err != nil {
		return err
	}

	e.startSession(identifier, store)
	e.log.Info("login", zap.String("account", identifier))
	return nil
}

// Logout discards the session and its in-memory secret list. The store must
// be reloaded from disk on the next login. Safe to call while logged out.
func (e *Engine) Logout() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return
	}
	e.session.cancel()
	e.session.store.Close()
	e.log.Info("logout", zap.String("account", e.session.identifier))
	e.session = nil
}

// CurrentAccount returns the identifier of the active session, if any.
func (e *Engine) CurrentAccount() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return "", false
	}
	return e.session.identifier, true
}

// GenerateAndStore generates a secret, checks its exposure (fail-open),
// appends the resulting entry to the account's store, and returns the entry
// for display. ctx bounds the exposure check together with the session
// lifetime; generation and storage themselves are local and synchronous.
func (e *Engine) GenerateAndStore(ctx context.Context, length int, includeSymbols bool) (models.SecretEntry, error) {
	s, err := e.current()
	if err != nil {
		return models.SecretEntry{}, err
	}

	value, err := e.gen.Generate(length, includeSymbols)
	if err != nil {
		return models.SecretEntry{}, fmt.Errorf("generate secret: %w", err)
	}

	// Tie the network call to both the caller's context and the session,
	// so logout aborts an in-flight check.
	checkCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	exposed := e.checker.Check(checkCtx, value)
	stop()

	entry := models.SecretEntry{
		ID:        uuid.New().String(),
		Value:     value,
		Exposed:   exposed,
		CreatedAt: time.Now(),
	}

	if err := s.store.Append(entry); err != nil {
		return models.SecretEntry{}, err
	}

	e.log.Info("secret generated",
		zap.String("account", s.identifier),
		zap.Int("length", length),
		zap.Bool("exposed", exposed),
	)
	return entry, nil
}

// List returns the active account's secrets in append order.
func (e *Engine) List() ([]models.SecretEntry, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	return s.store.List(), nil
}

// Count returns the number of secrets stored for the active account.
func (e *Engine) Count() (int, error) {
	s, err := e.current()
	if err != nil {
		return 0, err
	}
	return s.store.Len(), nil
}

// DeleteAt removes the entry at index from the active account's store.
func (e *Engine) DeleteAt(index int) error {
	s, err := e.current()
	if err != nil {
		return err
	}
	return s.store.DeleteAt(index)
}

// CopyToClipboard places value on the platform clipboard and schedules a
// clear after clipboardClearAfter. The clipboard is not part of the vault's
// durable state.
func (e *Engine) CopyToClipboard(value string) error {
	if err := clipboard.WriteAll(value); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	time.AfterFunc(clipboardClearAfter, func() {
		_ = clipboard.WriteAll("")
	})
	return nil
}

// startSession replaces the session. Callers hold e.mu.
func (e *Engine) startSession(identifier string, store SecretAccess) {
	if e.session != nil {
		e.session.cancel()
		e.session.store.Close()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.session = &session{
		identifier: identifier,
		store:      store,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// current returns the active session or models.ErrNotAuthenticated. Invoking
// secret-lifecycle operations while logged out is a caller bug; it is
// reported as an error instead of a panic.
func (e *Engine) current() (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, models.ErrNotAuthenticated
	}
	return e.session, nil
}
