// Package service provides the vault's business logic: account
// authentication and the engine facade the presentation layer calls into.
// Persistence is delegated to small repository interfaces.
package service

// AccountDirectory defines the persistence operations required by the
// authentication service.
type AccountDirectory interface {
	// Register creates a new account, returning models.ErrAccountExists if
	// the identifier is taken. The directory is persisted before return.
	Register(identifier, credential string) error
	// Authenticate verifies a credential, returning
	// models.ErrInvalidCredentials on any mismatch or unknown identifier.
	Authenticate(identifier, credential string) error
}

// AuthService implements registration and authentication by delegating to an
// AccountDirectory.
type AuthService struct {
	// dir performs the data-layer operations.
	dir AccountDirectory
}

// NewAuthService constructs a new AuthService using the provided directory.
func NewAuthService(dir AccountDirectory) *AuthService {
	return &AuthService{dir: dir}
}

// Register attempts to register a new account with the given identifier.
func (s *AuthService) Register(identifier, credential string) error {
	return s.dir.Register(identifier, credential)
}

// Authenticate verifies the credential for the given identifier.
func (s *AuthService) Authenticate(identifier, credential string) error {
	return s.dir.Authenticate(identifier, credential)
}
