// Package random wraps the operating system's cryptographically secure
// randomness source. Generated values end up as account secrets, so a
// statistical PRNG is not acceptable anywhere in this package.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Source yields uniform random integers. It exists as an interface so tests
// can substitute a deterministic sequence.
type Source interface {
	// Intn returns a uniform random int in [0, n). n must be >= 1.
	Intn(n int) (int, error)
}

// CryptoSource implements Source over crypto/rand.
type CryptoSource struct{}

// Intn returns a uniform random int in [0, n) using crypto/rand.
func (CryptoSource) Intn(n int) (int, error) {
	if n < 1 {
		return 0, errors.New("random: n must be >= 1")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random: %w", err)
	}
	return int(v.Int64()), nil
}

// Bytes returns n cryptographically random bytes.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("random: %w", err)
	}
	return b, nil
}
