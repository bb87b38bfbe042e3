// Package generator produces random secret strings to a length and
// character-class specification.
package generator

import (
	"errors"

	"github.com/bitkey/bitkey/internal/random"
)

const (
	digits  = "0123456789"
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// Generator draws secret characters from an injected randomness source.
type Generator struct {
	src random.Source
}

// New constructs a Generator. src must be a cryptographically secure source;
// pass random.CryptoSource{} outside of tests.
func New(src random.Source) *Generator {
	return &Generator{src: src}
}

// Generate returns a secret of exactly length characters. Digits are always
// part of the character universe; with includeLettersAndSymbols the universe
// also covers ASCII letters and punctuation. Each character is drawn
// independently and uniformly.
func (g *Generator) Generate(length int, includeLettersAndSymbols bool) (string, error) {
	if length < 1 {
		return "", errors.New("generator: length must be >= 1")
	}

	universe := digits
	if includeLettersAndSymbols {
		universe += letters + symbols
	}

	out := make([]byte, length)
	for i := range out {
		n, err := g.src.Intn(len(universe))
		if err != nil {
			return "", err
		}
		out[i] = universe[n]
	}
	return string(out), nil
}
