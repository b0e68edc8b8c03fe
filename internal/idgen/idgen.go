// Package idgen generates registration identities and process origin IDs
// using nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the two kinds of generated identity.
const (
	RegistrationPrefix = "cv-"
	OriginPrefix       = "node-"
)

// Alphabet is the character set for the random portion. It avoids the
// characters that carry meaning in registry filters.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters (excluding the prefix).
const Length = 10

// Registration returns a fresh identity for a registration announced
// without one.
func Registration() (string, error) {
	return WithPrefix(RegistrationPrefix)
}

// Origin returns an identity for this process, used to tag the lifecycle
// events it publishes.
func Origin() (string, error) {
	return WithPrefix(OriginPrefix)
}

// WithPrefix returns a random identity with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
