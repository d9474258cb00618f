// Package random generates short codes from a cryptographically strong source.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Alphabet is the set of characters a short code is drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// bytes at or above this bound are rejected so every character is equally likely
const rejectBound = 256 - 256%len(Alphabet)

var ErrInvalidLength = errors.New("length must be positive")

// NewRandomString returns a string of the given length drawn uniformly from Alphabet.
func NewRandomString(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectBound {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
