// Package kdf implements passwand's key-derivation pipeline (spec.md
// §4.4): scrypt with an adjustable work factor, deriving a 32-byte key from
// a password and an 8-byte salt.
package kdf

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// KeySize is the length in bytes of a derived key.
const KeySize = 32

// SaltSize is the required length in bytes of the salt input.
const SaltSize = 8

// DefaultWorkFactor is used when the caller does not specify one.
const DefaultWorkFactor = 14

// MinWorkFactor and MaxWorkFactor bound the valid work-factor range.
const (
	MinWorkFactor = 10
	MaxWorkFactor = 31
)

// ErrWorkFactor is returned when a work factor falls outside
// [MinWorkFactor, MaxWorkFactor] (param/work-factor).
var ErrWorkFactor = errors.New("kdf: work factor out of range")

// scrypt parameters fixed by the format; r and p do not vary with the work
// factor, only N does. N is deliberately N = 2 << workFactor, i.e.
// 2^(workFactor+1): the doubling is a format property, not a tunable, and
// must not change without a new record header.
const (
	scryptR = 8
	scryptP = 1
)

// Derive computes the 32-byte key for password and salt at the given work
// factor. salt must be SaltSize bytes.
func Derive(password, salt []byte, workFactor int) ([]byte, error) {
	if workFactor < MinWorkFactor || workFactor > MaxWorkFactor {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrWorkFactor, workFactor, MinWorkFactor, MaxWorkFactor)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("kdf: salt is %d bytes, want %d", len(salt), SaltSize)
	}
	n := 2 << uint(workFactor)
	key, err := scrypt.Key(password, salt, n, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("kdf: derive: %w", err)
	}
	return key, nil
}
