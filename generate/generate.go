// Package generate implements passwand's password generator (spec.md
// §4.11): uniform rejection sampling over a fixed charset, drawing bytes
// from the process CSPRNG.
package generate

import (
	"errors"
	"fmt"

	"github.com/smattr/passwand/random"
)

// DefaultCharset is the charset used when the caller does not specify one:
// upper- and lower-case letters, digits, and underscore.
const DefaultCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

// DefaultLength is used when the caller does not specify a length.
const DefaultLength = 24

// ErrLength is returned for a non-positive requested length
// (param/length).
var ErrLength = errors.New("generate: length must be positive")

// Password returns length bytes drawn uniformly from charset. Rejection
// sampling discards any random byte at or above the largest multiple of
// len(charset) not exceeding 256, so every retained byte maps to a
// charset index with exactly uniform probability; no retained byte is
// biased toward the low end of the charset.
func Password(length int, charset string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: %d", ErrLength, length)
	}
	if charset == "" {
		charset = DefaultCharset
	}
	// limit is the largest multiple of len(charset) not exceeding 256; any
	// byte at or above it is rejected so every accepted byte maps to a
	// charset index with exactly uniform probability.
	limit := (256 / len(charset)) * len(charset)

	out := make([]byte, length)
	for i := 0; i < length; {
		b, err := random.Byte()
		if err != nil {
			return "", err
		}
		if int(b) >= limit {
			continue // reject: would bias toward low indices
		}
		out[i] = charset[int(b)%len(charset)]
		i++
	}
	return string(out), nil
}
