// Package pwmac computes the authentication tag attached to each sealed
// entry (spec.md §4.5): HMAC-SHA512 over the canonical concatenation of an
// entry's fields, keyed by an independently-salted scrypt-derived key.
package pwmac

import (
	"crypto/hmac"
	"crypto/sha512"

	"github.com/smattr/passwand/kdf"
	"github.com/smattr/passwand/random"
)

// Size is the length in bytes of a computed tag.
const Size = sha512.Size // 64

// Compute derives an HMAC key from (mainPassword, salt, workFactor) and
// returns the HMAC-SHA512 tag over data. If salt is nil, a fresh random
// salt is generated; the salt used is always returned alongside the tag so
// callers can persist it.
func Compute(mainPassword, data, salt []byte, workFactor int) (usedSalt, tag []byte, err error) {
	if salt == nil {
		salt, err = random.Bytes(kdf.SaltSize)
		if err != nil {
			return nil, nil, err
		}
	}
	key, err := kdf.Derive(mainPassword, salt, workFactor)
	if err != nil {
		return nil, nil, err
	}
	h := hmac.New(sha512.New, key)
	h.Write(data)
	return salt, h.Sum(nil), nil
}

// Verify recomputes the tag over data with the given salt and work factor,
// and reports whether it matches want, using a constant-time comparison.
func Verify(mainPassword, data, salt []byte, workFactor int, want []byte) (bool, error) {
	_, tag, err := Compute(mainPassword, data, salt, workFactor)
	if err != nil {
		return false, err
	}
	return hmac.Equal(tag, want), nil
}
