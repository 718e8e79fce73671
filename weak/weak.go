// Package weak implements passwand's weakness oracle (spec.md §4.10): a
// value is weak if it is short, uses only one character class, is a
// dictionary word, or appears in the bundled offline "have I been pwned"
// dataset. Any single criterion is sufficient.
package weak

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// MinLength is the shortest length, in bytes, that is not automatically
// weak on length alone.
const MinLength = 8

// Is reports whether value is weak under any of spec.md §4.10's criteria.
func Is(value []byte) bool {
	return IsShort(value) || IsSingleClass(value) || IsDictionaryWord(value) || IsPwned(value)
}

// IsShort reports whether value has fewer than MinLength bytes.
func IsShort(value []byte) bool {
	return len(value) < MinLength
}

// charClass identifies one of the four character classes spec.md §4.10b
// recognizes.
type charClass int

const (
	classLower charClass = iota
	classUpper
	classDigit
	classPunct
)

func classify(b byte) (charClass, bool) {
	switch {
	case b >= 'a' && b <= 'z':
		return classLower, true
	case b >= 'A' && b <= 'Z':
		return classUpper, true
	case b >= '0' && b <= '9':
		return classDigit, true
	case b >= 0x21 && b <= 0x7E:
		return classPunct, true // remaining printable ASCII punctuation
	default:
		return 0, false
	}
}

// IsSingleClass reports whether value draws from only one of the four
// character classes (lowercase, uppercase, digit, punctuation). Bytes
// outside all four classes (non-ASCII, control characters) do not count
// toward any class and are ignored for this check.
func IsSingleClass(value []byte) bool {
	seen := map[charClass]bool{}
	for _, b := range value {
		if c, ok := classify(b); ok {
			seen[c] = true
		}
	}
	return len(seen) <= 1
}

// IsDictionaryWord reports whether value matches a built-in dictionary
// entry, case-insensitively.
func IsDictionaryWord(value []byte) bool {
	return dictionary[strings.ToLower(string(value))]
}

// IsPwned reports whether value's SHA-1 digest appears in the bundled
// offline pwned-password dataset.
func IsPwned(value []byte) bool {
	sum := sha1.Sum(value)
	return pwnedSet[strings.ToUpper(hex.EncodeToString(sum[:]))]
}
