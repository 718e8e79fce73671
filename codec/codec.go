// Package codec provides the base64 wire encoding used for binary entry
// fields in the passwand database file (spec.md §4.3).
package codec

import "encoding/base64"

// enc is standard base64 with padding, alphabet A-Z a-z 0-9 + /.
var enc = base64.StdEncoding

// Encode returns the base64 representation of data.
func Encode(data []byte) string {
	return enc.EncodeToString(data)
}

// Decode parses s as standard padded base64. Malformed input is a hard
// error (io/corrupt in spec.md's error taxonomy).
func Decode(s string) ([]byte, error) {
	return enc.DecodeString(s)
}
