// Package entry implements passwand's entry model (spec.md §3.1-3.2):
// the seven-field sealed record and its open (decrypted) counterpart, and
// the Seal/Open/Rewrap operations that move between them.
//
// A Sealed entry is the only form ever written to disk. An Open entry
// exists solely in process memory, holds its plaintext fields in secbuf
// Buffers, and must be released (wiped) by the caller when it is no longer
// needed; nothing in this package stores an Open entry's plaintext outside
// those buffers.
package entry

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smattr/passwand/codec"
	"github.com/smattr/passwand/kdf"
	"github.com/smattr/passwand/pwcipher"
	"github.com/smattr/passwand/pwmac"
	"github.com/smattr/passwand/random"
	"github.com/smattr/passwand/secbuf"
)

// ErrHMAC is returned when an entry's authentication tag does not verify
// under the supplied main password and work factor (auth/hmac).
var ErrHMAC = errors.New("entry: hmac verification failed")

// ErrFields is returned when a wire-format entry is missing a required
// field, or carries a field this package does not recognize (io/corrupt).
var ErrFields = errors.New("entry: malformed field set")

// wireFields lists exactly the field names a sealed entry's JSON object
// must carry, no more and no fewer.
var wireFields = []string{"space", "key", "value", "salt", "iv", "hmac", "hmac_salt"}

// Sealed is the on-disk representation of one entry: three ciphertext
// fields plus the crypto parameters needed to open them.
type Sealed struct {
	Space, Key, Value []byte // ciphertext
	Salt              []byte // 8 bytes
	IV                []byte // 8 bytes
	HMAC              []byte // 64 bytes
	HMACSalt          []byte // 8 bytes
}

// Open is the in-memory plaintext form of an entry. Space, Key, and Value
// hold the plaintext fields; Salt, IV, and HMACSalt are carried forward
// from the Sealed entry it came from (or freshly generated for a new
// entry) so that re-sealing unchanged plaintext reproduces byte-identical
// ciphertext.
type Open struct {
	Space, Key, Value *secbuf.Buffer
	Salt              []byte
	IV                []byte
	HMACSalt          []byte
}

// NewOpen builds an Open entry from plaintext fields, generating a fresh
// salt, iv, and hmac salt as Seal will need them. Use this for a brand new
// entry; use the result of a prior Sealed.Open call to preserve ciphertext
// identity across an unrelated rewrite.
func NewOpen(space, key, value []byte) (*Open, error) {
	salt, err := random.Bytes(kdf.SaltSize)
	if err != nil {
		return nil, err
	}
	iv, err := random.Bytes(pwcipher.IVSize)
	if err != nil {
		return nil, err
	}
	hmacSalt, err := random.Bytes(kdf.SaltSize)
	if err != nil {
		return nil, err
	}
	return &Open{
		Space:    secbuf.NewFromBytes(append([]byte(nil), space...)),
		Key:      secbuf.NewFromBytes(append([]byte(nil), key...)),
		Value:    secbuf.NewFromBytes(append([]byte(nil), value...)),
		Salt:     salt,
		IV:       iv,
		HMACSalt: hmacSalt,
	}, nil
}

// Release wipes the plaintext buffers of o. Safe to call on nil and safe
// to call more than once.
func (o *Open) Release() {
	if o == nil {
		return
	}
	o.Space.Release()
	o.Key.Release()
	o.Value.Release()
}

// canonicalData builds the C = space‖key‖value‖salt‖iv concatenation that
// pwmac.Compute authenticates (spec.md §4.5). For a Sealed entry, the
// ciphertext bytes of space/key/value are used (spec.md §4.7); Seal calls
// this after encryption, over the ciphertext it just produced.
func canonicalData(space, key, value, salt, iv []byte) []byte {
	buf := make([]byte, 0, len(space)+len(key)+len(value)+len(salt)+len(iv))
	buf = append(buf, space...)
	buf = append(buf, key...)
	buf = append(buf, value...)
	buf = append(buf, salt...)
	buf = append(buf, iv...)
	return buf
}

// Seal encrypts o under (mainPassword, workFactor) and computes a fresh
// HMAC, producing a Sealed entry ready to write to disk. Per spec.md
// §4.7, all three fields are encrypted independently, each starting its
// AES-CTR keystream at the same counter (o.Salt, o.IV derive the same
// key and initial counter for every field): this reproduces the original
// passwand format's keystream-reuse quirk and must not be "fixed".
func Seal(o *Open, mainPassword []byte, workFactor int) (*Sealed, error) {
	ctSpace, err := pwcipher.EncryptWith(mainPassword, o.Space.Bytes(), o.Salt, o.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: seal space: %w", err)
	}
	ctKey, err := pwcipher.EncryptWith(mainPassword, o.Key.Bytes(), o.Salt, o.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: seal key: %w", err)
	}
	ctValue, err := pwcipher.EncryptWith(mainPassword, o.Value.Bytes(), o.Salt, o.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: seal value: %w", err)
	}

	data := canonicalData(ctSpace, ctKey, ctValue, o.Salt, o.IV)
	hmacSalt, tag, err := pwmac.Compute(mainPassword, data, o.HMACSalt, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: seal hmac: %w", err)
	}

	return &Sealed{
		Space:    ctSpace,
		Key:      ctKey,
		Value:    ctValue,
		Salt:     append([]byte(nil), o.Salt...),
		IV:       append([]byte(nil), o.IV...),
		HMAC:     tag,
		HMACSalt: hmacSalt,
	}, nil
}

// Open decrypts s under (mainPassword, workFactor). The HMAC is verified
// before any decryption is attempted, so a tampered or wrong-password
// entry never reaches the cipher (spec.md §4.7). The returned Open entry
// carries forward s's Salt, IV, and HMACSalt, so a later Seal with
// unchanged plaintext reproduces s byte-for-byte.
func (s *Sealed) Open(mainPassword []byte, workFactor int) (*Open, error) {
	data := canonicalData(s.Space, s.Key, s.Value, s.Salt, s.IV)
	ok, err := pwmac.Verify(mainPassword, data, s.HMACSalt, workFactor, s.HMAC)
	if err != nil {
		return nil, fmt.Errorf("entry: open: %w", err)
	}
	if !ok {
		return nil, ErrHMAC
	}

	space, err := pwcipher.Decrypt(mainPassword, s.Space, s.Salt, s.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: decrypt space: %w", err)
	}
	key, err := pwcipher.Decrypt(mainPassword, s.Key, s.Salt, s.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: decrypt key: %w", err)
	}
	value, err := pwcipher.Decrypt(mainPassword, s.Value, s.Salt, s.IV, workFactor)
	if err != nil {
		return nil, fmt.Errorf("entry: decrypt value: %w", err)
	}

	return &Open{
		Space:    secbuf.NewFromBytes(space),
		Key:      secbuf.NewFromBytes(key),
		Value:    secbuf.NewFromBytes(value),
		Salt:     append([]byte(nil), s.Salt...),
		IV:       append([]byte(nil), s.IV...),
		HMACSalt: append([]byte(nil), s.HMACSalt...),
	}, nil
}

// Rewrap opens s under (oldMain, oldWorkFactor) and immediately reseals it
// under (newMain, newWorkFactor) with freshly generated salt, iv, and hmac
// salt (spec.md §4.7). The intermediate plaintext is wiped before
// Rewrap returns.
func Rewrap(s *Sealed, oldMain []byte, oldWorkFactor int, newMain []byte, newWorkFactor int) (*Sealed, error) {
	o, err := s.Open(oldMain, oldWorkFactor)
	if err != nil {
		return nil, err
	}
	defer o.Release()

	fresh, err := NewOpen(o.Space.Bytes(), o.Key.Bytes(), o.Value.Bytes())
	if err != nil {
		return nil, err
	}
	defer fresh.Release()

	return Seal(fresh, newMain, newWorkFactor)
}

// wireEntry is the JSON shape of a Sealed entry: every field base64-coded.
type wireEntry struct {
	Space    string `json:"space"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Salt     string `json:"salt"`
	IV       string `json:"iv"`
	HMAC     string `json:"hmac"`
	HMACSalt string `json:"hmac_salt"`
}

// MarshalJSON encodes s as the seven-field base64 object spec.md §3.1
// requires.
func (s *Sealed) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Space:    codec.Encode(s.Space),
		Key:      codec.Encode(s.Key),
		Value:    codec.Encode(s.Value),
		Salt:     codec.Encode(s.Salt),
		IV:       codec.Encode(s.IV),
		HMAC:     codec.Encode(s.HMAC),
		HMACSalt: codec.Encode(s.HMACSalt),
	})
}

// UnmarshalJSON decodes s from the seven-field base64 object, rejecting
// unknown fields and requiring all seven to be present (spec.md §3.1).
func (s *Sealed) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrFields, err)
	}
	if len(raw) != len(wireFields) {
		return fmt.Errorf("%w: expected %d fields, got %d", ErrFields, len(wireFields), len(raw))
	}
	for _, f := range wireFields {
		if _, ok := raw[f]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrFields, f)
		}
	}

	decode := func(f string) ([]byte, error) {
		b, err := codec.Decode(raw[f])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrFields, f, err)
		}
		return b, nil
	}

	var err error
	if s.Space, err = decode("space"); err != nil {
		return err
	}
	if s.Key, err = decode("key"); err != nil {
		return err
	}
	if s.Value, err = decode("value"); err != nil {
		return err
	}
	if s.Salt, err = decode("salt"); err != nil {
		return err
	}
	if len(s.Salt) != kdf.SaltSize {
		return fmt.Errorf("%w: salt is %d bytes, want %d", ErrFields, len(s.Salt), kdf.SaltSize)
	}
	if s.IV, err = decode("iv"); err != nil {
		return err
	}
	if len(s.IV) != pwcipher.IVSize {
		return fmt.Errorf("%w: iv is %d bytes, want %d", ErrFields, len(s.IV), pwcipher.IVSize)
	}
	if s.HMAC, err = decode("hmac"); err != nil {
		return err
	}
	if len(s.HMAC) != pwmac.Size {
		return fmt.Errorf("%w: hmac is %d bytes, want %d", ErrFields, len(s.HMAC), pwmac.Size)
	}
	if s.HMACSalt, err = decode("hmac_salt"); err != nil {
		return err
	}
	if len(s.HMACSalt) != kdf.SaltSize {
		return fmt.Errorf("%w: hmac_salt is %d bytes, want %d", ErrFields, len(s.HMACSalt), kdf.SaltSize)
	}
	return nil
}

// Equal reports whether s and other carry byte-identical fields. This is
// used by tests asserting that an unmodified database round-trips without
// change (spec.md §8 property 5).
func (s *Sealed) Equal(other *Sealed) bool {
	if s == nil || other == nil {
		return s == other
	}
	return bytes.Equal(s.Space, other.Space) &&
		bytes.Equal(s.Key, other.Key) &&
		bytes.Equal(s.Value, other.Value) &&
		bytes.Equal(s.Salt, other.Salt) &&
		bytes.Equal(s.IV, other.IV) &&
		hmac.Equal(s.HMAC, other.HMAC) &&
		bytes.Equal(s.HMACSalt, other.HMACSalt)
}
