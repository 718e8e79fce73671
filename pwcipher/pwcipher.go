// Package pwcipher implements passwand's authenticated-framed record cipher
// (spec.md §4.6): AES-256-CTR over a frame carrying the oprime01 header,
// the plaintext length, a copy of the IV, and cosmetic padding.
//
// The frame counter is the low 64 bits of a 128-bit AES-CTR counter, built
// from an 8-byte IV with wraparound permitted; this matches the original
// passwand format exactly and must not change without a new header token.
package pwcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/smattr/passwand/kdf"
	"github.com/smattr/passwand/random"
)

// Header is the format token that begins every decrypted frame.
var Header = []byte("oprime01")

// IVSize is the length in bytes of the initial counter value.
const IVSize = 8

// blockSize is the AES block size frames are padded to.
const blockSize = aes.BlockSize

// ErrFormat is returned when a decrypted frame does not carry the expected
// header or is not block-aligned (crypto/format).
var ErrFormat = errors.New("pwcipher: invalid frame format")

// ErrIVMismatch is returned when the IV embedded in the frame does not
// match the IV supplied to Decrypt, which usually indicates a wrong
// password rather than a corrupted file (crypto/iv-mismatch).
var ErrIVMismatch = errors.New("pwcipher: iv mismatch")

// ErrLength is returned when the declared plaintext length is inconsistent
// with the frame's tail (crypto/length).
var ErrLength = errors.New("pwcipher: invalid length")

// newCTR builds the AES-256-CTR stream cipher for key and iv. The counter's
// low 64 bits are the little-endian value of iv; the high 64 bits are zero,
// and wraparound of the low half is permitted (the stdlib CTR stream
// handles this transparently since it just increments the full 128-bit
// counter byte array, read as a big-endian number).
func newCTR(key, iv []byte) (cipher.Stream, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("pwcipher: iv is %d bytes, want %d", len(iv), IVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("pwcipher: new cipher: %w", err)
	}
	// The stdlib counter block is big-endian, so its low 64 bits are the
	// last 8 bytes; the first 8 (high 64 bits) stay zero.
	var counter [blockSize]byte
	binary.BigEndian.PutUint64(counter[blockSize-IVSize:], binary.LittleEndian.Uint64(iv))
	return cipher.NewCTR(block, counter[:]), nil
}

// Encrypt seals plaintext under a key derived from (main, salt, workFactor)
// at a freshly generated salt and iv, and returns the raw ciphertext along
// with the salt and iv used. Call this once per field to reproduce
// passwand's field layout; see the entry package for how salt/iv are
// shared across an entry's three fields.
func Encrypt(main []byte, plaintext []byte, workFactor int) (ciphertext, salt, iv []byte, err error) {
	salt, err = random.Bytes(kdf.SaltSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pwcipher: salt: %w", err)
	}
	iv, err = random.Bytes(IVSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pwcipher: iv: %w", err)
	}
	ct, err := EncryptWith(main, plaintext, salt, iv, workFactor)
	if err != nil {
		return nil, nil, nil, err
	}
	return ct, salt, iv, nil
}

// EncryptWith seals plaintext using the given salt and iv (both already
// generated), re-deriving the key from (main, salt, workFactor). This is
// what the entry package uses to encrypt a field with a salt/iv shared
// across the entry's fields.
func EncryptWith(main, plaintext, salt, iv []byte, workFactor int) ([]byte, error) {
	key, err := kdf.Derive(main, salt, workFactor)
	if err != nil {
		return nil, err
	}
	frame := buildFrame(plaintext, iv)
	stream, err := newCTR(key, iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(frame))
	stream.XORKeyStream(out, frame)
	return out, nil
}

// buildFrame assembles HEADER || u64le(len(plaintext)) || iv || padding ||
// plaintext, where padding brings the total length to a multiple of 16
// bytes. HEADER plus the length field are already 16 bytes (block
// aligned), so the padding size only needs to compensate for the iv and
// the plaintext: padLen = 16 - ((len(iv) + len(plaintext)) mod 16), which
// is always in [1,16] and never folds down to zero. Padding bytes are
// random; they carry no information and are discarded by Decrypt based on
// the declared length.
func buildFrame(plaintext, iv []byte) []byte {
	head := len(Header) + 8 + len(iv)
	padLen := blockSize - (len(iv)+len(plaintext))%blockSize
	pad, err := random.Bytes(padLen)
	if err != nil {
		// random only fails if the OS CSPRNG is broken; there is no
		// sensible fallback, so produce zero padding rather than panic.
		pad = make([]byte, padLen)
	}

	frame := make([]byte, 0, head+padLen+len(plaintext))
	frame = append(frame, Header...)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(plaintext)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, iv...)
	frame = append(frame, pad...)
	frame = append(frame, plaintext...)
	return frame
}

// Decrypt recovers the plaintext sealed by Encrypt/EncryptWith under
// (main, salt, workFactor), verifying the frame's header and embedded iv
// against the iv supplied by the caller (the entry's stored iv field).
func Decrypt(main, ciphertext, salt, iv []byte, workFactor int) ([]byte, error) {
	key, err := kdf.Derive(main, salt, workFactor)
	if err != nil {
		return nil, err
	}
	stream, err := newCTR(key, iv)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, len(ciphertext))
	stream.XORKeyStream(frame, ciphertext)

	if len(frame)%blockSize != 0 {
		return nil, fmt.Errorf("%w: unaligned frame (%d bytes)", ErrFormat, len(frame))
	}
	if len(frame) < len(Header)+8+IVSize {
		return nil, fmt.Errorf("%w: truncated frame", ErrFormat)
	}
	if !bytes.Equal(frame[:len(Header)], Header) {
		return nil, fmt.Errorf("%w: missing header", ErrFormat)
	}
	rest := frame[len(Header):]

	declLen := binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]

	if !bytes.Equal(rest[:IVSize], iv) {
		return nil, ErrIVMismatch
	}
	tail := rest[IVSize:]

	if declLen > uint64(len(tail)) {
		return nil, fmt.Errorf("%w: declared length exceeds frame", ErrLength)
	}
	if uint64(len(tail))-declLen > blockSize {
		return nil, fmt.Errorf("%w: implausible padding", ErrLength)
	}
	return tail[uint64(len(tail))-declLen:], nil
}
