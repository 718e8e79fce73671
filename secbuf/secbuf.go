// Package secbuf provides heap-allocated scratch buffers for secret
// material: main passwords, derived keys, and plaintext record fields.
//
// A Buffer guarantees its bytes are wiped before the underlying array is
// released, and makes a best-effort attempt to keep the memory from being
// paged to swap while it is live. Buffers are never shared between
// goroutines; ownership moves with the value.
package secbuf

import (
	"crypto/subtle"

	"github.com/creachadair/mds/mbits"
)

// A Buffer is a fixed-purpose scratch allocation for secret bytes.
type Buffer struct {
	data   []byte
	locked bool
}

// New allocates a Buffer of the given size, zero-filled, and attempts to
// lock it into physical memory. Locking failure is not reported; it is a
// best-effort hardening measure, not a correctness requirement.
func New(size int) *Buffer {
	b := &Buffer{data: make([]byte, size)}
	b.locked = mlock(b.data)
	return b
}

// NewFromBytes allocates a Buffer that takes ownership of src. The caller
// must not retain or use src after this call; Buffer may wipe it.
func NewFromBytes(src []byte) *Buffer {
	b := &Buffer{data: src}
	b.locked = mlock(b.data)
	return b
}

// Len reports the current length of the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Bytes returns the live contents of the buffer. The returned slice aliases
// b's storage and must not be retained past b's lifetime.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Equal reports whether b and other hold identical bytes, using a
// constant-time comparison so timing does not leak how many leading bytes
// matched. Safe to call with either argument nil.
func (b *Buffer) Equal(other *Buffer) bool {
	ab, bb := b.Bytes(), other.Bytes()
	if len(ab) != len(bb) {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}

// EqualBytes is like Equal but compares against a plain byte slice, for
// comparing a Buffer's contents against a tag that is not itself secret
// scratch (e.g. a freshly-read on-disk HMAC).
func (b *Buffer) EqualBytes(other []byte) bool {
	ab := b.Bytes()
	if len(ab) != len(other) {
		return false
	}
	return subtle.ConstantTimeCompare(ab, other) == 1
}

// Resize changes the length of the buffer to n, wiping the previous
// contents first. The new contents are zero-filled. If n is larger than the
// buffer's current capacity, a new (locked) allocation replaces the old one
// and the old one is wiped and unlocked.
func (b *Buffer) Resize(n int) {
	b.Wipe()
	if n <= cap(b.data) {
		b.data = b.data[:n]
		for i := range b.data {
			b.data[i] = 0
		}
		return
	}
	if b.locked {
		munlock(b.data)
	}
	b.data = make([]byte, n)
	b.locked = mlock(b.data)
}

// Wipe overwrites the buffer's contents with zeroes. It is safe to call
// more than once, and safe to call on a nil Buffer.
func (b *Buffer) Wipe() {
	if b == nil || len(b.data) == 0 {
		return
	}
	mbits.Zero(b.data)
}

// Release wipes the buffer and releases any memory lock. A released Buffer
// must not be used again.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.Wipe()
	if b.locked {
		munlock(b.data)
		b.locked = false
	}
	b.data = nil
}
