// Package secret holds sensitive byte material (master secrets, derived keys,
// decrypted payloads) outside the garbage-collected heap.
//
// A Buffer is backed by a memguard LockedBuffer: the pages are mlocked,
// surrounded by guard pages and wiped when the buffer is destroyed. The
// constructor takes the caller's slice and wipes it, so after New returns the
// only copy lives in the Buffer.
package secret

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// Buffer is a fixed-size container for sensitive bytes. It has exactly one
// owner, which must call Destroy when done. Destroy is safe to repeat.
type Buffer struct {
	lb        *memguard.LockedBuffer // nil for zero-length buffers
	destroyed bool
}

// New moves b into protected memory and wipes b.
func New(b []byte) *Buffer {
	if len(b) == 0 {
		return &Buffer{}
	}
	return &Buffer{lb: memguard.NewBufferFromBytes(b)}
}

// FromString copies s into protected memory. The string itself cannot be
// wiped; prefer New where the source is a byte slice.
func FromString(s string) *Buffer {
	return New([]byte(s))
}

// Random returns a buffer of n bytes from the system CSPRNG.
func Random(n int) *Buffer {
	if n <= 0 {
		return &Buffer{}
	}
	return &Buffer{lb: memguard.NewBufferRandom(n)}
}

// Bytes returns the protected bytes. The slice aliases locked memory and is
// only valid until Destroy; it is nil once the buffer is destroyed.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.destroyed || b.lb == nil {
		return nil
	}
	return b.lb.Bytes()
}

// Len returns the size of the buffer, or 0 after Destroy.
func (b *Buffer) Len() int {
	if b == nil || b.destroyed || b.lb == nil {
		return 0
	}
	return b.lb.Size()
}

// Alive reports whether the buffer has not been destroyed.
func (b *Buffer) Alive() bool {
	return b != nil && !b.destroyed
}

// Copy returns an independently owned copy.
func (b *Buffer) Copy() *Buffer {
	if !b.Alive() {
		return &Buffer{destroyed: true}
	}
	src := b.Bytes()
	if len(src) == 0 {
		return &Buffer{}
	}
	dup := make([]byte, len(src))
	copy(dup, src)
	return New(dup)
}

// Equal compares two buffers in constant time.
func (b *Buffer) Equal(other *Buffer) bool {
	if !b.Alive() || !other.Alive() {
		return false
	}
	return subtle.ConstantTimeCompare(b.Bytes(), other.Bytes()) == 1
}

// Destroy wipes and unmaps the buffer.
func (b *Buffer) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	if b.lb != nil {
		b.lb.Destroy()
		b.lb = nil
	}
	b.destroyed = true
}

// Wipe zeroes an ordinary heap slice holding sensitive bytes.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
