package crypto

import (
	"errors"
	"fmt"

	"github.com/illarion/passvault/internal/secret"
	"golang.org/x/crypto/blake2b"
)

const (
	OuterKeySize   = KeySize
	EntriesKeySize = 64

	// MinSecretLen and MaxSecretLen bound the master secret accepted by
	// DeriveOuterKey and DeriveEntriesKey. BLAKE2b keys are at most 64 bytes.
	MinSecretLen = 8
	MaxSecretLen = blake2b.Size

	LabelOuter   = "passvault.outer"
	LabelEntries = "passvault.entries"
	LabelCheck   = "passvault.entries.check"

	CheckSize = 32
)

var (
	ErrDerivationFailed = errors.New("key derivation failed")
	ErrInvalidKey       = errors.New("invalid key")
)

// OuterKey protects the vault index
type OuterKey struct {
	buf *secret.Buffer
}

// EntriesKey protects entry payloads
type EntriesKey struct {
	buf *secret.Buffer
}

// DeriveOuterKey derives the outer key from a master secret.
// The master secret is neither consumed nor modified.
func DeriveOuterKey(master *secret.Buffer) (*OuterKey, error) {
	buf, err := deriveLabeled(master, LabelOuter, OuterKeySize)
	if err != nil {
		return nil, err
	}
	return &OuterKey{buf: buf}, nil
}

// DeriveEntriesKey derives the entries key from a master secret.
func DeriveEntriesKey(master *secret.Buffer) (*EntriesKey, error) {
	buf, err := deriveLabeled(master, LabelEntries, EntriesKeySize)
	if err != nil {
		return nil, err
	}
	return &EntriesKey{buf: buf}, nil
}

func deriveLabeled(master *secret.Buffer, label string, size int) (*secret.Buffer, error) {
	if !master.Alive() {
		return nil, fmt.Errorf("%w: secret released", ErrDerivationFailed)
	}
	n := master.Len()
	if n < MinSecretLen || n > MaxSecretLen {
		return nil, fmt.Errorf("%w: secret must be %d to %d bytes, got %d",
			ErrDerivationFailed, MinSecretLen, MaxSecretLen, n)
	}

	h, err := blake2b.New(size, master.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	h.Write([]byte(label))
	return secret.New(h.Sum(nil)), nil
}

// NewOuterKey takes ownership of raw key bytes (wiping the slice)
func NewOuterKey(raw []byte) (*OuterKey, error) {
	if len(raw) != OuterKeySize {
		return nil, fmt.Errorf("%w: outer key must be %d bytes", ErrInvalidKey, OuterKeySize)
	}
	return &OuterKey{buf: secret.New(raw)}, nil
}

// NewEntriesKey takes ownership of raw key bytes (wiping the slice)
func NewEntriesKey(raw []byte) (*EntriesKey, error) {
	if len(raw) != EntriesKeySize {
		return nil, fmt.Errorf("%w: entries key must be %d bytes", ErrInvalidKey, EntriesKeySize)
	}
	return &EntriesKey{buf: secret.New(raw)}, nil
}

// Bytes exposes the key; nil after Destroy
func (k *OuterKey) Bytes() []byte { return k.buf.Bytes() }

// Alive reports whether the key has not been destroyed
func (k *OuterKey) Alive() bool { return k != nil && k.buf.Alive() }

// Destroy wipes the key
func (k *OuterKey) Destroy() { k.buf.Destroy() }

// Equal compares keys in constant time
func (k *OuterKey) Equal(o *OuterKey) bool { return o != nil && k.buf.Equal(o.buf) }

// Bytes exposes the key; nil after Destroy
func (k *EntriesKey) Bytes() []byte { return k.buf.Bytes() }

// Alive reports whether the key has not been destroyed
func (k *EntriesKey) Alive() bool { return k != nil && k.buf.Alive() }

// Destroy wipes the key
func (k *EntriesKey) Destroy() { k.buf.Destroy() }

// Equal compares keys in constant time
func (k *EntriesKey) Equal(o *EntriesKey) bool { return o != nil && k.buf.Equal(o.buf) }

// Check returns a keyed BLAKE2b tag over LabelCheck. It identifies the key
// without revealing it, so a vault can tell whether it was given the
// entries key it was written with.
func (k *EntriesKey) Check() ([]byte, error) {
	if !k.Alive() {
		return nil, fmt.Errorf("%w: entries key released", ErrInvalidKey)
	}
	h, err := blake2b.New(CheckSize, k.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	h.Write([]byte(LabelCheck))
	return h.Sum(nil), nil
}
