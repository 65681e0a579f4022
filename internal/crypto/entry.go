package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/illarion/passvault/internal/secret"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	EntryNonceSize = chacha20poly1305.NonceSizeX
	EntryTagSize   = chacha20poly1305.Overhead

	entryInfoPrefix = "passvault.entry"
)

// entryKey derives the per-entry key bound to (name, counter).
// The caller must clear the returned slice.
func entryKey(key *EntriesKey, name string, counter uint32) ([]byte, error) {
	if !key.Alive() {
		return nil, fmt.Errorf("%w: entries key released", ErrInvalidKey)
	}

	info := make([]byte, 0, len(entryInfoPrefix)+1+len(name)+1+4)
	info = append(info, entryInfoPrefix...)
	info = append(info, 0)
	info = append(info, name...)
	info = append(info, 0)
	info = binary.BigEndian.AppendUint32(info, counter)

	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key.Bytes(), nil, info), out); err != nil {
		return nil, fmt.Errorf("failed to derive entry key: %w", err)
	}
	return out, nil
}

// SealEntry encrypts an entry payload with XChaCha20-Poly1305 under a fresh
// random nonce. Output layout: nonce || ciphertext || tag.
func SealEntry(key *EntriesKey, name string, counter uint32, aad, plaintext []byte) ([]byte, error) {
	k, err := entryKey(key, name, counter)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(k)

	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce, err := GenerateRandom(EntryNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, EntryNonceSize, EntryNonceSize+len(plaintext)+EntryTagSize)
	copy(out, nonce)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// OpenEntry authenticates and decrypts a sealed payload into a fresh Buffer
// owned by the caller. Any mismatch (key, name, counter, aad, bits) yields
// ErrAuthFailed and no plaintext.
func OpenEntry(key *EntriesKey, name string, counter uint32, aad, sealed []byte) (*secret.Buffer, error) {
	if len(sealed) < EntryNonceSize+EntryTagSize {
		return nil, ErrAuthFailed
	}

	k, err := entryKey(key, name, counter)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(k)

	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, sealed[:EntryNonceSize], sealed[EntryNonceSize:], aad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return secret.New(plaintext), nil
}
