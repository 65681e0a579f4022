package vault

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
)

// IndexVersion is the version of the decrypted index document
const IndexVersion = 1

const envelopeLabel = "passvault.index"

// entryRef locates an entry's sealed payload
type entryRef struct {
	Record  string    `json:"record"`
	Counter uint32    `json:"counter"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// index is the document sealed under the outer key
type index struct {
	Version int                 `json:"version"`
	Check   []byte              `json:"check,omitempty"`
	Padding []byte              `json:"padding,omitempty"`
	Entries map[string]entryRef `json:"entries"`
}

func newIndex() *index {
	return &index{
		Version: IndexVersion,
		Entries: make(map[string]entryRef),
	}
}

// clone copies the entry map so a mutation can be prepared without touching
// the live index
func (ix *index) clone() *index {
	entries := make(map[string]entryRef, len(ix.Entries)+1)
	for name, ref := range ix.Entries {
		entries[name] = ref
	}
	return &index{Version: ix.Version, Entries: entries}
}

// names returns the entry names in lexicographic order
func (ix *index) names() []string {
	names := make([]string, 0, len(ix.Entries))
	for name := range ix.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ix *index) validate() error {
	if ix.Version != IndexVersion {
		return fmt.Errorf("%w: unsupported index version %d", ErrCorruptFormat, ix.Version)
	}
	if ix.Entries == nil {
		ix.Entries = make(map[string]entryRef)
	}

	seen := make(map[string]struct{}, len(ix.Entries))
	for _, ref := range ix.Entries {
		if _, err := uuid.Parse(ref.Record); err != nil {
			return fmt.Errorf("%w: invalid record reference", ErrCorruptFormat)
		}
		if ref.Counter == 0 {
			return fmt.Errorf("%w: invalid entry counter", ErrCorruptFormat)
		}
		if _, dup := seen[ref.Record]; dup {
			return fmt.Errorf("%w: record referenced twice", ErrCorruptFormat)
		}
		seen[ref.Record] = struct{}{}
	}
	return nil
}

// envelopeAAD binds the envelope to the file format and the vault identity
func envelopeAAD(vaultID string) []byte {
	aad := make([]byte, 0, len(envelopeLabel)+2+len(vaultID))
	aad = append(aad, envelopeLabel...)
	aad = binary.BigEndian.AppendUint16(aad, storage.FormatVersion)
	return append(aad, vaultID...)
}

func randomPadding(max int) ([]byte, error) {
	if max <= 0 {
		return nil, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to pick padding size: %w", err)
	}
	if n.Sign() == 0 {
		return nil, nil
	}
	return crypto.GenerateRandom(int(n.Int64()))
}

// sealIndex serializes and encrypts the index with fresh padding and the
// check value of the entries key
func sealIndex(ix *index, outer *crypto.OuterKey, entries *crypto.EntriesKey, vaultID string, maxPadding int) ([]byte, error) {
	check, err := entries.Check()
	if err != nil {
		return nil, err
	}
	padding, err := randomPadding(maxPadding)
	if err != nil {
		return nil, err
	}
	doc := index{Version: ix.Version, Check: check, Padding: padding, Entries: ix.Entries}

	plaintext, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	envelope, err := crypto.NewEncryptor(outer.Bytes()).Encrypt(plaintext, envelopeAAD(vaultID))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt index: %w", err)
	}
	return envelope, nil
}

// openIndex authenticates, decrypts and validates an envelope, then checks
// that entries is the key the index was sealed with. Wrong keys and damaged
// ciphertext are all reported as ErrAuthFailed.
func openIndex(envelope []byte, outer *crypto.OuterKey, entries *crypto.EntriesKey, vaultID string) (*index, error) {
	plaintext, err := crypto.NewEncryptor(outer.Bytes()).Decrypt(envelope, envelopeAAD(vaultID))
	if err != nil {
		if errors.Is(err, crypto.ErrAuthFailed) || errors.Is(err, crypto.ErrInvalidCiphertext) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("failed to decrypt index: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	var ix index
	if err := json.Unmarshal(plaintext, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFormat, err)
	}
	if err := ix.validate(); err != nil {
		return nil, err
	}

	want, err := entries.Check()
	if err != nil {
		return nil, err
	}
	if !crypto.ConstantTimeCompare(ix.Check, want) {
		return nil, ErrAuthFailed
	}
	ix.Check = nil
	ix.Padding = nil
	return &ix, nil
}
