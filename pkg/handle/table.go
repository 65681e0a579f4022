package handle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/secret"
	"github.com/illarion/passvault/internal/vault"
	"github.com/sirupsen/logrus"
)

// Handle identifies an object in a Table. The zero value is never issued.
type Handle uint64

// Nil marks "no object", e.g. the end of an iterator
const Nil Handle = 0

// Kind is the type of object a handle refers to
type Kind int

const (
	KindSecret Kind = iota + 1
	KindOuterKey
	KindEntriesKey
	KindVault
	KindIterator
	KindEntryBuffer
	KindEntryName
)

func (k Kind) String() string {
	switch k {
	case KindSecret:
		return "secret"
	case KindOuterKey:
		return "outer key"
	case KindEntriesKey:
		return "entries key"
	case KindVault:
		return "vault"
	case KindIterator:
		return "iterator"
	case KindEntryBuffer:
		return "entry buffer"
	case KindEntryName:
		return "entry name"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrNotInitialized = errors.New("handle table not initialized")
)

// Engine errors, for matching with errors.Is
var (
	ErrDerivationFailed = crypto.ErrDerivationFailed
	ErrNotFound         = vault.ErrNotFound
	ErrAuthFailed       = vault.ErrAuthFailed
	ErrCorruptFormat    = vault.ErrCorruptFormat
	ErrUseAfterClose    = vault.ErrUseAfterClose
	ErrStorageIO        = vault.ErrStorageIO
	ErrAlreadyExists    = vault.ErrAlreadyExists
	ErrNotBound         = vault.ErrNotBound
)

type object struct {
	kind  Kind
	value any
}

// Table owns every object reachable through its handles. All methods are
// safe for concurrent use; each call holds the table lock until it returns.
type Table struct {
	mu      sync.Mutex
	next    Handle
	objects map[Handle]object

	kdf       crypto.KDF
	vaultOpts []vault.Option
}

// Option configures a Table
type Option func(*Table)

// WithScryptCost sets the scrypt parameters used by MasterKey
func WithScryptCost(n, r, p int) Option {
	return func(t *Table) {
		t.kdf = crypto.KDF{N: n, R: r, P: p}
	}
}

// WithLogger sets the logger of every vault opened through the table
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Table) {
		t.vaultOpts = append(t.vaultOpts, vault.WithLogger(l))
	}
}

// NewTable returns an empty table
func NewTable(opts ...Option) *Table {
	t := &Table{
		objects: make(map[Handle]object),
		kdf:     crypto.DefaultKDF(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Live returns the number of handles not yet released or transferred
func (t *Table) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}

// insert must be called with t.mu held
func (t *Table) insert(kind Kind, value any) Handle {
	t.next++
	h := t.next
	t.objects[h] = object{kind: kind, value: value}
	return h
}

// lookup must be called with t.mu held
func (t *Table) lookup(h Handle, kind Kind) (any, error) {
	obj, ok := t.objects[h]
	if !ok || h == Nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	if obj.kind != kind {
		return nil, fmt.Errorf("%w: %d is %s, want %s", ErrInvalidHandle, h, obj.kind, kind)
	}
	return obj.value, nil
}

// take removes and returns an object; must be called with t.mu held
func (t *Table) take(h Handle, kind Kind) (any, error) {
	value, err := t.lookup(h, kind)
	if err != nil {
		return nil, err
	}
	delete(t.objects, h)
	return value, nil
}

// ImportSecret takes ownership of b, wiping the slice, and returns a secret
// handle
func (t *Table) ImportSecret(b []byte) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(KindSecret, secret.New(b))
}

// MasterKey derives a master secret from a password and user name. The
// password slice is not modified.
func (t *Table) MasterKey(password []byte, userName string) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	master, err := t.kdf.MasterKey(password, userName)
	if err != nil {
		return Nil, err
	}
	return t.insert(KindSecret, master), nil
}

// FreeSecret wipes and releases a secret
func (t *Table) FreeSecret(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindSecret)
	if err != nil {
		return err
	}
	v.(*secret.Buffer).Destroy()
	return nil
}

// DeriveOuterKey derives the outer key from a secret; the secret stays valid
func (t *Table) DeriveOuterKey(s Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.lookup(s, KindSecret)
	if err != nil {
		return Nil, err
	}
	key, err := crypto.DeriveOuterKey(v.(*secret.Buffer))
	if err != nil {
		return Nil, err
	}
	return t.insert(KindOuterKey, key), nil
}

// FreeOuterKey wipes and releases an outer key the caller still owns
func (t *Table) FreeOuterKey(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindOuterKey)
	if err != nil {
		return err
	}
	v.(*crypto.OuterKey).Destroy()
	return nil
}

// DeriveEntriesKey derives the entries key from a secret; the secret stays
// valid
func (t *Table) DeriveEntriesKey(s Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.lookup(s, KindSecret)
	if err != nil {
		return Nil, err
	}
	key, err := crypto.DeriveEntriesKey(v.(*secret.Buffer))
	if err != nil {
		return Nil, err
	}
	return t.insert(KindEntriesKey, key), nil
}

// FreeEntriesKey wipes and releases an entries key the caller still owns
func (t *Table) FreeEntriesKey(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindEntriesKey)
	if err != nil {
		return err
	}
	v.(*crypto.EntriesKey).Destroy()
	return nil
}

// keys resolves a key pair without removing it; must be called with t.mu held
func (t *Table) keys(outer, entries Handle) (*crypto.OuterKey, *crypto.EntriesKey, error) {
	o, err := t.lookup(outer, KindOuterKey)
	if err != nil {
		return nil, nil, err
	}
	e, err := t.lookup(entries, KindEntriesKey)
	if err != nil {
		return nil, nil, err
	}
	return o.(*crypto.OuterKey), e.(*crypto.EntriesKey), nil
}

// adopt registers a vault and drops the key handles it now owns; must be
// called with t.mu held
func (t *Table) adopt(v *vault.Vault, outer, entries Handle) Handle {
	delete(t.objects, outer)
	delete(t.objects, entries)
	return t.insert(KindVault, v)
}

// OpenVault opens a vault file. On success both key handles are consumed.
func (t *Table) OpenVault(path string, outer, entries Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok, ek, err := t.keys(outer, entries)
	if err != nil {
		return Nil, err
	}
	v, err := vault.Open(path, ok, ek, t.vaultOpts...)
	if err != nil {
		return Nil, err
	}
	return t.adopt(v, outer, entries), nil
}

// NewVault creates an empty in-memory vault. On success both key handles
// are consumed.
func (t *Table) NewVault(outer, entries Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok, ek, err := t.keys(outer, entries)
	if err != nil {
		return Nil, err
	}
	v, err := vault.Create(ok, ek, t.vaultOpts...)
	if err != nil {
		return Nil, err
	}
	return t.adopt(v, outer, entries), nil
}

func (t *Table) vault(h Handle) (*vault.Vault, error) {
	v, err := t.lookup(h, KindVault)
	if err != nil {
		return nil, err
	}
	return v.(*vault.Vault), nil
}

// SaveVaultAs binds an in-memory vault to a new file
func (t *Table) SaveVaultAs(h Handle, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.vault(h)
	if err != nil {
		return err
	}
	return v.SaveAs(path)
}

// CloseVault closes a vault and destroys its keys. The handle is released
// even when Close reports an error.
func (t *Table) CloseVault(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindVault)
	if err != nil {
		return err
	}
	return v.(*vault.Vault).Close()
}

// GetEntry decrypts an entry into a buffer handle owned by the caller
func (t *Table) GetEntry(h Handle, name string) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.vault(h)
	if err != nil {
		return Nil, err
	}
	buf, err := v.Get(name)
	if err != nil {
		return Nil, err
	}
	return t.insert(KindEntryBuffer, buf), nil
}

// EntryBytes exposes the contents of an entry buffer. The slice is valid
// until FreeEntryBuffer and must not be retained past it.
func (t *Table) EntryBytes(h Handle) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.lookup(h, KindEntryBuffer)
	if err != nil {
		return nil, err
	}
	return v.(*secret.Buffer).Bytes(), nil
}

// FreeEntryBuffer wipes and releases an entry buffer
func (t *Table) FreeEntryBuffer(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindEntryBuffer)
	if err != nil {
		return err
	}
	v.(*secret.Buffer).Destroy()
	return nil
}

// PutEntry creates or replaces an entry. data is not retained.
func (t *Table) PutEntry(h Handle, name string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.vault(h)
	if err != nil {
		return err
	}
	return v.Put(name, data)
}

// EntryNamesIterator snapshots the entry names of a vault
func (t *Table) EntryNamesIterator(h Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.vault(h)
	if err != nil {
		return Nil, err
	}
	it, err := v.Names()
	if err != nil {
		return Nil, err
	}
	return t.insert(KindIterator, it), nil
}

// IteratorNext returns a handle to the next name, or Nil at the end. If the
// source vault was closed it returns vault.ErrUseAfterClose.
func (t *Table) IteratorNext(h Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.lookup(h, KindIterator)
	if err != nil {
		return Nil, err
	}
	it := v.(*vault.NameIterator)
	name, ok := it.Next()
	if !ok {
		return Nil, it.Err()
	}
	return t.insert(KindEntryName, name), nil
}

// EntryName returns the name behind a name handle
func (t *Table) EntryName(h Handle) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.lookup(h, KindEntryName)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// FreeEntryName releases a name handle
func (t *Table) FreeEntryName(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.take(h, KindEntryName)
	return err
}

// FreeIterator releases an iterator. The source vault is not affected.
func (t *Table) FreeIterator(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := t.take(h, KindIterator)
	if err != nil {
		return err
	}
	v.(*vault.NameIterator).Release()
	return nil
}
