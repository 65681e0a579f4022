package vault

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/secret"
	"github.com/illarion/passvault/internal/storage"
	"github.com/sirupsen/logrus"
)

// Vault is an open password vault
type Vault struct {
	opts options
	log  logrus.FieldLogger

	store   *storage.Storage // nil until bound to a file
	id      string
	outer   *crypto.OuterKey
	entries *crypto.EntriesKey
	index   *index

	// sealed payloads of an unbound vault, by record ID
	staged map[string][]byte

	closed bool
}

// EntryInfo describes an entry without decrypting it
type EntryInfo struct {
	Name     string
	Created  time.Time
	Updated  time.Time
	Revision uint32
}

func checkKeys(outer *crypto.OuterKey, entries *crypto.EntriesKey) error {
	if !outer.Alive() {
		return fmt.Errorf("%w: outer key released", crypto.ErrInvalidKey)
	}
	if !entries.Alive() {
		return fmt.Errorf("%w: entries key released", crypto.ErrInvalidKey)
	}
	return nil
}

// Open opens the vault file at path. On success the Vault owns both keys and
// destroys them on Close; on failure they stay with the caller.
//
// A missing file yields ErrNotFound. Wrong keys, a damaged file and a file
// that is not a vault all yield ErrAuthFailed.
func Open(path string, outer *crypto.OuterKey, entries *crypto.EntriesKey, opts ...Option) (*Vault, error) {
	if err := checkKeys(outer, entries); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	store, err := storage.Open(path, o.lockTimeout)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case errors.Is(err, storage.ErrNotVault):
			return nil, ErrAuthFailed
		default:
			return nil, storageErr("open", err)
		}
	}

	v := &Vault{
		opts:    o,
		log:     o.logger.WithField("path", path),
		store:   store,
		outer:   outer,
		entries: entries,
		staged:  make(map[string][]byte),
	}
	if err := v.load(); err != nil {
		store.Close()
		return nil, err
	}

	v.log.WithField("entries", len(v.index.Entries)).Debug("vault opened")
	return v, nil
}

func (v *Vault) load() error {
	format, err := v.store.Format()
	if err != nil {
		return mapReadErr(err)
	}
	if format != storage.FormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrCorruptFormat, format)
	}

	id, err := v.store.VaultID()
	if err != nil {
		return mapReadErr(err)
	}
	envelope, err := v.store.Envelope()
	if err != nil {
		return mapReadErr(err)
	}

	ix, err := openIndex(envelope, v.outer, v.entries, id)
	if err != nil {
		return err
	}
	v.id = id
	v.index = ix
	return nil
}

// mapReadErr folds layout problems into ErrAuthFailed and everything else
// into ErrStorageIO
func mapReadErr(err error) error {
	if errors.Is(err, storage.ErrNotVault) || errors.Is(err, storage.ErrNoEnvelope) {
		return ErrAuthFailed
	}
	return storageErr("read", err)
}

// Create returns a new empty vault that is not yet bound to a file. Entries
// put into it are kept in memory until SaveAs. On success the Vault owns
// both keys.
func Create(outer *crypto.OuterKey, entries *crypto.EntriesKey, opts ...Option) (*Vault, error) {
	if err := checkKeys(outer, entries); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	v := &Vault{
		opts:    o,
		log:     o.logger,
		outer:   outer,
		entries: entries,
		index:   newIndex(),
		staged:  make(map[string][]byte),
	}
	v.log.Debug("vault created")
	return v, nil
}

// SaveAs writes an unbound vault to a new file at path and binds it there.
// It never overwrites an existing file.
func (v *Vault) SaveAs(path string) error {
	if err := v.check(); err != nil {
		return err
	}
	if v.store != nil {
		return fmt.Errorf("%w: %s", ErrBound, v.store.Path())
	}

	store, err := storage.Create(path, v.opts.lockTimeout)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return storageErr("create", err)
	}

	fail := func(err error) error {
		store.Close()
		os.Remove(path)
		return err
	}

	id, err := store.VaultID()
	if err != nil {
		return fail(storageErr("read", err))
	}
	envelope, err := sealIndex(v.index, v.outer, v.entries, id, v.opts.maxPadding)
	if err != nil {
		return fail(err)
	}
	if err := store.Commit(envelope, v.staged, nil); err != nil {
		return fail(storageErr("commit", err))
	}

	for rid, data := range v.staged {
		secret.Wipe(data)
		delete(v.staged, rid)
	}
	v.store = store
	v.id = id
	v.log = v.opts.logger.WithField("path", path)
	v.log.WithField("entries", len(v.index.Entries)).Debug("vault saved")
	return nil
}

// Close releases the vault and destroys both keys. An unbound vault holding
// entries is still released but Close reports ErrNotBound since those
// entries are lost. Closing twice yields ErrUseAfterClose.
func (v *Vault) Close() error {
	if v.closed {
		return ErrUseAfterClose
	}
	v.closed = true

	var errs []error
	if v.store != nil {
		if err := v.store.Close(); err != nil {
			errs = append(errs, storageErr("close", err))
		}
	} else if len(v.index.Entries) > 0 {
		errs = append(errs, ErrNotBound)
	}

	for rid, data := range v.staged {
		secret.Wipe(data)
		delete(v.staged, rid)
	}
	v.outer.Destroy()
	v.entries.Destroy()
	v.index = nil

	v.log.Debug("vault closed")
	return errors.Join(errs...)
}

func (v *Vault) check() error {
	if v.closed {
		return ErrUseAfterClose
	}
	return nil
}

// Path returns the bound file path, or "" for an unbound vault
func (v *Vault) Path() string {
	if v.store == nil || v.closed {
		return ""
	}
	return v.store.Path()
}

// ID returns the vault identifier stored in the file, or "" while unbound
func (v *Vault) ID() string {
	return v.id
}

// Bound reports whether the vault is backed by a file
func (v *Vault) Bound() bool {
	return v.store != nil
}

// Len returns the number of entries
func (v *Vault) Len() int {
	if v.closed {
		return 0
	}
	return len(v.index.Entries)
}

// Has reports whether an entry exists
func (v *Vault) Has(name string) bool {
	if v.closed {
		return false
	}
	_, ok := v.index.Entries[name]
	return ok
}

// Info returns entry metadata without decrypting the payload
func (v *Vault) Info(name string) (EntryInfo, error) {
	if err := v.check(); err != nil {
		return EntryInfo{}, err
	}
	ref, ok := v.index.Entries[name]
	if !ok {
		return EntryInfo{}, fmt.Errorf("%w: entry %q", ErrNotFound, name)
	}
	return EntryInfo{Name: name, Created: ref.Created, Updated: ref.Updated, Revision: ref.Counter}, nil
}

// Get decrypts an entry. The returned buffer is owned by the caller, who
// must Destroy it.
func (v *Vault) Get(name string) (*secret.Buffer, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	ref, ok := v.index.Entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: entry %q", ErrNotFound, name)
	}

	sealed, err := v.record(ref.Record)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.OpenEntry(v.entries, name, ref.Counter, []byte(ref.Record), sealed)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthFailed) {
			return nil, ErrAuthFailed
		}
		return nil, err
	}
	return plain, nil
}

// record returns the sealed payload for a record ID. A record the index
// references but the file lacks is treated as tampering.
func (v *Vault) record(id string) ([]byte, error) {
	if data, ok := v.staged[id]; ok {
		return data, nil
	}
	if v.store == nil {
		return nil, ErrAuthFailed
	}
	data, err := v.store.Record(id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) || errors.Is(err, storage.ErrNotVault) {
			return nil, ErrAuthFailed
		}
		return nil, storageErr("read", err)
	}
	return data, nil
}

// Put creates or replaces an entry. Replacing bumps the entry counter so
// the payload is sealed under a fresh per-entry key.
func (v *Vault) Put(name string, payload []byte) error {
	if err := v.check(); err != nil {
		return err
	}
	return v.put(name, payload, time.Time{}, time.Time{})
}

// put seals payload under name. Zero timestamps mean "now", keeping the
// creation time of a replaced entry.
func (v *Vault) put(name string, payload []byte, created, updated time.Time) error {
	if name == "" {
		return ErrInvalidName
	}

	now := time.Now().UTC()
	if updated.IsZero() {
		updated = now
	}

	next := v.index.clone()
	old, exists := next.Entries[name]
	ref := entryRef{Record: uuid.NewString(), Counter: 1, Created: created, Updated: updated}
	if exists {
		ref.Counter = old.Counter + 1
		if ref.Created.IsZero() {
			ref.Created = old.Created
		}
	}
	if ref.Created.IsZero() {
		ref.Created = now
	}

	sealed, err := crypto.SealEntry(v.entries, name, ref.Counter, []byte(ref.Record), payload)
	if err != nil {
		return fmt.Errorf("failed to seal entry: %w", err)
	}
	next.Entries[name] = ref

	var drop []string
	if exists {
		drop = []string{old.Record}
	}
	return v.apply(next, map[string][]byte{ref.Record: sealed}, drop)
}

// Remove deletes an entry
func (v *Vault) Remove(name string) error {
	if err := v.check(); err != nil {
		return err
	}
	ref, ok := v.index.Entries[name]
	if !ok {
		return fmt.Errorf("%w: entry %q", ErrNotFound, name)
	}

	next := v.index.clone()
	delete(next.Entries, name)
	return v.apply(next, nil, []string{ref.Record})
}

// Rename moves an entry to a new name, re-sealing its payload under the new
// name. The target must not exist.
func (v *Vault) Rename(from, to string) error {
	if err := v.check(); err != nil {
		return err
	}
	if to == "" {
		return ErrInvalidName
	}
	ref, ok := v.index.Entries[from]
	if !ok {
		return fmt.Errorf("%w: entry %q", ErrNotFound, from)
	}
	if from == to {
		return nil
	}
	if _, taken := v.index.Entries[to]; taken {
		return fmt.Errorf("%w: entry %q", ErrAlreadyExists, to)
	}

	plain, err := v.Get(from)
	if err != nil {
		return err
	}
	defer plain.Destroy()

	moved := entryRef{Record: uuid.NewString(), Counter: 1, Created: ref.Created, Updated: time.Now().UTC()}
	sealed, err := crypto.SealEntry(v.entries, to, moved.Counter, []byte(moved.Record), plain.Bytes())
	if err != nil {
		return fmt.Errorf("failed to seal entry: %w", err)
	}

	next := v.index.clone()
	delete(next.Entries, from)
	next.Entries[to] = moved
	return v.apply(next, map[string][]byte{moved.Record: sealed}, []string{ref.Record})
}

// apply makes next the live index. For a bound vault the re-sealed index and
// the record changes are committed atomically first; the in-memory state is
// replaced only after the commit succeeds.
func (v *Vault) apply(next *index, put map[string][]byte, drop []string) error {
	if v.store == nil {
		for _, rid := range drop {
			secret.Wipe(v.staged[rid])
			delete(v.staged, rid)
		}
		for rid, data := range put {
			v.staged[rid] = data
		}
		v.index = next
		return nil
	}

	envelope, err := sealIndex(next, v.outer, v.entries, v.id, v.opts.maxPadding)
	if err != nil {
		return err
	}
	if err := v.store.Commit(envelope, put, drop); err != nil {
		return storageErr("commit", err)
	}
	v.index = next
	return nil
}

// Compact rewrites the vault file, reclaiming space left by replaced and
// removed records. It is a no-op for an unbound vault.
func (v *Vault) Compact() error {
	if err := v.check(); err != nil {
		return err
	}
	if v.store == nil {
		return nil
	}
	if err := v.store.Compact(); err != nil {
		return storageErr("compact", err)
	}
	v.log.Debug("vault compacted")
	return nil
}

// Rekey writes a copy of the vault to a new file at path under new keys,
// keeping entry timestamps. Rekey takes ownership of the new keys whether
// or not it succeeds, unless they are already released. The receiver is
// left unchanged.
func (v *Vault) Rekey(path string, outer *crypto.OuterKey, entries *crypto.EntriesKey) error {
	if err := v.check(); err != nil {
		return err
	}

	dst, err := Create(outer, entries,
		WithLogger(v.opts.logger),
		WithMaxPadding(v.opts.maxPadding),
		WithLockTimeout(v.opts.lockTimeout))
	if err != nil {
		return err
	}

	copyErr := v.copyTo(dst)
	if copyErr == nil {
		copyErr = dst.SaveAs(path)
	}
	closeErr := dst.Close()
	if copyErr != nil {
		if errors.Is(closeErr, ErrNotBound) {
			closeErr = nil
		}
		return errors.Join(copyErr, closeErr)
	}
	return closeErr
}

func (v *Vault) copyTo(dst *Vault) error {
	for _, name := range v.index.names() {
		ref := v.index.Entries[name]
		plain, err := v.Get(name)
		if err != nil {
			return fmt.Errorf("entry %q: %w", name, err)
		}
		err = dst.put(name, plain.Bytes(), ref.Created, ref.Updated)
		plain.Destroy()
		if err != nil {
			return fmt.Errorf("entry %q: %w", name, err)
		}
	}
	return nil
}
