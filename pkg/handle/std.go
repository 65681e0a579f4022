package handle

import (
	"sync"
	"sync/atomic"
)

var (
	initOnce sync.Once
	std      atomic.Pointer[Table]
)

// Init sets up the process-wide table. Later calls are no-ops, including
// their options.
func Init(opts ...Option) {
	initOnce.Do(func() {
		std.Store(NewTable(opts...))
	})
}

func table() (*Table, error) {
	t := std.Load()
	if t == nil {
		return nil, ErrNotInitialized
	}
	return t, nil
}

// ImportSecret takes ownership of b, wiping the slice
func ImportSecret(b []byte) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.ImportSecret(b), nil
}

// MasterKey derives a master secret handle from a password and user name
func MasterKey(password []byte, userName string) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.MasterKey(password, userName)
}

func FreeSecret(h Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeSecret(h)
}

func DeriveOuterKey(s Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.DeriveOuterKey(s)
}

func FreeOuterKey(h Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeOuterKey(h)
}

func DeriveEntriesKey(s Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.DeriveEntriesKey(s)
}

func FreeEntriesKey(h Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeEntriesKey(h)
}

// OpenVault opens a vault file, consuming both key handles on success
func OpenVault(path string, outer, entries Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.OpenVault(path, outer, entries)
}

// NewVault creates an in-memory vault, consuming both key handles on success
func NewVault(outer, entries Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.NewVault(outer, entries)
}

func SaveVaultAs(v Handle, path string) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.SaveVaultAs(v, path)
}

func CloseVault(v Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.CloseVault(v)
}

func GetEntry(v Handle, name string) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.GetEntry(v, name)
}

func EntryBytes(buf Handle) ([]byte, error) {
	t, err := table()
	if err != nil {
		return nil, err
	}
	return t.EntryBytes(buf)
}

func FreeEntryBuffer(buf Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeEntryBuffer(buf)
}

func PutEntry(v Handle, name string, data []byte) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.PutEntry(v, name, data)
}

func EntryNamesIterator(v Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.EntryNamesIterator(v)
}

// IteratorNext returns the next name handle, or Nil at the end
func IteratorNext(it Handle) (Handle, error) {
	t, err := table()
	if err != nil {
		return Nil, err
	}
	return t.IteratorNext(it)
}

func EntryName(name Handle) (string, error) {
	t, err := table()
	if err != nil {
		return "", err
	}
	return t.EntryName(name)
}

func FreeEntryName(name Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeEntryName(name)
}

func FreeIterator(it Handle) error {
	t, err := table()
	if err != nil {
		return err
	}
	return t.FreeIterator(it)
}
