package vault

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/passvault/internal/storage"
)

// Meta is the unencrypted metadata of a vault file
type Meta struct {
	Path     string
	ID       string
	Format   uint16
	Created  time.Time
	Modified time.Time
	Records  int
	Size     int64
}

func openStore(path string, o options) (*storage.Storage, error) {
	store, err := storage.Open(path, o.lockTimeout)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case errors.Is(err, storage.ErrNotVault):
			return nil, fmt.Errorf("%w: not a vault file", ErrCorruptFormat)
		default:
			return nil, storageErr("open", err)
		}
	}
	return store, nil
}

// Inspect reads the metadata of a vault file without any key. The record
// count includes nothing about names; it equals the number of entries.
func Inspect(path string, opts ...Option) (*Meta, error) {
	store, err := openStore(path, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	meta := &Meta{Path: path}
	if meta.Format, err = store.Format(); err != nil {
		return nil, inspectErr(err)
	}
	if meta.ID, err = store.VaultID(); err != nil {
		return nil, inspectErr(err)
	}
	if meta.Created, err = store.Created(); err != nil {
		return nil, inspectErr(err)
	}
	if meta.Modified, err = store.Modified(); err != nil {
		return nil, inspectErr(err)
	}
	ids, err := store.RecordIDs()
	if err != nil {
		return nil, inspectErr(err)
	}
	meta.Records = len(ids)

	info, err := os.Stat(path)
	if err != nil {
		return nil, storageErr("stat", err)
	}
	meta.Size = info.Size()
	return meta, nil
}

func inspectErr(err error) error {
	if errors.Is(err, storage.ErrNotVault) {
		return fmt.Errorf("%w: not a vault file", ErrCorruptFormat)
	}
	return storageErr("read", err)
}

// CompactFile compacts a vault file that is not open. No key is needed.
func CompactFile(path string, opts ...Option) error {
	o := buildOptions(opts)
	store, err := openStore(path, o)
	if err != nil {
		return err
	}
	if _, err := store.Format(); err != nil {
		store.Close()
		return inspectErr(err)
	}
	if err := store.Compact(); err != nil {
		store.Close()
		return storageErr("compact", err)
	}
	if err := store.Close(); err != nil {
		return storageErr("close", err)
	}
	o.logger.WithField("path", path).Debug("vault compacted")
	return nil
}
