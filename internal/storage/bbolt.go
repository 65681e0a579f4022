package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// FormatVersion is the on-disk layout this package writes and accepts
const FormatVersion uint16 = 1

// Bucket names
var (
	MetaBucket    = []byte("meta")    // format, vault ID, timestamps - unencrypted
	IndexBucket   = []byte("index")   // sealed index envelope
	RecordsBucket = []byte("records") // sealed entry payloads
)

// Meta keys
var (
	MetaFormat   = []byte("format")
	MetaCreated  = []byte("created")
	MetaModified = []byte("modified")
	MetaVaultID  = []byte("vault_id")

	EnvelopeKey = []byte("envelope")
)

var (
	ErrNotVault       = errors.New("not a vault file")
	ErrNoEnvelope     = errors.New("index envelope not found")
	ErrRecordNotFound = errors.New("record not found")
)

const (
	FilePerm           = 0600
	DefaultLockTimeout = time.Second

	// minFileSize is four pages of the smallest page size bbolt uses
	minFileSize = 4 * 4096
)

// Storage provides BBolt-based storage for a vault file
type Storage struct {
	db      *bolt.DB
	timeout time.Duration
}

func boltOptions(timeout time.Duration, extraFlag int) *bolt.Options {
	return &bolt.Options{
		Timeout: timeout,
		OpenFile: func(name string, flag int, perm os.FileMode) (*os.File, error) {
			return os.OpenFile(name, (flag&^os.O_CREATE)|extraFlag, perm)
		},
	}
}

// Open opens an existing vault database. It never creates the file; a
// missing file yields an error matching os.ErrNotExist and a file bbolt
// cannot read yields ErrNotVault.
func Open(path string, timeout time.Duration) (*Storage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if info.IsDir() || info.Size() < minFileSize {
		return nil, fmt.Errorf("%w: %s", ErrNotVault, path)
	}

	db, err := bolt.Open(path, FilePerm, boltOptions(timeout, 0))
	if err != nil {
		if errors.Is(err, berrors.ErrInvalid) ||
			errors.Is(err, berrors.ErrVersionMismatch) ||
			errors.Is(err, berrors.ErrChecksum) {
			return nil, fmt.Errorf("%w: %w", ErrNotVault, err)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Storage{db: db, timeout: timeout}, nil
}

// Create creates a new vault database and its bucket structure. It fails
// with an error matching os.ErrExist if the path is taken.
func Create(path string, timeout time.Duration) (*Storage, error) {
	db, err := bolt.Open(path, FilePerm, boltOptions(timeout, os.O_CREATE|os.O_EXCL))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	s := &Storage{db: db, timeout: timeout}
	if err := s.initialize(); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// initialize creates the bucket structure and meta values for a new vault
func (s *Storage) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, IndexBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		format := make([]byte, 2)
		binary.BigEndian.PutUint16(format, FormatVersion)
		if err := meta.Put(MetaFormat, format); err != nil {
			return err
		}
		if err := meta.Put(MetaVaultID, []byte(uuid.NewString())); err != nil {
			return err
		}

		now, _ := time.Now().MarshalBinary()
		if err := meta.Put(MetaCreated, now); err != nil {
			return err
		}
		return meta.Put(MetaModified, now)
	})
}

// metaBucket returns the meta bucket or ErrNotVault if the database does not
// have the vault layout
func metaBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	for _, name := range [][]byte{IndexBucket, RecordsBucket} {
		if tx.Bucket(name) == nil {
			return nil, ErrNotVault
		}
	}
	meta := tx.Bucket(MetaBucket)
	if meta == nil {
		return nil, ErrNotVault
	}
	return meta, nil
}

// Format returns the stored format version
func (s *Storage) Format() (uint16, error) {
	var format uint16
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, err := metaBucket(tx)
		if err != nil {
			return err
		}
		data := meta.Get(MetaFormat)
		if len(data) != 2 {
			return ErrNotVault
		}
		format = binary.BigEndian.Uint16(data)
		return nil
	})
	return format, err
}

// VaultID returns the random identifier assigned at creation
func (s *Storage) VaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, err := metaBucket(tx)
		if err != nil {
			return err
		}
		data := meta.Get(MetaVaultID)
		if data == nil {
			return ErrNotVault
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// Created returns the creation timestamp
func (s *Storage) Created() (time.Time, error) {
	return s.timestamp(MetaCreated)
}

// Modified returns the last commit timestamp
func (s *Storage) Modified() (time.Time, error) {
	return s.timestamp(MetaModified)
}

func (s *Storage) timestamp(key []byte) (time.Time, error) {
	var ts time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, err := metaBucket(tx)
		if err != nil {
			return err
		}
		data := meta.Get(key)
		if data == nil {
			return fmt.Errorf("%s not found", key)
		}
		return ts.UnmarshalBinary(data)
	})
	return ts, err
}

// Envelope returns a copy of the sealed index envelope
func (s *Storage) Envelope() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return ErrNotVault
		}
		data = index.Get(EnvelopeKey)
		if data == nil {
			return ErrNoEnvelope
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// Record returns a copy of a sealed entry payload
func (s *Storage) Record(id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return ErrNotVault
		}
		data = records.Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// RecordIDs lists every stored record ID
func (s *Storage) RecordIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return ErrNotVault
		}
		return records.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Commit replaces the index envelope, writes the given records and deletes
// the dropped ones in a single transaction
func (s *Storage) Commit(envelope []byte, put map[string][]byte, drop []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := metaBucket(tx)
		if err != nil {
			return err
		}

		records := tx.Bucket(RecordsBucket)
		for id, data := range put {
			if err := records.Put([]byte(id), data); err != nil {
				return fmt.Errorf("failed to store record: %w", err)
			}
		}
		for _, id := range drop {
			if err := records.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}
		}

		if err := tx.Bucket(IndexBucket).Put(EnvelopeKey, envelope); err != nil {
			return fmt.Errorf("failed to store envelope: %w", err)
		}

		modified, _ := time.Now().MarshalBinary()
		return meta.Put(MetaModified, modified)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after removing entries to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"
	os.Remove(tmpPath) // leftover from an interrupted compaction

	// Create new database
	dst, err := bolt.Open(tmpPath, FilePerm, boltOptions(s.timeout, os.O_CREATE|os.O_EXCL))
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return errors.Join(fmt.Errorf("failed to backup original: %w", err), s.reopen(srcPath))
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return errors.Join(fmt.Errorf("failed to replace database: %w", err), s.reopen(srcPath))
	}
	os.Remove(backupPath)

	return s.reopen(srcPath)
}

func (s *Storage) reopen(path string) error {
	db, err := bolt.Open(path, FilePerm, boltOptions(s.timeout, 0))
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db
	return nil
}
