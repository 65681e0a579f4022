package vault

import (
	"errors"
	"fmt"

	"github.com/illarion/passvault/internal/crypto"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrCorruptFormat = errors.New("corrupt vault format")
	ErrUseAfterClose = errors.New("vault is closed")
	ErrStorageIO     = errors.New("storage failure")

	ErrAlreadyExists    = errors.New("already exists")
	ErrBound            = errors.New("vault is already bound to a file")
	ErrNotBound         = errors.New("vault has unsaved entries and no file")
	ErrInvalidName      = errors.New("invalid entry name")
	ErrIteratorReleased = errors.New("iterator released")

	// ErrDerivationFailed is returned by key derivation, see crypto.DeriveOuterKey
	ErrDerivationFailed = crypto.ErrDerivationFailed
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageIO, op, err)
}
