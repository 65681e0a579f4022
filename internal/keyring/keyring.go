// Package keyring caches vault passwords in the OS keyring, keyed by the
// vault ID stored in the vault file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "passvault"

var ErrNotStored = errors.New("no password stored in keyring")

func account(vaultID, userName string) string {
	return userName + "@" + vaultID
}

// Save stores the password for a vault and user name
func Save(vaultID, userName string, password []byte) error {
	if err := keyring.Set(serviceName, account(vaultID, userName), string(password)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Get returns the stored password, or ErrNotStored
func Get(vaultID, userName string) ([]byte, error) {
	password, err := keyring.Get(serviceName, account(vaultID, userName))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return []byte(password), nil
}

// Delete removes the stored password, or returns ErrNotStored
func Delete(vaultID, userName string) error {
	if err := keyring.Delete(serviceName, account(vaultID, userName)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotStored
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Has reports whether a password is stored
func Has(vaultID, userName string) bool {
	_, err := keyring.Get(serviceName, account(vaultID, userName))
	return err == nil
}
