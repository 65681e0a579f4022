package crypto

import (
	"encoding/binary"
	"fmt"

	"github.com/illarion/passvault/internal/secret"
	"golang.org/x/crypto/scrypt"
)

const (
	MasterKeySize = 64
	saltPrefix    = "passvault"
)

// KDF turns a password into a master secret. The user name acts as salt, so
// the same (password, name) pair always yields the same vault keys.
type KDF struct {
	N int
	R int
	P int
}

// DefaultKDF returns the scrypt cost used for real vaults
func DefaultKDF() KDF {
	return KDF{N: 32768, R: 8, P: 2}
}

// MasterKey derives the master secret. The password slice is not modified.
func (k KDF) MasterKey(password []byte, userName string) (*secret.Buffer, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", ErrDerivationFailed)
	}
	if userName == "" {
		return nil, fmt.Errorf("%w: empty user name", ErrDerivationFailed)
	}

	salt := make([]byte, 0, len(saltPrefix)+4+len(userName))
	salt = append(salt, saltPrefix...)
	salt = binary.BigEndian.AppendUint32(salt, uint32(len(userName)))
	salt = append(salt, userName...)

	key, err := scrypt.Key(password, salt, k.N, k.R, k.P, MasterKeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return secret.New(key), nil
}
