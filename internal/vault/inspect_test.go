package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	path := savedVault(t, "correct horse", map[string]string{
		"email": "alice@example.com",
		"bank":  "pin",
	})

	meta, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, path, meta.Path)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, uint16(1), meta.Format)
	assert.Equal(t, 2, meta.Records)
	assert.Greater(t, meta.Size, int64(0))
	assert.False(t, meta.Created.After(meta.Modified))

	v, err := openTestVault(t, path, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, v.ID())
	require.NoError(t, v.Close())
}

func TestInspectErrors(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	garbage := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 8192), 0600))
	_, err = Inspect(garbage)
	assert.Error(t, err)
}

func TestCompactFile(t *testing.T) {
	path := savedVault(t, "correct horse", map[string]string{"email": "alice@example.com"})

	v, err := openTestVault(t, path, "correct horse")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, v.Put("email", make([]byte, 8192)))
	}
	require.NoError(t, v.Remove("email"))
	require.NoError(t, v.Close())

	require.NoError(t, CompactFile(path))

	meta, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.Records)

	v, err = openTestVault(t, path, "correct horse")
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, 0, v.Len())
}
