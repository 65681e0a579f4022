package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesSorted(t *testing.T) {
	v := newTestVault(t, "correct horse")
	defer v.Close()

	for _, name := range []string{"mail", "bank", "zulu", "alpha"} {
		require.NoError(t, v.Put(name, []byte(name)))
	}

	it, err := v.Names()
	require.NoError(t, err)
	assert.Equal(t, 4, it.Remaining())

	names, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bank", "mail", "zulu"}, names)

	// Exhausted iterators stay exhausted
	_, ok := it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())
}

func TestNamesEmpty(t *testing.T) {
	v := newTestVault(t, "correct horse")
	defer v.Close()

	it, err := v.Names()
	require.NoError(t, err)
	_, ok := it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())
}

func TestNamesSnapshot(t *testing.T) {
	v := newTestVault(t, "correct horse")
	defer v.Close()
	require.NoError(t, v.Put("a", nil))
	require.NoError(t, v.Put("b", nil))

	it, err := v.Names()
	require.NoError(t, err)

	require.NoError(t, v.Put("c", nil))
	require.NoError(t, v.Remove("a"))

	names, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestNamesAfterClose(t *testing.T) {
	v := newTestVault(t, "correct horse")
	require.NoError(t, v.Put("a", nil))
	require.NoError(t, v.Put("b", nil))

	it, err := v.Names()
	require.NoError(t, err)
	name, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "a", name)

	v.Close()
	_, ok = it.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, it.Err(), ErrUseAfterClose)
}

func TestNamesRelease(t *testing.T) {
	v := newTestVault(t, "correct horse")
	defer v.Close()
	require.NoError(t, v.Put("a", nil))

	it, err := v.Names()
	require.NoError(t, err)
	it.Release()
	it.Release()

	assert.Equal(t, 0, it.Remaining())
	_, ok := it.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, it.Err(), ErrIteratorReleased)
}
