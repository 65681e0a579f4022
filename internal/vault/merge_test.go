package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	into := newTestVault(t, "correct horse")
	defer into.Close()
	from := newTestVault(t, "battery staple")
	defer from.Close()

	require.NoError(t, from.Put("shared-old", []byte("from")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, into.Put("shared-old", []byte("into")))
	require.NoError(t, into.Put("shared-new", []byte("into")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, from.Put("shared-new", []byte("from")))
	require.NoError(t, from.Put("only-from", []byte("copied")))

	results, err := Merge(into, from)
	require.NoError(t, err)

	got := make(map[string]MergeOutcome)
	for _, r := range results {
		assert.NoError(t, r.Err)
		got[r.Name] = r.Outcome
	}
	assert.Equal(t, map[string]MergeOutcome{
		"only-from":  Added,
		"shared-new": IsNewer,
		"shared-old": IsOlder,
	}, got)
	assert.Equal(t, "only-from", results[0].Name)

	// Conflicts are reported, not resolved
	assert.Equal(t, "into", getString(t, into, "shared-new"))
	assert.Equal(t, "copied", getString(t, into, "only-from"))

	src, err := from.Info("only-from")
	require.NoError(t, err)
	dst, err := into.Info("only-from")
	require.NoError(t, err)
	assert.True(t, src.Updated.Equal(dst.Updated))
}

func TestMergeFailedEntry(t *testing.T) {
	path := savedVault(t, "correct horse", map[string]string{"email": "x"})
	tamper(t, path, func(records map[string][]byte) {
		for _, rec := range records {
			rec[len(rec)-1] ^= 0x01
		}
	})

	from, err := openTestVault(t, path, "correct horse")
	require.NoError(t, err)
	defer from.Close()

	into := newTestVault(t, "battery staple")
	defer into.Close()

	results, err := Merge(into, from)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Failed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrAuthFailed)
	assert.Equal(t, 0, into.Len())
}

func TestMergeUnreadableTarget(t *testing.T) {
	path := savedVault(t, "correct horse", map[string]string{"email": "damaged", "bank": "pin"})
	tamper(t, path, func(records map[string][]byte) {
		for _, rec := range records {
			rec[len(rec)-1] ^= 0x01
		}
	})

	into, err := openTestVault(t, path, "correct horse")
	require.NoError(t, err)
	defer into.Close()

	from := newTestVault(t, "battery staple")
	defer from.Close()
	require.NoError(t, from.Put("email", []byte("fresh")))

	results, err := Merge(into, from)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "email", results[0].Name)
	assert.Equal(t, Failed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrAuthFailed)
}

func TestMergeClosed(t *testing.T) {
	into := newTestVault(t, "correct horse")
	defer into.Close()
	from := newTestVault(t, "battery staple")
	from.Close()

	_, err := Merge(into, from)
	assert.ErrorIs(t, err, ErrUseAfterClose)
}

func TestMergeOutcomeString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "newer", IsNewer.String())
	assert.Equal(t, "older", IsOlder.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "MergeOutcome(9)", MergeOutcome(9).String())
}
