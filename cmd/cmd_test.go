package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	gokeyring.MockInit()
	os.Exit(m.Run())
}

// setup points the CLI at a fresh vault path with a cheap scrypt cost
func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PASSVAULT_NAME", "alice")
	t.Setenv("PASSVAULT_PASSWORD", "correct horse")
	t.Setenv("PASSVAULT_SCRYPT_N", "1024")
	t.Setenv("PASSVAULT_SCRYPT_R", "8")
	t.Setenv("PASSVAULT_SCRYPT_P", "1")
	t.Setenv("PASSVAULT_OTHER_PASSWORD", "")
	t.Setenv("PASSVAULT_NEW_PASSWORD", "")

	path := filepath.Join(home, "vault.db")
	t.Setenv("PASSVAULT_FILE", path)
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, stdin, args...)
	require.NoError(t, err, "passvault %s: %s", strings.Join(args, " "), errOut)
	return out
}

func TestInitPutGet(t *testing.T) {
	path := setup(t)

	out := mustRun(t, "", "init")
	assert.Contains(t, out, "Initialized "+path)
	assert.FileExists(t, path)

	mustRun(t, "s3cret\n", "put", "github")
	mustRun(t, "token", "put", "aws")

	assert.Equal(t, "s3cret\n", mustRun(t, "", "get", "github"))
	assert.Equal(t, "token", mustRun(t, "", "get", "aws"))
	assert.Equal(t, "aws\ngithub\n", mustRun(t, "", "ls"))

	long := mustRun(t, "", "ls", "-l")
	assert.Contains(t, long, "NAME")
	assert.Contains(t, long, "github")
}

func TestInitRefusesExisting(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")

	_, _, err := run(t, "", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestPutReplaces(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")

	_, errOut, err := run(t, "one", "put", "k")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Added k")

	_, errOut, err = run(t, "two", "put", "k")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Updated k")
	assert.Equal(t, "two", mustRun(t, "", "get", "k"))
}

func TestWrongPassword(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")
	mustRun(t, "v", "put", "k")

	t.Setenv("PASSVAULT_PASSWORD", "wrong")
	_, _, err := run(t, "", "get", "k")
	require.ErrorIs(t, err, vault.ErrAuthFailed)
	assert.Equal(t, "Error: wrong password or damaged vault\n", describe(err))

	t.Setenv("PASSVAULT_PASSWORD", "correct horse")
	t.Setenv("PASSVAULT_NAME", "bob")
	_, _, err = run(t, "", "get", "k")
	require.ErrorIs(t, err, vault.ErrAuthFailed)
}

func TestMissingVault(t *testing.T) {
	setup(t)

	_, _, err := run(t, "", "ls")
	require.ErrorIs(t, err, errNoVault)
	require.ErrorIs(t, err, vault.ErrNotFound)
	assert.Contains(t, describe(err), "passvault init")
	assert.NotContains(t, describe(err), "no vault")
}

func TestNameRequired(t *testing.T) {
	setup(t)
	t.Setenv("PASSVAULT_NAME", "")

	_, _, err := run(t, "", "init")
	require.ErrorIs(t, err, errNameRequired)
	assert.Contains(t, describe(err), "--name")
}

func TestNameFlag(t *testing.T) {
	setup(t)
	t.Setenv("PASSVAULT_NAME", "")

	mustRun(t, "", "init", "--name", "carol")
	mustRun(t, "v", "put", "-n", "carol", "k")
	assert.Equal(t, "v", mustRun(t, "", "get", "-n", "carol", "k"))
}

func TestConfigFile(t *testing.T) {
	setup(t)
	t.Setenv("PASSVAULT_NAME", "")
	home := os.Getenv("HOME")
	path := filepath.Join(home, "other.db")
	t.Setenv("PASSVAULT_FILE", "")

	cfg := "name: dave\nfile: " + path + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".passvault.yaml"), []byte(cfg), 0600))

	mustRun(t, "", "init")
	assert.FileExists(t, path)

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("name: erin\nlog:\n  level: nope\n"), 0600))
	_, _, err := run(t, "", "ls", "--config", explicit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRemoveAndRename(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")
	mustRun(t, "1", "put", "a")
	mustRun(t, "2", "put", "b")
	mustRun(t, "3", "put", "c")

	mustRun(t, "", "rm", "a", "b")
	assert.Equal(t, "c\n", mustRun(t, "", "ls"))

	_, _, err := run(t, "", "rm", "a")
	require.ErrorIs(t, err, vault.ErrNotFound)

	mustRun(t, "", "mv", "c", "d")
	assert.Equal(t, "d\n", mustRun(t, "", "ls"))
	assert.Equal(t, "3", mustRun(t, "", "get", "d"))

	mustRun(t, "4", "put", "e")
	_, _, err = run(t, "", "mv", "d", "e")
	require.ErrorIs(t, err, vault.ErrAlreadyExists)
}

func TestFileInputOutput(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	t.Chdir(dir)
	mustRun(t, "", "init")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa"), []byte("PRIVATE"), 0600))
	mustRun(t, "", "put", "ssh", "-i", "id_rsa")

	mustRun(t, "", "get", "ssh", "-o", "restored/id_rsa")
	data, err := os.ReadFile(filepath.Join(dir, "restored", "id_rsa"))
	require.NoError(t, err)
	assert.Equal(t, "PRIVATE", string(data))

	_, _, err = run(t, "", "get", "ssh", "-o", "restored/id_rsa")
	require.ErrorIs(t, err, os.ErrExist)
	assert.Contains(t, describe(err), "--force")

	mustRun(t, "", "get", "ssh", "-o", "restored/id_rsa", "--force")

	_, _, err = run(t, "", "get", "ssh", "-o", "../escape")
	require.Error(t, err)
	_, _, err = run(t, "", "put", "x", "-i", "/etc/passwd")
	require.Error(t, err)
}

func TestPasswd(t *testing.T) {
	path := setup(t)
	mustRun(t, "", "init")
	mustRun(t, "v", "put", "k")

	meta, err := vault.Inspect(path)
	require.NoError(t, err)
	require.NoError(t, keyring.Save(meta.ID, "alice", []byte("correct horse")))

	t.Setenv("PASSVAULT_NEW_PASSWORD", "battery staple")
	out := mustRun(t, "", "passwd")
	assert.Contains(t, out, "Password changed")
	assert.Contains(t, out, "Keyring updated")
	assert.NoFileExists(t, path+".rekey")

	_, _, err = run(t, "", "get", "k")
	require.ErrorIs(t, err, vault.ErrAuthFailed)

	t.Setenv("PASSVAULT_PASSWORD", "battery staple")
	assert.Equal(t, "v", mustRun(t, "", "get", "k"))

	newMeta, err := vault.Inspect(path)
	require.NoError(t, err)
	assert.NotEqual(t, meta.ID, newMeta.ID)
	assert.False(t, keyring.Has(meta.ID, "alice"))
	assert.True(t, keyring.Has(newMeta.ID, "alice"))
}

func TestMerge(t *testing.T) {
	path := setup(t)
	mustRun(t, "", "init")
	mustRun(t, "mine", "put", "shared")
	mustRun(t, "same", "put", "equal")

	other := filepath.Join(filepath.Dir(path), "other.db")
	t.Setenv("PASSVAULT_FILE", other)
	t.Setenv("PASSVAULT_PASSWORD", "other pass")
	mustRun(t, "", "init")
	mustRun(t, "theirs", "put", "shared")
	mustRun(t, "same", "put", "equal")
	mustRun(t, "new", "put", "extra")

	t.Setenv("PASSVAULT_FILE", path)
	t.Setenv("PASSVAULT_PASSWORD", "correct horse")

	_, _, err := run(t, "", "merge", other)
	require.ErrorIs(t, err, errNoPassword)

	t.Setenv("PASSVAULT_OTHER_PASSWORD", "other pass")
	out := mustRun(t, "", "merge", "--diff", other)
	assert.Contains(t, out, "added   extra")
	assert.Contains(t, out, "newer   shared")
	assert.Contains(t, out, "-mine")
	assert.Contains(t, out, "+theirs")
	assert.NotContains(t, out, "equal")

	assert.Equal(t, "new", mustRun(t, "", "get", "extra"))
	assert.Equal(t, "mine", mustRun(t, "", "get", "shared"))

	_, _, err = run(t, "", "merge", path)
	require.ErrorIs(t, err, errSameVault)
}

func TestStatusWithoutPassword(t *testing.T) {
	path := setup(t)
	mustRun(t, "", "init")
	mustRun(t, "v", "put", "k")

	t.Setenv("PASSVAULT_PASSWORD", "")
	out := mustRun(t, "", "status")
	assert.Contains(t, out, "Vault:    "+path)
	assert.Contains(t, out, "Entries:  1")
	assert.Contains(t, out, "Password: not stored")
}

func TestKeyring(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")
	mustRun(t, "v", "put", "k")

	assert.Contains(t, mustRun(t, "", "keyring", "status"), "not stored")
	assert.Contains(t, mustRun(t, "", "keyring", "save"), "saved")
	assert.Contains(t, mustRun(t, "", "keyring", "status"), "stored in keyring")

	t.Setenv("PASSVAULT_PASSWORD", "")
	assert.Equal(t, "v", mustRun(t, "", "get", "k"))

	assert.Contains(t, mustRun(t, "", "keyring", "delete"), "removed")
	assert.Contains(t, mustRun(t, "", "keyring", "delete"), "No password stored")

	_, _, err := run(t, "", "get", "k")
	require.ErrorIs(t, err, errNoPassword)
}

func TestStaleKeyring(t *testing.T) {
	path := setup(t)
	mustRun(t, "", "init")

	meta, err := vault.Inspect(path)
	require.NoError(t, err)
	require.NoError(t, keyring.Save(meta.ID, "alice", []byte("outdated")))

	t.Setenv("PASSVAULT_PASSWORD", "")
	_, errOut, err := run(t, "", "ls")
	require.ErrorIs(t, err, errNoPassword)
	assert.Contains(t, errOut, "stale")
}

func TestCompact(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")
	for _, name := range []string{"a", "b", "c"} {
		mustRun(t, strings.Repeat("x", 4096), "put", name)
	}
	mustRun(t, "", "rm", "a", "b")

	t.Setenv("PASSVAULT_PASSWORD", "")
	out := mustRun(t, "", "compact")
	assert.Contains(t, out, "Compacted:")
}

func TestNotAVault(t *testing.T) {
	path := setup(t)
	require.NoError(t, os.WriteFile(path, []byte("plain text\n"), 0600))

	_, _, err := run(t, "", "status")
	require.ErrorIs(t, err, vault.ErrCorruptFormat)
	assert.Equal(t, "Error: file is not a passvault vault\n", describe(err))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 bytes"},
		{1023, "1023 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.size))
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PASSVAULT_PASSWORD", envName("password"))
	assert.Equal(t, "PASSVAULT_OTHER_PASSWORD", envName("other.password"))
}

func fakeEditor(t *testing.T, content string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell editor script")
	}
	script := filepath.Join(t.TempDir(), "editor.sh")
	body := "#!/bin/sh\nprintf '%s' '" + content + "' > \"$1\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0700))
	t.Setenv("VISUAL", script)
}

func TestEdit(t *testing.T) {
	setup(t)
	mustRun(t, "", "init")

	fakeEditor(t, "fresh")
	mustRun(t, "", "edit", "note")
	assert.Equal(t, "fresh", mustRun(t, "", "get", "note"))

	_, errOut, err := run(t, "", "edit", "note")
	require.NoError(t, err)
	assert.Contains(t, errOut, "No changes")

	fakeEditor(t, "changed")
	mustRun(t, "", "edit", "note")
	assert.Equal(t, "changed", mustRun(t, "", "get", "note"))
}
