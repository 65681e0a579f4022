package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/prompt"
	"github.com/illarion/passvault/internal/vault"
	"github.com/spf13/cobra"
)

var (
	errNameRequired = errors.New("user name required")
	errNoVault      = errors.New("no vault")
	errNoPassword   = errors.New("no password available")
)

// passwordSource records where a password came from
type passwordSource int

const (
	sourceEnv passwordSource = iota
	sourceKeyring
	sourcePrompt
)

func (a *app) path() string {
	return a.cfg.GetString("file")
}

func (a *app) userName() (string, error) {
	name := a.cfg.GetString("name")
	if name == "" {
		return "", errNameRequired
	}
	return name, nil
}

func (a *app) kdf() crypto.KDF {
	return crypto.KDF{
		N: a.cfg.GetInt("scrypt.n"),
		R: a.cfg.GetInt("scrypt.r"),
		P: a.cfg.GetInt("scrypt.p"),
	}
}

func (a *app) vaultOptions() []vault.Option {
	return []vault.Option{
		vault.WithLogger(a.log),
		vault.WithLockTimeout(a.cfg.GetDuration("lock.timeout")),
	}
}

// keys derives the vault keys for a password. The caller owns both keys.
func (a *app) keys(password []byte, name string) (*crypto.OuterKey, *crypto.EntriesKey, error) {
	master, err := a.kdf().MasterKey(password, name)
	if err != nil {
		return nil, nil, err
	}
	defer master.Destroy()

	outer, err := crypto.DeriveOuterKey(master)
	if err != nil {
		return nil, nil, err
	}
	entries, err := crypto.DeriveEntriesKey(master)
	if err != nil {
		outer.Destroy()
		return nil, nil, err
	}
	return outer, entries, nil
}

// envPassword returns a password set through the environment or config
func (a *app) envPassword(key string) []byte {
	if pw := a.cfg.GetString(key); pw != "" {
		return []byte(pw)
	}
	return nil
}

// session is an open vault together with the password that opened it
type session struct {
	v        *vault.Vault
	name     string
	password []byte
	source   passwordSource
	closed   bool
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	crypto.ClearBytes(s.password)
	return s.v.Close()
}

func (a *app) tryOpen(path, name string, password []byte, source passwordSource) (*session, error) {
	outer, entries, err := a.keys(password, name)
	if err != nil {
		return nil, err
	}
	v, err := vault.Open(path, outer, entries, a.vaultOptions()...)
	if err != nil {
		outer.Destroy()
		entries.Destroy()
		return nil, err
	}
	return &session{v: v, name: name, password: password, source: source}, nil
}

// open opens the configured vault. Passwords are tried from the
// environment, then the keyring, then a prompt. A stale keyring password
// falls through to the prompt, after which saving it is offered.
func (a *app) open(cmd *cobra.Command) (*session, error) {
	name, err := a.userName()
	if err != nil {
		return nil, err
	}
	s, err := a.openPath(cmd, a.path(), name, "password", "Password: ")
	if err != nil {
		return nil, err
	}
	a.offerKeyring(cmd, s.v.ID(), name, s.password, s.source)
	return s, nil
}

func (a *app) openPath(cmd *cobra.Command, path, name, passwordKey, promptText string) (*session, error) {
	meta, err := a.inspect(path)
	if err != nil {
		return nil, err
	}

	if pw := a.envPassword(passwordKey); pw != nil {
		s, err := a.tryOpen(path, name, pw, sourceEnv)
		if err != nil {
			crypto.ClearBytes(pw)
		}
		return s, err
	}

	if pw, err := keyring.Get(meta.ID, name); err == nil {
		s, err := a.tryOpen(path, name, pw, sourceKeyring)
		if err == nil {
			return s, nil
		}
		crypto.ClearBytes(pw)
		if !errors.Is(err, vault.ErrAuthFailed) {
			return nil, err
		}
		a.log.Warn("keyring password is stale, prompting")
	}

	if !prompt.IsTerminal(cmd.InOrStdin()) {
		return nil, fmt.Errorf("%w: set %s or run in a terminal", errNoPassword, envName(passwordKey))
	}
	pw, err := prompt.Password(promptText)
	if err != nil {
		return nil, err
	}
	s, err := a.tryOpen(path, name, pw, sourcePrompt)
	if err != nil {
		crypto.ClearBytes(pw)
	}
	return s, err
}

// inspect reads vault metadata, marking a missing file
func (a *app) inspect(path string) (*vault.Meta, error) {
	meta, err := vault.Inspect(path, a.vaultOptions()...)
	if errors.Is(err, vault.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", errNoVault, err)
	}
	return meta, err
}

// newPassword reads a password for a new vault or a password change
func (a *app) newPassword(cmd *cobra.Command, key string) ([]byte, passwordSource, error) {
	if pw := a.envPassword(key); pw != nil {
		return pw, sourceEnv, nil
	}
	if !prompt.IsTerminal(cmd.InOrStdin()) {
		return nil, sourceEnv, fmt.Errorf("%w: set %s or run in a terminal", errNoPassword, envName(key))
	}
	pw, err := prompt.PasswordConfirm("New password: ")
	return pw, sourcePrompt, err
}

// offerKeyring asks to remember a password typed at the prompt
func (a *app) offerKeyring(cmd *cobra.Command, vaultID, name string, password []byte, source passwordSource) {
	if source != sourcePrompt || keyring.Has(vaultID, name) {
		return
	}
	if !prompt.Confirm("Save password to keyring?") {
		return
	}
	if err := keyring.Save(vaultID, name, password); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", err)
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Password saved to keyring")
}

// describe turns an error into the message shown to the user
func describe(err error) string {
	switch {
	case errors.Is(err, errNameRequired):
		return "Error: user name required\nUse --name or set PASSVAULT_NAME\n"
	case errors.Is(err, vault.ErrAuthFailed):
		return "Error: wrong password or damaged vault\n"
	case errors.Is(err, errNoVault):
		return fmt.Sprintf("Error: %s\nRun 'passvault init' to create a vault\n", strings.TrimPrefix(err.Error(), errNoVault.Error()+": "))
	case errors.Is(err, vault.ErrCorruptFormat):
		return "Error: file is not a passvault vault\n"
	case errors.Is(err, os.ErrExist):
		return fmt.Sprintf("Error: %s\nUse --force to overwrite\n", err)
	default:
		return fmt.Sprintf("Error: %s\n", err)
	}
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// envName is the environment variable viper reads for a config key
func envName(key string) string {
	return "PASSVAULT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
