// Package prompt reads passwords and choices from the terminal and hands
// payloads to the user's editor.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/passvault/internal/crypto"
	"golang.org/x/term"
)

var ErrMismatch = errors.New("passwords do not match")

// Password reads a password from the terminal without echoing. The prompt
// goes to stderr so stdout stays clean for payloads.
func Password(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// PasswordConfirm reads a password twice and ensures both match
func PasswordConfirm(prompt string) ([]byte, error) {
	first, err := Password(prompt)
	if err != nil {
		return nil, err
	}

	second, err := Password("Confirm password: ")
	if err != nil {
		crypto.ClearBytes(first)
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		crypto.ClearBytes(first)
		return nil, ErrMismatch
	}
	return first, nil
}

// IsTerminal reports whether r is an interactive terminal
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
