package prompt

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/illarion/passvault/internal/secret"
)

// Editor returns the user's editor: $VISUAL, then $EDITOR, then a
// platform default
func Editor() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

// Edit writes data to a private temporary file, opens it in the editor and
// returns the edited content. The file is overwritten with zeros and
// removed afterwards.
func Edit(data []byte, pattern string) ([]byte, error) {
	editor := Editor()
	if _, err := exec.LookPath(editor); err != nil {
		return nil, fmt.Errorf("editor '%s' not found: %w\nPlease set VISUAL or EDITOR environment variable", editor, err)
	}

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	defer scrub(name)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	cmd := exec.Command(editor, name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
		}
		return nil, err
	}

	edited, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}
	return edited, nil
}

// scrub zeroes a temporary file before removing it
func scrub(name string) {
	if info, err := os.Stat(name); err == nil {
		zeros := make([]byte, info.Size())
		_ = os.WriteFile(name, zeros, 0600)
		secret.Wipe(zeros)
	}
	os.Remove(name)
}
