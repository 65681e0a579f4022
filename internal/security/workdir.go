// Package security confines payload import and export files to a working
// directory using os.Root, so an entry can never be written through a path
// that escapes it.
package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// FilePerm is the mode of exported payload files
const FilePerm = 0600

// Workdir performs file operations confined to one directory
type Workdir struct {
	root *os.Root
	path string
}

// Open opens dir as a confinement root
func Open(dir string) (*Workdir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open working directory: %w", err)
	}
	return &Workdir{root: root, path: abs}, nil
}

// Close releases the root
func (w *Workdir) Close() error {
	return w.root.Close()
}

// Path returns the absolute directory path
func (w *Workdir) Path() string {
	return w.path
}

// Resolve validates a user-supplied path and returns it cleaned and
// relative to the working directory
func (w *Workdir) Resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	clean := filepath.Clean(userPath)
	rel, err := filepath.Rel(w.path, filepath.Join(w.path, clean))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}
	return rel, nil
}

// ReadFile reads a file inside the working directory
func (w *Workdir) ReadFile(userPath string) ([]byte, error) {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	f, err := w.root.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// mkdirAll creates the parents of rel one component at a time
func (w *Workdir) mkdirAll(rel string) error {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	current := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if err := w.root.Mkdir(current, 0700); err != nil && !errors.Is(err, os.ErrExist) {
			return err
		}
	}
	return nil
}

// WriteFile writes data to a file inside the working directory with mode
// FilePerm, creating parent directories. An existing file is only
// replaced when overwrite is set.
func (w *Workdir) WriteFile(userPath string, data []byte, overwrite bool) error {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return err
	}
	if err := w.mkdirAll(rel); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := w.root.OpenFile(rel, flag, FilePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Stat stats a file inside the working directory
func (w *Workdir) Stat(userPath string) (os.FileInfo, error) {
	rel, err := w.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	return w.root.Stat(rel)
}
