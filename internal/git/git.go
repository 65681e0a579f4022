package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status describes the vault file as seen by git
type Status struct {
	IsRepo  bool
	Tracked bool
	Ignored bool
	Dirty   bool // tracked with uncommitted changes
}

func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

// IsRepo checks if dir is inside a git work tree
func IsRepo(dir string) bool {
	_, err := run(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// Check inspects the vault file at path
func Check(path string) (*Status, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	dir, file := filepath.Split(abs)

	status := &Status{}
	if !IsRepo(dir) {
		return status, nil
	}
	status.IsRepo = true

	if out, err := run(dir, "ls-files", "--", file); err == nil && out != "" {
		status.Tracked = true
	}
	// check-ignore exits 0 when the path is ignored
	if _, err := run(dir, "check-ignore", "-q", "--", file); err == nil {
		status.Ignored = true
	}
	if status.Tracked {
		if out, err := run(dir, "status", "--porcelain", "--", file); err == nil && out != "" {
			status.Dirty = true
		}
	}
	return status, nil
}

// Format renders the status for `passvault status`
func Format(name string, status *Status) string {
	if !status.IsRepo {
		return ""
	}

	var out strings.Builder
	out.WriteString("\nGit:\n")
	switch {
	case status.Tracked && status.Dirty:
		fmt.Fprintf(&out, "   warning: %s has uncommitted changes\n", name)
	case status.Tracked:
		fmt.Fprintf(&out, "   ok: %s is tracked and committed\n", name)
	case status.Ignored:
		fmt.Fprintf(&out, "   info: %s is ignored by git\n", name)
	default:
		fmt.Fprintf(&out, "   info: %s is not tracked (run: git add %s)\n", name, name)
	}
	return out.String()
}
