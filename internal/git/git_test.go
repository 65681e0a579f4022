package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func gitInit(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		if _, err := run(dir, args...); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
	return dir
}

func TestCheckOutsideRepo(t *testing.T) {
	status, err := Check(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status.IsRepo {
		t.Skip("temp dir is inside a git repository")
	}
	if Format("vault.db", status) != "" {
		t.Error("Expected no output outside a repository")
	}
}

func TestCheckTracking(t *testing.T) {
	dir := gitInit(t)
	path := filepath.Join(dir, "vault.db")
	if err := os.WriteFile(path, []byte("v1"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	status, err := Check(path)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !status.IsRepo || status.Tracked {
		t.Errorf("Expected untracked file in repo, got %+v", status)
	}
	if !strings.Contains(Format("vault.db", status), "not tracked") {
		t.Error("Expected 'not tracked' hint")
	}

	for _, args := range [][]string{{"add", "vault.db"}, {"commit", "-q", "-m", "add vault"}} {
		if _, err := run(dir, args...); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
	status, _ = Check(path)
	if !status.Tracked || status.Dirty {
		t.Errorf("Expected committed file, got %+v", status)
	}

	if err := os.WriteFile(path, []byte("v2"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	status, _ = Check(path)
	if !status.Dirty {
		t.Errorf("Expected dirty file, got %+v", status)
	}
}

func TestCheckIgnored(t *testing.T) {
	dir := gitInit(t)
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.db\n"), 0600); err != nil {
		t.Fatalf("Failed to write .gitignore: %v", err)
	}
	path := filepath.Join(dir, "vault.db")
	if err := os.WriteFile(path, []byte("v1"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	status, err := Check(path)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !status.Ignored {
		t.Errorf("Expected ignored file, got %+v", status)
	}
}
