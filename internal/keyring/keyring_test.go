package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSaveGetDelete(t *testing.T) {
	keyring.MockInit()

	if Has("vault-1", "alice") {
		t.Fatal("Expected empty keyring")
	}
	if _, err := Get("vault-1", "alice"); !errors.Is(err, ErrNotStored) {
		t.Errorf("Expected ErrNotStored, got %v", err)
	}

	if err := Save("vault-1", "alice", []byte("correct horse")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Get("vault-1", "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "correct horse" {
		t.Errorf("Get returned %q", got)
	}

	// Entries are per vault and per user
	if Has("vault-2", "alice") || Has("vault-1", "bob") {
		t.Error("Password leaked to another vault or user")
	}

	if err := Delete("vault-1", "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := Delete("vault-1", "alice"); !errors.Is(err, ErrNotStored) {
		t.Errorf("Expected ErrNotStored on second delete, got %v", err)
	}
}
