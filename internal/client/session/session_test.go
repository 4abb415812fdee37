package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSetGetClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := NewStore(path)

	if _, err := s.Credential(); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("want ErrNoCredential, got %v", err)
	}
	if err := s.SetCredential("tok-123"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Credential()
	if err != nil || got != "tok-123" {
		t.Fatalf("credential: %q %v", got, err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Credential(); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("want ErrNoCredential after clear, got %v", err)
	}
	// clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
}

func TestPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := NewStore(path).SetCredential("tok-abc"); err != nil {
		t.Fatal(err)
	}
	// a fresh Store stands in for a restarted process
	got, err := NewStore(path).Credential()
	if err != nil || got != "tok-abc" {
		t.Fatalf("after restart: %q %v", got, err)
	}
}

func TestEmptyCredentialRejected(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "token"))
	if err := s.SetCredential(""); err == nil {
		t.Fatalf("expected error for empty credential")
	}
}

func TestStorageUnavailableFailsClosed(t *testing.T) {
	dir := t.TempDir()
	// a directory at the token path makes reads and writes fail
	path := filepath.Join(dir, "token")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	if _, err := s.Credential(); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
	if err := s.SetCredential("tok"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable on write, got %v", err)
	}
}

func TestDefaultPathUnderHome(t *testing.T) {
	if DefaultPath() == "" {
		t.Fatal("empty default path")
	}
}
