// Package session holds the opaque authentication credential issued at
// login and supplies it to every authenticated call. The credential is
// persisted to a 0600 file so it survives process restarts.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNoCredential means no credential has been stored (or it was cleared).
	ErrNoCredential = errors.New("no session credential, please login")
	// ErrStorageUnavailable wraps storage-layer failures. Callers must treat
	// it as "no credential": gating never fails open into an authenticated state.
	ErrStorageUnavailable = errors.New("session storage unavailable")
)

// DefaultPath returns the default credential file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".evoting_token")
}

// Store is a durable single-credential store with an in-memory
// read-through view. At most one credential is active at a time.
type Store struct {
	mu     sync.Mutex
	path   string
	cached string
	loaded bool
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// SetCredential persists the credential, then updates the in-memory view.
// The write happens before the method reports success so a crash in
// between leaves the user unauthenticated rather than falsely logged in.
func (s *Store) SetCredential(credential string) error {
	if credential == "" {
		return errors.New("empty credential")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(credential), 0600); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	s.cached = credential
	s.loaded = true
	return nil
}

// Credential returns the most recently persisted credential. Immediately
// after a restart it reads through to disk. A missing file is
// ErrNoCredential; any other storage failure is ErrStorageUnavailable.
func (s *Store) Credential() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		if s.cached == "" {
			return "", ErrNoCredential
		}
		return s.cached, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cached = ""
			s.loaded = true
			return "", ErrNoCredential
		}
		return "", errors.Join(ErrStorageUnavailable, err)
	}
	s.cached = strings.TrimSpace(string(b))
	s.loaded = true
	if s.cached == "" {
		return "", ErrNoCredential
	}
	return s.cached, nil
}

// Clear destroys the stored credential. Removing an already-absent
// credential is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Join(ErrStorageUnavailable, err)
	}
	s.cached = ""
	s.loaded = true
	return nil
}
