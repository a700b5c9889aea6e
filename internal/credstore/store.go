// Package credstore provides durable storage for the client's
// authentication credentials.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

var (
	ErrNotFound = errors.New("not found")
)

// Credentials is the persisted credential set: the short-lived access
// token, the durable refresh token, and the last known user profile.
// It is written and cleared as a unit.
type Credentials struct {
	AccessToken  string             `json:"access_token,omitempty"`
	RefreshToken string             `json:"refresh_token,omitempty"`
	User         *types.UserProfile `json:"user,omitempty"`
}

// Store persists credentials as a single JSON file.
type Store struct {
	path string
	lock *FileLock
}

// New creates a Store backed by the given file path.
func New(path string) *Store {
	return &Store{
		path: path,
		lock: NewFileLock(path),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored credentials. Returns ErrNotFound when nothing
// has been stored.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Save stores credentials with file locking. The write is atomic:
// a temp file is written, then renamed over the target.
func (s *Store) Save(creds *Credentials) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer s.lock.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Clear removes all stored credentials. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	return nil
}

// Exists reports whether any credentials are stored.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
