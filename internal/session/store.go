package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// tokenKey is the fixed key the access token is stored under.
const tokenKey = "token"

// ErrNoToken is returned when no token has been stored.
var ErrNoToken = errors.New("no access token stored")

// Store persists the access token in a small JSON file.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path. The file is created
// on first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored token.
func (s *Store) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token store: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("parse token store %s: %w", s.path, err)
	}
	tok := data[tokenKey]
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// Save writes the token atomically.
func (s *Store) Save(token string) error {
	raw, err := json.MarshalIndent(map[string]string{tokenKey: token}, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(s.path)); err != nil {
		return err
	}

	// Write to a temp file first, then rename for atomicity.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token store: %w", err)
	}
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return nil
}
