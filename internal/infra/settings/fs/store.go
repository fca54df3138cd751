// Package fs implements the simple synchronous storage collaborator as one
// file per key under a root directory. It holds the fallback mirror and a
// few scalar settings, never bulk data.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a filesystem-backed settings store.
type Store struct {
	root string
}

// NewStore returns a store rooted at path, creating it if needed. An empty
// path defaults to ./piececore-settings.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "./piececore-settings"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create settings root: %w", err)
	}
	return &Store{root: root}, nil
}

// sanitizeKey forbids traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, k), nil
}

// GetItem returns the stored string for key. Missing or unreadable values
// read as absent.
func (s *Store) GetItem(key string) (string, bool) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SetItem stores value under key.
func (s *Store) SetItem(key, value string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// RemoveItem deletes the value stored under key.
func (s *Store) RemoveItem(key string) {
	path, err := s.pathFor(key)
	if err != nil {
		return
	}
	_ = os.Remove(path)
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }
