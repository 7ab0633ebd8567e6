// Package storage implements domain.BlobStore on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/martiv/eshop-api/internal/domain"
)

// Store persists media files under a single root directory. All keys are
// store-relative, forward-slash separated paths; the store rejects any key
// that would resolve outside the root.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute media root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Save(ctx context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create folder for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		// A missing file means the deletion is already satisfied.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (s *Store) DeleteTree(ctx context.Context, dir string) error {
	full, err := s.resolve(dir)
	if err != nil {
		return err
	}
	if full == s.root {
		return fmt.Errorf("%w: refusing to delete media root", domain.ErrInvalidInput)
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("delete tree %s: %w", dir, err)
	}
	return nil
}

// resolve maps a store-relative path onto the filesystem and verifies it
// stays within the root.
func (s *Store) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(path, "/")))
	if cleaned == "." || cleaned == "" {
		return s.root, nil
	}
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes media root", domain.ErrInvalidInput, path)
	}
	return full, nil
}

var _ domain.BlobStore = (*Store)(nil)
