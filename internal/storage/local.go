package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore writes files below a directory served at a public base URL.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ FileStore = (*LocalStore)(nil)

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

// Dir is the root directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, input UploadInput) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(input.Key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create upload folder: %w", err)
	}
	if err := os.WriteFile(path, input.Body, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return joinURL(s.baseURL, input.Key), nil
}

// Delete removes the file behind ref. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	key, ok := keyFromRef(s.baseURL, ref)
	if !ok {
		return ErrUnknownReference
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
