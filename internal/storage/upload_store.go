package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidLocalInput = errors.New("invalid local input")

// UploadStore writes uploaded blobs under one directory, keyed by their file name.
type UploadStore struct {
	dir string
}

func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{dir: dir}
}

func (s *UploadStore) Dir() string {
	return s.dir
}

// Check inspects a fully written upload before it replaces anything in the store.
type Check func(tmpPath string) error

// Save writes r to <dir>/<base name of suggestedName> and returns that path.
// The directory is created on demand; only a file with the same name is ever replaced,
// and only after every check has passed.
func (s *UploadStore) Save(r io.Reader, suggestedName string, checks ...Check) (string, error) {
	name := filepath.Base(strings.TrimSpace(suggestedName))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidLocalInput, suggestedName)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir failed: %v", ErrInvalidLocalInput, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file failed: %v", ErrInvalidLocalInput, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: write upload failed: %v", ErrInvalidLocalInput, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close upload failed: %v", ErrInvalidLocalInput, err)
	}
	for _, check := range checks {
		if err := check(tmp.Name()); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidLocalInput, err)
		}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: move upload failed: %v", ErrInvalidLocalInput, err)
	}
	return path, nil
}
