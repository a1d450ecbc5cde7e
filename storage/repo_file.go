package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/cmp-client/internal/errors"
)

// FileRepo persists all keys as one JSON object. Every Set and Delete rewrites
// the file through a temp file and rename, so a crash never leaves a torn record.
type FileRepo struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo opens (or lazily creates) the JSON file at path.
func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("[NewFileRepo] path is required")
	}

	r := &FileRepo{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("[NewFileRepo] reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.values); err != nil {
		return nil, fmt.Errorf("[NewFileRepo] decoding %s: %w", path, err)
	}
	if r.values == nil {
		r.values = make(map[string]string)
	}
	return r, nil
}

func (r *FileRepo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.values[key]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrNotFound, "[FileRepo Get] key %q", key)
	}
	return v, nil
}

func (r *FileRepo) Set(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("[FileRepo Set] key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.values[key]
	r.values[key] = value
	if err := r.flush(); err != nil {
		if had {
			r.values[key] = prev
		} else {
			delete(r.values, key)
		}
		return err
	}
	return nil
}

func (r *FileRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.values[key]
	if !had {
		return nil
	}
	delete(r.values, key)
	if err := r.flush(); err != nil {
		r.values[key] = prev
		return err
	}
	return nil
}

func (r *FileRepo) Close() error {
	return nil
}

func (r *FileRepo) flush() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("[FileRepo flush] creating directory: %w", err)
	}

	data, err := json.MarshalIndent(r.values, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileRepo flush] encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".session-*")
	if err != nil {
		return fmt.Errorf("[FileRepo flush] creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo flush] writing: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo flush] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileRepo flush] closing: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("[FileRepo flush] renaming: %w", err)
	}
	return nil
}
