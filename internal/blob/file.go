package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"errors"
)

// File stores the blob as a local file. Writes go through a temp file and
// rename so a crash mid-write never truncates the previous blob.
type File struct {
	path string
}

// NewFile creates a file-backed store at path. Parent directories are
// created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.path, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", f.path, err)
	}
	return data, nil
}

func (f *File) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create blob directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace blob %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Location() string { return f.path }
