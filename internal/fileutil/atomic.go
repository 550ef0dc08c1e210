// Package fileutil writes files so readers never observe a partial write.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// DirPerm is used for parent directories created by WriteAtomic.
const DirPerm os.FileMode = 0o750

// WriteAtomic replaces path with data. The content is written to a sibling
// temp file, synced, then renamed over path, creating the parent directory
// when it does not exist yet.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := writeAndClose(tmp, data, perm); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from the caller's config home
		return fmt.Errorf("renaming temp file: %w", err)
	}
	syncDir(dir)
	return nil
}

func writeAndClose(f *os.File, data []byte, perm os.FileMode) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	return nil
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir is derived from the target path
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
