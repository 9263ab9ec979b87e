package ioutils

import (
	"context"
	"errors"
	"fmt"
	"os"
)

const (
	// DefaultFilePermissions is used for every file the downloader creates.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultFolderPermissions is used for every directory the downloader creates.
	DefaultFolderPermissions os.FileMode = 0o755
)

// EnsureDir creates path and its parents. created is false when the
// directory was already there.
func EnsureDir(ctx context.Context, path string) (created bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("%s exists and is not a directory", path)
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(path, DefaultFolderPermissions); err != nil {
		return false, fmt.Errorf("create directory %s: %w", path, err)
	}

	return true, nil
}

// FileSize returns the size of a regular file. exists is false when
// nothing is at path.
func FileSize(path string) (size int64, exists bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return 0, true, fmt.Errorf("%s is not a regular file", path)
	}

	return info.Size(), true, nil
}

// CreateFile creates or truncates path for writing.
func CreateFile(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	return f, nil
}

// WriteFile writes data to path, replacing any previous content.
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
