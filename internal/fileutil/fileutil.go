// Package fileutil provides the atomic file replacement used by every store
// that persists JSON state to disk.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReplaceAtomic writes data to path through a temp file in the same directory
// followed by a rename. Readers see either the old content or the new content,
// never a partial write. The parent directory is created when missing, with
// dirMode permissions.
func ReplaceAtomic(path string, data []byte, mode, dirMode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("stage %s: %w", path, err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup(fmt.Errorf("stage %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
