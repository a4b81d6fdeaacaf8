package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Purge removes every entry of dir, directories recursively. A regular file named
// sentinel directly inside dir is left in place; an empty sentinel keeps nothing.
// A missing dir is not an error, so Purge can be repeated.
func Purge(dir, sentinel string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var errs []error
	for _, e := range entries {
		if sentinel != "" && e.Name() == sentinel && !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
