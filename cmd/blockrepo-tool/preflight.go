package main

import (
	"fmt"
	"os"
)

// validateDataDir checks that datadir exists (creating it if necessary)
// and is writable, so a later BeginRw doesn't fail deep inside the KV
// backend with a less actionable error.
func validateDataDir(datadir string) error {
	info, err := os.Stat(datadir)
	if os.IsNotExist(err) {
		return os.MkdirAll(datadir, 0o700)
	}
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", datadir)
	}

	probe := datadir + "/.write-probe"
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", datadir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

// validateSchemaCompatible is a placeholder pre-flight hook: a real
// deployment would peek at the stored schema-version marker here before
// opening a full read-write MDBX environment against it, to fail fast with
// a clear message instead of via Initialize's ErrSchemaMismatch deep in
// the repository. Left permissive (the repository's own Initialize check
// is authoritative) until a second on-disk format exists to validate
// against.
func validateSchemaCompatible(datadir string) error {
	return nil
}
