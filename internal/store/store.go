// Package store persists feeder payloads, one file per feeder, in the output
// directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes per-feeder time series files
type Store struct {
	dir string
}

// New creates the output directory if needed and returns a store for it
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory path
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the output file path for a feeder
func (s *Store) Path(feederID string) string {
	return filepath.Join(s.dir, feederID+".csv")
}

// Save writes the payload for a feeder, byte-for-byte, overwriting any prior
// file for the same feeder. The write goes through a temp file and rename so
// an interrupted run never leaves a partial csv behind.
func (s *Store) Save(feederID string, payload []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+feederID+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing payload for %s: %w", feederID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file for %s: %w", feederID, err)
	}

	if err := os.Rename(tmpName, s.Path(feederID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("saving %s: %w", feederID, err)
	}

	return nil
}

// Has reports whether a file already exists for the feeder
func (s *Store) Has(feederID string) bool {
	_, err := os.Stat(s.Path(feederID))
	return err == nil
}

// Existing returns the feeder IDs that already have files in the output
// directory, so an interrupted run can resume where it left off
func (s *Store) Existing() (map[string]bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	existing := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasPrefix(name, ".") {
			continue
		}
		existing[strings.TrimSuffix(name, ".csv")] = true
	}

	return existing, nil
}
