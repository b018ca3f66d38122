package resolver

import (
	"fmt"
	"os"
	"path/filepath"
)

// ScriptFile is one candidate file found at a Location, with its content
// already read into memory — candidates are few and small relative to an
// engine run, so there is no benefit to lazy reads here.
type ScriptFile struct {
	Name    string // base filename, e.g. "V1_2__add_users.sql"
	Content []byte
}

// Location is an abstract source of migration candidates. The core depends
// only on this interface, so a future embed.FS-backed or classpath-style
// source can be added without changing the resolution algorithm; this
// implementation ships DirLocation, backed by the local filesystem.
type Location interface {
	// Describe returns a human-readable identifier used in warnings and logs.
	Describe() string
	// Files returns every file found at this location. A location that does
	// not exist returns (nil, ErrLocationMissing) so the caller can warn
	// instead of failing the whole resolve.
	Files() ([]ScriptFile, error)
}

// ErrLocationMissing indicates a configured location does not exist.
var ErrLocationMissing = fmt.Errorf("migration location does not exist")

// DirLocation is a Location backed by a directory on the local filesystem.
type DirLocation string

// Describe implements Location.
func (d DirLocation) Describe() string {
	return string(d)
}

// Files implements Location.
func (d DirLocation) Files() ([]ScriptFile, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLocationMissing
		}

		return nil, fmt.Errorf("reading location %s: %w", d, err)
	}

	var files []ScriptFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		content, err := os.ReadFile(filepath.Join(string(d), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		files = append(files, ScriptFile{Name: entry.Name(), Content: content})
	}

	return files, nil
}
