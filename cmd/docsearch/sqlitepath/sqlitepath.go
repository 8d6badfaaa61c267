// Package sqlitepath locates the SQLite database used by the sqlite
// document store.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the database created inside the .docsearch/ directory
// when no existing database is found.
const DefaultFileName = "docsearch.sqlite"

// ResolveSQLitePath returns the database path in this order: override,
// an existing database in a well-known location, then DefaultFileName
// inside dotDir.
func ResolveSQLitePath(override, dotDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if dotDir == "" {
		return "", errors.New("could not find a docsearch SQLite database; pass --sqlite")
	}
	return filepath.Join(dotDir, DefaultFileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		filepath.Join(".docsearch", DefaultFileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".docsearch", DefaultFileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "docsearch", DefaultFileName),
		}, candidates...)
	}

	return candidates
}
