package ingest

import (
	"path/filepath"
	"strings"

	"github.com/sophia-systems/csbot/internal/cerrors"
)

// ValidatePath resolves sourceURI to an absolute path and, when baseDir is
// non-empty, asserts it falls within baseDir. Ported function-for-function
// from original_source's ingestion/loaders/path_validator.py.
func ValidatePath(sourceURI, baseDir string) (string, error) {
	resolved, err := filepath.Abs(sourceURI)
	if err != nil {
		return "", &cerrors.PathTraversalError{Path: sourceURI}
	}
	resolved = filepath.Clean(resolved)

	if baseDir == "" {
		return resolved, nil
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", &cerrors.PathTraversalError{Path: sourceURI}
	}
	base = filepath.Clean(base)

	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &cerrors.PathTraversalError{Path: sourceURI}
	}

	return resolved, nil
}
