// Package ingest implements the loader, cleaner, and chunker stages of the
// ingestion pipeline.
package ingest

import (
	"fmt"

	"github.com/sophia-systems/csbot/internal/model"
)

// LoadedDocument is the uniform result of any Loader.
type LoadedDocument struct {
	Text      string
	Metadata  map[string]any
	SourceURI string
}

// Loader extracts one or more LoadedDocuments from a source_uri.
type Loader interface {
	Load(sourceURI string) ([]LoadedDocument, error)
	SupportedSourceType() model.SourceType
}

// Registry resolves a Loader by source type, mirroring the teacher's
// package-level registration pattern (internal/service/parser.go's
// extension-to-handler dispatch) generalized to spec's three source types.
type Registry struct {
	loaders map[model.SourceType]Loader
}

// NewRegistry builds a Registry from the given loaders.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{loaders: make(map[model.SourceType]Loader, len(loaders))}
	for _, l := range loaders {
		r.loaders[l.SupportedSourceType()] = l
	}
	return r
}

// Get resolves the Loader for sourceType.
func (r *Registry) Get(sourceType model.SourceType) (Loader, error) {
	l, ok := r.loaders[sourceType]
	if !ok {
		return nil, fmt.Errorf("ingest.Registry.Get: no loader registered for source type %q", sourceType)
	}
	return l, nil
}
