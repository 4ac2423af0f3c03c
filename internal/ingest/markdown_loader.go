package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sophia-systems/csbot/internal/model"
)

var h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// MarkdownLoader reads a Markdown file from disk, extracting the title from
// the first level-1 heading (falling back to the filename). Grounded in
// original_source's ingestion/loaders/markdown_loader.py.
type MarkdownLoader struct {
	BaseDir string
}

func (l *MarkdownLoader) SupportedSourceType() model.SourceType { return model.SourceMarkdown }

func (l *MarkdownLoader) Load(sourceURI string) ([]LoadedDocument, error) {
	path, err := ValidatePath(sourceURI, l.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("ingest.MarkdownLoader.Load: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest.MarkdownLoader.Load: %w", err)
	}

	text := string(data)
	title := filepath.Base(strings.TrimSuffix(path, filepath.Ext(path)))
	if m := h1Re.FindStringSubmatch(text); len(m) == 2 {
		title = strings.TrimSpace(m[1])
	}

	return []LoadedDocument{{
		Text:      text,
		SourceURI: sourceURI,
		Metadata: map[string]any{
			"title":    title,
			"filename": filepath.Base(path),
		},
	}}, nil
}
