package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sophia-systems/csbot/internal/model"
)

var headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)

// ExtractMetadata builds the metadata map attached to each chunk: char/word
// counts, heading count, and a title heuristic. Merged with the loader's own
// metadata by the caller. Ported from original_source's ingestion/
// processors/metadata_extractor.py.
func ExtractMetadata(text, sourceURI string, sourceType model.SourceType, loaderMetadata map[string]any) map[string]any {
	md := make(map[string]any, len(loaderMetadata)+4)
	for k, v := range loaderMetadata {
		md[k] = v
	}
	md["source_type"] = string(sourceType)
	md["source_uri"] = sourceURI
	md["char_count"] = len(text)
	md["word_count"] = len(strings.Fields(text))
	md["heading_count"] = len(headingRe.FindAllString(text, -1))

	if _, ok := md["title"]; !ok {
		md["title"] = titleFromPath(sourceURI)
	}

	return md
}

func titleFromPath(sourceURI string) string {
	stem := strings.TrimSuffix(filepath.Base(sourceURI), filepath.Ext(sourceURI))
	stem = strings.ReplaceAll(stem, "-", " ")
	stem = strings.ReplaceAll(stem, "_", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
