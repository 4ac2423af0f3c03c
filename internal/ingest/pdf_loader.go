package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sophia-systems/csbot/internal/model"
)

// PDFLoader extracts text from a PDF file, joining each page's text with a
// blank-line separator and recording the number of pages that yielded text.
// Grounded in _examples/bbiangul-go-reason's parser/pdf.go use of
// github.com/ledongthuc/pdf; simplified to spec §4.1's requirement (text
// plus page count) since image extraction has no spec analog.
type PDFLoader struct {
	BaseDir string
}

func (l *PDFLoader) SupportedSourceType() model.SourceType { return model.SourcePDF }

func (l *PDFLoader) Load(sourceURI string) ([]LoadedDocument, error) {
	path, err := ValidatePath(sourceURI, l.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("ingest.PDFLoader.Load: %w", err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest.PDFLoader.Load: opening %s: %w", path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var blocks []string
	pageCount := 0
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, text)
		pageCount++
	}

	joined := strings.Join(blocks, "\n\n")
	title := filepath.Base(strings.TrimSuffix(path, filepath.Ext(path)))

	return []LoadedDocument{{
		Text:      joined,
		SourceURI: sourceURI,
		Metadata: map[string]any{
			"title":      title,
			"filename":   filepath.Base(path),
			"page_count": pageCount,
		},
	}}, nil
}
