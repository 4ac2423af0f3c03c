package ingest

import (
	"testing"

	"github.com/sophia-systems/csbot/internal/model"
)

func TestExtractMetadata_CountsAndTitleFallback(t *testing.T) {
	text := "# Heading One\n\nSome body text here with six words.\n\n## Sub"
	md := ExtractMetadata(text, "/docs/onboarding-guide.md", model.SourceMarkdown, nil)

	if md["source_type"] != string(model.SourceMarkdown) {
		t.Errorf("source_type = %v", md["source_type"])
	}
	if md["source_uri"] != "/docs/onboarding-guide.md" {
		t.Errorf("source_uri = %v", md["source_uri"])
	}
	if md["char_count"] != len(text) {
		t.Errorf("char_count = %v, want %d", md["char_count"], len(text))
	}
	if md["heading_count"] != 2 {
		t.Errorf("heading_count = %v, want 2", md["heading_count"])
	}
	if md["title"] != "Onboarding Guide" {
		t.Errorf("title = %v, want %q", md["title"], "Onboarding Guide")
	}
}

func TestExtractMetadata_PreservesLoaderTitle(t *testing.T) {
	loaderMD := map[string]any{"title": "Explicit Title"}
	md := ExtractMetadata("body", "/docs/x.md", model.SourceMarkdown, loaderMD)
	if md["title"] != "Explicit Title" {
		t.Errorf("title = %v, want loader-provided title", md["title"])
	}
}

func TestTitleFromPath(t *testing.T) {
	cases := map[string]string{
		"report_final-v2.pdf": "Report Final V2",
		"/a/b/plain.md":        "Plain",
	}
	for path, want := range cases {
		if got := titleFromPath(path); got != want {
			t.Errorf("titleFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
