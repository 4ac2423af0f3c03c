package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sophia-systems/csbot/internal/model"
)

func TestMarkdownLoader_ExtractsH1Title(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	content := "# Getting Started\n\nWelcome to the docs."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &MarkdownLoader{BaseDir: dir}
	docs, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len(docs) = %d, want 1", len(docs))
	}
	if docs[0].Metadata["title"] != "Getting Started" {
		t.Errorf("title = %v, want %q", docs[0].Metadata["title"], "Getting Started")
	}
	if docs[0].Text != content {
		t.Errorf("text mismatch")
	}
}

func TestMarkdownLoader_FallsBackToFilenameTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no-heading.md")
	if err := os.WriteFile(path, []byte("just a paragraph"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &MarkdownLoader{BaseDir: dir}
	docs, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if docs[0].Metadata["title"] != "no-heading" {
		t.Errorf("title = %v, want %q", docs[0].Metadata["title"], "no-heading")
	}
}

func TestMarkdownLoader_RejectsPathOutsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	l := &MarkdownLoader{BaseDir: dir}
	if _, err := l.Load(filepath.Join(dir, "..", "outside.md")); err == nil {
		t.Fatal("expected path traversal error")
	}
}

func TestMarkdownLoader_SupportedSourceType(t *testing.T) {
	l := &MarkdownLoader{}
	if l.SupportedSourceType() != model.SourceMarkdown {
		t.Errorf("SupportedSourceType() = %v", l.SupportedSourceType())
	}
}
