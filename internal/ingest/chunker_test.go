package ingest

import "testing"

func TestChunkText_Empty(t *testing.T) {
	chunks := ChunkText("", nil, 512, 64)
	if len(chunks) != 0 {
		t.Fatalf("len(chunks) = %d, want 0", len(chunks))
	}
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	text := "This is a short document that fits in one chunk."
	chunks := ChunkText(text, nil, 512, 64)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, text)
	}
	if chunks[0].CharStart != 0 || chunks[0].CharEnd != len(text) {
		t.Errorf("offsets = [%d,%d), want [0,%d)", chunks[0].CharStart, chunks[0].CharEnd, len(text))
	}
}

func TestChunkText_CoversWholeText(t *testing.T) {
	var sb []byte
	for i := 0; i < 50; i++ {
		sb = append(sb, []byte("The quick brown fox jumps over the lazy dog. ")...)
	}
	text := string(sb)

	chunks := ChunkText(text, nil, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Chunks are a covering partition of [0, len(text)) with overlap: each
	// chunk after the first must start before the previous chunk's end.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].CharStart > chunks[i-1].CharEnd {
			t.Errorf("gap between chunk %d (end=%d) and chunk %d (start=%d)",
				i-1, chunks[i-1].CharEnd, i, chunks[i].CharStart)
		}
	}
	if chunks[len(chunks)-1].CharEnd != len(text) {
		t.Errorf("last chunk end = %d, want %d", chunks[len(chunks)-1].CharEnd, len(text))
	}
}

func TestChunkText_IndicesAreSequential(t *testing.T) {
	text := ""
	for i := 0; i < 30; i++ {
		text += "word "
	}
	chunks := ChunkText(text, nil, 40, 10)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
	}
}

func TestChunkText_MetadataCarriedAndOffsetsAttached(t *testing.T) {
	text := "paragraph one.\n\nparagraph two is a good bit longer than the first one here."
	meta := map[string]any{"title": "doc"}
	chunks := ChunkText(text, meta, 20, 5)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for _, c := range chunks {
		if c.Metadata["title"] != "doc" {
			t.Errorf("metadata title not carried: %v", c.Metadata)
		}
		if c.Metadata["char_start"] != c.CharStart || c.Metadata["char_end"] != c.CharEnd {
			t.Errorf("metadata offsets mismatch: %v vs [%d,%d)", c.Metadata, c.CharStart, c.CharEnd)
		}
	}
}

func TestChunkText_SnapsToParagraphBreak(t *testing.T) {
	first := "In the beginning there was light and darkness intermixed loosely."
	second := "Then came structure, order, and the first few stars ignited softly."
	text := first + "\n\n" + second
	chunks := ChunkText(text, nil, len(first)-10, 0)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].CharEnd != len(first)+2 {
		t.Errorf("first chunk end = %d, want snap to paragraph break at %d", chunks[0].CharEnd, len(first)+2)
	}
}
