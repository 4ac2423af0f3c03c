package ingest

import "strings"

// Chunk is one segment produced by the chunker, carrying the char offsets
// of the cleaned source text it was drawn from.
type Chunk struct {
	Text      string
	Index     int
	CharStart int
	CharEnd   int
	Metadata  map[string]any
}

var sentenceBreaks = []string{". ", ".\n", "! ", "? "}

// ChunkText segments cleaned text into overlapping passages honoring
// paragraph/sentence boundaries. Ported from original_source's
// ingestion/chunkers/fixed_size_chunker.py window-advance algorithm; the
// teacher's own chunker.go (token-estimate based) only grounds the general
// paragraph-first/sentence-fallback style, not this exact procedure.
func ChunkText(text string, metadata map[string]any, chunkSize, overlap int) []Chunk {
	var chunks []Chunk
	if len(text) == 0 {
		return chunks
	}

	start := 0
	idx := 0
	for start < len(text) {
		end := start + chunkSize
		if end < len(text) {
			end = snapBoundary(text, start, end, chunkSize)
		} else {
			end = len(text)
		}

		chunkText := strings.TrimSpace(text[start:end])
		if chunkText != "" {
			md := make(map[string]any, len(metadata)+2)
			for k, v := range metadata {
				md[k] = v
			}
			md["char_start"] = start
			md["char_end"] = end
			chunks = append(chunks, Chunk{
				Text:      chunkText,
				Index:     idx,
				CharStart: start,
				CharEnd:   end,
				Metadata:  md,
			})
			idx++
		}

		nextStart := end - overlap
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
		if start >= len(text) {
			break
		}
	}

	return chunks
}

// snapBoundary attempts to move end onto a paragraph break within
// [start+chunkSize/2, end+100), failing that a sentence terminator within
// [start+chunkSize/2, end+50).
func snapBoundary(text string, start, end, chunkSize int) int {
	lowerBound := start + chunkSize/2

	parUpper := end + 100
	if parUpper > len(text) {
		parUpper = len(text)
	}
	if lowerBound < parUpper {
		if idx := lastIndexWithin(text, "\n\n", lowerBound, parUpper); idx >= 0 {
			return idx + len("\n\n")
		}
	}

	sentUpper := end + 50
	if sentUpper > len(text) {
		sentUpper = len(text)
	}
	if lowerBound < sentUpper {
		best := -1
		bestSepLen := 0
		for _, sep := range sentenceBreaks {
			if idx := lastIndexWithin(text, sep, lowerBound, sentUpper); idx >= 0 && idx > best {
				best = idx
				bestSepLen = len(sep)
			}
		}
		if best >= 0 {
			return best + bestSepLen
		}
	}

	return end
}

// lastIndexWithin returns the last index of sep within text[lo:hi), or -1.
func lastIndexWithin(text, sep string, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(text) {
		hi = len(text)
	}
	if lo >= hi {
		return -1
	}
	window := text[lo:hi]
	idx := strings.LastIndex(window, sep)
	if idx < 0 {
		return -1
	}
	return lo + idx
}
