// Package retrieval implements the dual-modality retrieval primitives
// and their fusion.
package retrieval

import "sort"

// Record is one hit from a semantic or keyword search, or a fused result
// once RRF has run.
type Record struct {
	ChunkID  string
	Text     string
	Score    float64
	Metadata map[string]any
	RRFScore float64
}

// Fuse merges any number of ranked lists by reciprocal-rank scoring (spec
// §4.4). Ported from original_source's rag_pipeline.reciprocal_rank_fusion:
// for each list and each item at 0-based rank r, accumulate
// score[id] += 1/(k+r+1); output sorted by cumulative score descending,
// ties broken by first appearance across inputs.
func Fuse(k int, lists ...[]Record) []Record {
	scores := make(map[string]float64)
	items := make(map[string]Record)
	var order []string

	for _, list := range lists {
		for rank, item := range list {
			if _, seen := items[item.ChunkID]; !seen {
				order = append(order, item.ChunkID)
				items[item.ChunkID] = item
			}
			scores[item.ChunkID] += 1.0 / float64(k+rank+1)
		}
	}

	firstSeen := make(map[string]int, len(order))
	for i, id := range order {
		firstSeen[id] = i
	}

	out := make([]Record, 0, len(order))
	for _, id := range order {
		item := items[id]
		item.RRFScore = scores[id]
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return firstSeen[out[i].ChunkID] < firstSeen[out[j].ChunkID]
	})

	return out
}
