// Package confidence classifies a reranked result set into one of the six
// confidence tiers that drive query-pipeline routing.
package confidence

import (
	"strings"

	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/providers"
)

// Result is the outcome of Score.
type Result struct {
	Tier          model.ConfidenceTier
	TopScore      float64
	Variance      float64
	DistinctTopics int
}

// Scorer classifies reranked results into a confidence tier. Ported from
// original_source's app/services/confidence.py ConfidenceScorer, decision
// procedure unchanged.
type Scorer struct {
	tuning config.Tuning
}

// NewScorer creates a Scorer bound to a tuning snapshot.
func NewScorer(tuning config.Tuning) *Scorer {
	return &Scorer{tuning: tuning}
}

// Score classifies reranked (length <= rerank_top_k) into exactly one tier.
func (s *Scorer) Score(reranked []providers.RerankResult) Result {
	if len(reranked) == 0 {
		return Result{Tier: model.TierOffTopic, TopScore: 0}
	}

	topScore := reranked[0].Score
	if topScore < s.tuning.MinimumRelevance {
		return Result{Tier: model.TierOffTopic, TopScore: topScore}
	}

	variance := scoreVariance(reranked)
	distinctTopics := estimateTopicCount(reranked)

	if topScore >= s.tuning.CaveatThreshold && variance <= s.tuning.AmbiguityScoreVariance && distinctTopics > 1 {
		return Result{Tier: model.TierAmbiguous, TopScore: topScore, Variance: variance, DistinctTopics: distinctTopics}
	}

	var tier model.ConfidenceTier
	switch {
	case topScore >= s.tuning.AnswerThreshold:
		tier = model.TierAnswer
	case topScore >= s.tuning.CaveatThreshold:
		tier = model.TierCaveat
	case topScore >= s.tuning.DeclineThreshold:
		tier = model.TierDecline
	default:
		tier = model.TierEscalate
	}

	return Result{Tier: tier, TopScore: topScore, Variance: variance, DistinctTopics: distinctTopics}
}

// scoreVariance is the sample variance of the reranked scores. A
// single-element input defines variance as 1.0 to suppress false ambiguity.
func scoreVariance(results []providers.RerankResult) float64 {
	if len(results) <= 1 {
		return 1.0
	}

	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))

	var sqDiff float64
	for _, r := range results {
		d := r.Score - mean
		sqDiff += d * d
	}
	return sqDiff / float64(len(results)-1)
}

// estimateTopicCount groups results by the first line of their first 50
// chars as a proxy for title/section, capped at len(results).
func estimateTopicCount(results []providers.RerankResult) int {
	titles := make(map[string]struct{}, len(results))
	for _, r := range results {
		prefix := r.Text
		if len(prefix) > 50 {
			prefix = prefix[:50]
		}
		if idx := strings.IndexByte(prefix, '\n'); idx >= 0 {
			prefix = prefix[:idx]
		}
		titles[prefix] = struct{}{}
	}
	if len(titles) > len(results) {
		return len(results)
	}
	return len(titles)
}
