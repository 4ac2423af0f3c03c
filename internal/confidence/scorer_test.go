package confidence

import (
	"testing"

	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/providers"
)

func newTestScorer() *Scorer {
	return NewScorer(config.DefaultTuning())
}

func result(score float64, text string) providers.RerankResult {
	if text == "" {
		text = "some text"
	}
	return providers.RerankResult{Score: score, Text: text}
}

func TestScore_EmptyResultsReturnsOffTopic(t *testing.T) {
	got := newTestScorer().Score(nil)
	if got.Tier != model.TierOffTopic {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierOffTopic)
	}
	if got.TopScore != 0.0 {
		t.Errorf("TopScore = %v, want 0.0", got.TopScore)
	}
}

func TestScore_HighScoreReturnsAnswer(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.92, ""), result(0.85, "")})
	if got.Tier != model.TierAnswer {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierAnswer)
	}
}

func TestScore_ModerateScoreReturnsCaveat(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.70, ""), result(0.40, "")})
	if got.Tier != model.TierCaveat {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierCaveat)
	}
}

func TestScore_LowScoreReturnsDecline(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.40, ""), result(0.30, "")})
	if got.Tier != model.TierDecline {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierDecline)
	}
}

func TestScore_VeryLowScoreReturnsEscalate(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.20, ""), result(0.15, "")})
	if got.Tier != model.TierEscalate {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierEscalate)
	}
}

func TestScore_BelowMinimumReturnsOffTopic(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.10, "")})
	if got.Tier != model.TierOffTopic {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierOffTopic)
	}
}

func TestScore_CustomThresholds(t *testing.T) {
	tuning := config.DefaultTuning()
	tuning.AnswerThreshold = 0.95
	tuning.CaveatThreshold = 0.80
	scorer := NewScorer(tuning)

	got := scorer.Score([]providers.RerankResult{result(0.90, ""), result(0.50, "")})
	if got.Tier != model.TierCaveat {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierCaveat)
	}
}

// TestScore_AmbiguousScenario reproduces spec §8 scenario 4: three results
// with scores [0.70, 0.69, 0.68] (variance <= 0.05) and distinct topic
// prefixes yield AMBIGUOUS.
func TestScore_AmbiguousScenario(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{
		result(0.70, "Lint trap maintenance guide"),
		result(0.69, "Water filter replacement steps"),
		result(0.68, "Door latch adjustment procedure"),
	})
	if got.Tier != model.TierAmbiguous {
		t.Errorf("Tier = %v, want %v (variance=%f, topics=%d)", got.Tier, model.TierAmbiguous, got.Variance, got.DistinctTopics)
	}
}

// TestScore_AllScoresEqualBelowMinimumRelevance reproduces spec §8
// boundary: all reranked scores equal and below minimum_relevance yields
// OFF_TOPIC regardless of low variance.
func TestScore_AllScoresEqualBelowMinimumRelevance(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{
		result(0.10, "a"), result(0.10, "b"), result(0.10, "c"),
	})
	if got.Tier != model.TierOffTopic {
		t.Errorf("Tier = %v, want %v", got.Tier, model.TierOffTopic)
	}
}

func TestScore_SingleResultVarianceIsOne(t *testing.T) {
	got := newTestScorer().Score([]providers.RerankResult{result(0.70, "single")})
	if got.Variance != 1.0 {
		t.Errorf("Variance = %f, want 1.0 for a single-element input", got.Variance)
	}
}

func TestScore_IsTotal(t *testing.T) {
	tiers := map[model.ConfidenceTier]bool{}
	for _, score := range []float64{0.0, 0.1, 0.2, 0.4, 0.6, 0.85, 0.95, 1.0} {
		got := newTestScorer().Score([]providers.RerankResult{result(score, "x")})
		tiers[got.Tier] = true
	}
	if len(tiers) == 0 {
		t.Fatal("expected at least one tier to be reachable")
	}
}
