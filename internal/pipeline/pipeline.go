package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/confidence"
	"github.com/sophia-systems/csbot/internal/metrics"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/persona"
	"github.com/sophia-systems/csbot/internal/providers"
	"github.com/sophia-systems/csbot/internal/retrieval"
	"github.com/sophia-systems/csbot/internal/session"
)

// rewriteTemperature/rewriteMaxTokens bound the query-rewrite completion.
// answerTemperature/answerMaxTokens bound the generation call of step 11;
// these aren't tunable parameters, so they are fixed constants like the
// teacher's own generator.go default.
const (
	rewriteTemperature = 0.0
	rewriteMaxTokens   = 150
	answerTemperature  = 0.3
	answerMaxTokens    = 1024

	sourceTextTruncateLen  = 300
	sourcePrefixMatchLen   = 100
	rewriteContextMessages = 4
	answerContextMessages  = 6
)

const rewriteSystemPrompt = "Rewrite the user's latest question as a standalone search query. " +
	"Incorporate relevant context from the conversation. Output ONLY the rewritten query, nothing else."

// Pipeline runs the query pipeline. Grounded in the teacher's
// internal/service/pipeline.go for overall orchestration shape and slog
// logging, internal/gcpclient/genai.go for the channel-pair streaming
// pattern, and original_source's app/services/rag_pipeline.py for the
// authoritative 13-step sequencing.
type Pipeline struct {
	retriever  *retrieval.Retriever
	reranker   providers.RerankerProvider
	scorer     *confidence.Scorer
	persona    *persona.Service
	llm        providers.LLMProvider
	sessions   *session.Manager
	escalation *session.EscalationService
	tuning     *config.TuningStore
	metrics    *metrics.Metrics
}

// New creates a Pipeline. metrics may be nil; observations become no-ops.
func New(
	retriever *retrieval.Retriever,
	reranker providers.RerankerProvider,
	persona *persona.Service,
	llm providers.LLMProvider,
	sessions *session.Manager,
	escalation *session.EscalationService,
	tuning *config.TuningStore,
	metricsCollector *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		retriever:  retriever,
		reranker:   reranker,
		persona:    persona,
		llm:        llm,
		sessions:   sessions,
		escalation: escalation,
		tuning:     tuning,
		metrics:    metricsCollector,
	}
}

// Run executes the query pipeline for one user turn and returns a channel
// of ordered events. The channel is closed once the run completes, whether
// by success, a routed short-circuit, or an error event. Run snapshots the
// current tuning parameters at entry.
func (p *Pipeline) Run(ctx context.Context, query, sessionID string) <-chan Event {
	events := make(chan Event, 8)
	tuning := p.tuning.Get()
	scorer := confidence.NewScorer(tuning)

	go func() {
		defer close(events)
		start := time.Now()
		r := &run{
			pipeline:  p,
			scorer:    scorer,
			tuning:    tuning,
			events:    events,
			query:     query,
			sessionID: sessionID,
		}
		outcome := "completed"
		if err := r.execute(ctx); err != nil {
			slog.Error("query pipeline failed", "session_id", sessionID, "error", err)
			events <- errorEvent()
			outcome = "error"
		}
		p.metrics.ObserveQuery(string(r.tier), outcome, time.Since(start))
	}()

	return events
}

// run holds the per-invocation state threaded through the 13 steps; it
// exists so execute and its helpers don't need a long parameter list.
type run struct {
	pipeline  *Pipeline
	scorer    *confidence.Scorer
	tuning    config.Tuning
	events    chan<- Event
	query     string
	sessionID string
	tier      model.ConfidenceTier
}

func (r *run) execute(ctx context.Context) error {
	// 1. Load conversation context.
	contextMessages, err := r.pipeline.sessions.ContextMessages(ctx, r.sessionID, r.tuning.MaxTurns)
	if err != nil {
		return fmt.Errorf("pipeline.run.execute: load context: %w", err)
	}

	// 2. Query rewrite.
	searchQuery := r.query
	if len(contextMessages) > 0 {
		rewritten, err := r.rewriteQuery(ctx, contextMessages)
		if err != nil {
			slog.Warn("query rewrite failed, falling back to original query", "session_id", r.sessionID, "error", err)
		} else {
			searchQuery = rewritten
		}
	}

	// 3. Parallel retrieval.
	retrievalStart := time.Now()
	semantic, keyword, err := r.pipeline.retriever.Retrieve(ctx, searchQuery, r.tuning.SemanticTopK, r.tuning.KeywordTopK)
	r.pipeline.metrics.ObserveRetrieval(time.Since(retrievalStart))
	if err != nil {
		return fmt.Errorf("pipeline.run.execute: retrieve: %w", err)
	}

	// 4. Fuse.
	fused := retrieval.Fuse(r.tuning.RRFK, semantic, keyword)

	// 5. Empty fusion short-circuits to OFF_TOPIC before reranking/scoring.
	if len(fused) == 0 {
		r.tier = model.TierOffTopic
		r.events <- metadataEvent(r.sessionID, uuid.NewString(), model.TierOffTopic)
		return r.shortCircuit(ctx, model.TierOffTopic, r.pipeline.persona.OffTopicMessage())
	}

	// 6. Rerank.
	candidateCount := r.tuning.RerankTopK * 3
	if candidateCount > len(fused) {
		candidateCount = len(fused)
	}
	candidates := fused[:candidateCount]
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	rerankStart := time.Now()
	reranked, err := r.pipeline.reranker.Rerank(ctx, searchQuery, texts, r.tuning.RerankTopK)
	r.pipeline.metrics.ObserveRerank(time.Since(rerankStart))
	if err != nil {
		return fmt.Errorf("pipeline.run.execute: rerank: %w", err)
	}

	// 7. Score confidence, emit metadata.
	result := r.scorer.Score(reranked)
	r.tier = result.Tier
	messageID := uuid.NewString()
	slog.Info("confidence scored", "session_id", r.sessionID, "tier", result.Tier, "top_score", result.TopScore, "variance", result.Variance)
	r.events <- metadataEvent(r.sessionID, messageID, result.Tier)

	// 8. Route by tier.
	switch result.Tier {
	case model.TierOffTopic:
		return r.shortCircuit(ctx, model.TierOffTopic, r.pipeline.persona.OffTopicMessage())
	case model.TierDecline:
		return r.shortCircuit(ctx, model.TierDecline, r.pipeline.persona.FallbackMessage())
	case model.TierEscalate:
		return r.escalate(ctx, messageID)
	case model.TierAmbiguous:
		return r.ambiguous(ctx, reranked)
	}

	// ANSWER or CAVEAT: generate (steps 9-13).
	return r.answer(ctx, contextMessages, fused, reranked, result.Tier)
}

// rewriteQuery asks the LLM to produce a standalone search query from the
// last rewriteContextMessages turns.
func (r *run) rewriteQuery(ctx context.Context, contextMessages []providers.LLMMessage) (string, error) {
	recent := contextMessages
	if len(recent) > rewriteContextMessages {
		recent = recent[len(recent)-rewriteContextMessages:]
	}

	messages := make([]providers.LLMMessage, 0, len(recent)+2)
	messages = append(messages, providers.LLMMessage{Role: "system", Content: rewriteSystemPrompt})
	messages = append(messages, recent...)
	messages = append(messages, providers.LLMMessage{Role: "user", Content: r.query})

	resp, err := r.pipeline.llm.Complete(ctx, messages, rewriteTemperature, rewriteMaxTokens)
	if err != nil {
		return "", fmt.Errorf("pipeline.run.rewriteQuery: %w", err)
	}
	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return r.query, nil
	}
	return rewritten, nil
}

// shortCircuit handles the OFF_TOPIC/DECLINE/AMBIGUOUS routes, which share the same
// shape: a canned message, no sources, zero usage.
func (r *run) shortCircuit(ctx context.Context, tier model.ConfidenceTier, message string) error {
	r.events <- deltaEvent(message)
	r.events <- sourcesEvent(nil)
	r.events <- doneEvent(model.Usage{})
	_, err := r.pipeline.sessions.SaveAssistantMessage(ctx, r.sessionID, message, &tier, nil, nil)
	if err != nil {
		return fmt.Errorf("pipeline.run.shortCircuit: %w", err)
	}
	return nil
}

// escalate handles the ESCALATE route: canned message first, then webhook
// dispatch, which never blocks the user-visible response.
func (r *run) escalate(ctx context.Context, messageID string) error {
	message := r.pipeline.persona.EscalationMessage()
	tier := model.TierEscalate

	r.events <- deltaEvent(message)
	r.events <- sourcesEvent(nil)
	r.events <- doneEvent(model.Usage{})

	if _, err := r.pipeline.sessions.SaveAssistantMessage(ctx, r.sessionID, message, &tier, nil, nil); err != nil {
		return fmt.Errorf("pipeline.run.escalate: save message: %w", err)
	}

	if err := r.pipeline.escalation.Escalate(ctx, r.sessionID, r.query, "low_confidence", &messageID); err != nil {
		slog.Error("escalation dispatch failed", "session_id", r.sessionID, "error", err)
	}
	return nil
}

// ambiguous handles the AMBIGUOUS route: a clarification prompt built from
// the first line of the top 3 reranked texts.
func (r *run) ambiguous(ctx context.Context, reranked []providers.RerankResult) error {
	topicCount := 3
	if topicCount > len(reranked) {
		topicCount = len(reranked)
	}
	topics := make([]string, 0, topicCount)
	for _, res := range reranked[:topicCount] {
		topics = append(topics, firstLine(res.Text))
	}
	message := r.pipeline.persona.BuildAmbiguityPrompt(topics)
	return r.shortCircuit(ctx, model.TierAmbiguous, message)
}

// answer handles the ANSWER/CAVEAT routes: build sources, render the system
// prompt, stream the LLM response, and persist the full turn.
func (r *run) answer(ctx context.Context, contextMessages []providers.LLMMessage, fused []retrieval.Record, reranked []providers.RerankResult, tier model.ConfidenceTier) error {
	sources := buildSources(reranked, fused)

	systemPrompt := r.pipeline.persona.BuildSystemPrompt(sources, tier)

	recentContext := contextMessages
	if len(recentContext) > answerContextMessages {
		recentContext = recentContext[len(recentContext)-answerContextMessages:]
	}

	messages := make([]providers.LLMMessage, 0, len(recentContext)+2)
	messages = append(messages, providers.LLMMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, recentContext...)
	messages = append(messages, providers.LLMMessage{Role: "user", Content: r.query})

	tokens, errs := r.pipeline.llm.Stream(ctx, messages, answerTemperature, answerMaxTokens)
	var fullResponse strings.Builder
	for tokens != nil || errs != nil {
		select {
		case tok, ok := <-tokens:
			if !ok {
				tokens = nil
				continue
			}
			fullResponse.WriteString(tok)
			r.events <- deltaEvent(tok)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("pipeline.run.answer: stream: %w", err)
			}
		case <-ctx.Done():
			return fmt.Errorf("pipeline.run.answer: %w", ctx.Err())
		}
	}

	truncated := make([]model.Source, len(sources))
	for i, s := range sources {
		t := s
		t.Text = truncate(s.Text, sourceTextTruncateLen)
		truncated[i] = t
	}
	r.events <- sourcesEvent(truncated)

	usage := model.Usage{}
	r.events <- doneEvent(usage)

	content := fullResponse.String()
	_, err := r.pipeline.sessions.SaveAssistantMessage(ctx, r.sessionID, content, &tier, truncated, &usage)
	if err != nil {
		return fmt.Errorf("pipeline.run.answer: save message: %w", err)
	}
	return nil
}

// buildSources joins reranked results back to their fused record by a
// text-prefix match (first sourcePrefixMatchLen chars) to recover metadata
// (title, source_uri), matching original_source's rag_pipeline._build_sources.
func buildSources(reranked []providers.RerankResult, fused []retrieval.Record) []model.Source {
	byPrefix := make(map[string]retrieval.Record, len(fused))
	for _, f := range fused {
		byPrefix[prefix(f.Text, sourcePrefixMatchLen)] = f
	}

	sources := make([]model.Source, 0, len(reranked))
	for _, res := range reranked {
		title := "Document"
		var url *string
		if f, ok := byPrefix[prefix(res.Text, sourcePrefixMatchLen)]; ok {
			if t, ok := f.Metadata["title"].(string); ok && t != "" {
				title = t
			}
			if u, ok := f.Metadata["source_uri"].(string); ok && u != "" {
				url = &u
			}
		}
		sources = append(sources, model.Source{Title: title, Text: res.Text, URL: url, Score: res.Score})
	}
	return sources
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func firstLine(s string) string {
	s = prefix(s, 60)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
