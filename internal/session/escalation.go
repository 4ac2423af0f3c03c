package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sophia-systems/csbot/internal/metrics"
	"github.com/sophia-systems/csbot/internal/model"
)

// webhookTimeout bounds the escalation webhook call.
const webhookTimeout = 10 * time.Second

// maxWebhookResponseBody caps how much of the webhook's response body is
// stored.
const maxWebhookResponseBody = 500

// EscalationStore is the subset of repository.EscalationRepo the service
// needs.
type EscalationStore interface {
	Create(ctx context.Context, e *model.EscalationEvent) error
}

// EscalationService dispatches a webhook notification and always records
// the escalation, regardless of webhook outcome.
type EscalationService struct {
	store      EscalationStore
	webhookURL string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// WithMetrics attaches a metrics collector, returning the same service for
// chaining. Safe to skip; a nil collector makes observations no-ops.
func (s *EscalationService) WithMetrics(m *metrics.Metrics) *EscalationService {
	s.metrics = m
	return s
}

// NewEscalationService creates an EscalationService. webhookURL is empty
// when escalation notification is disabled.
func NewEscalationService(store EscalationStore, webhookURL string) *EscalationService {
	return &EscalationService{
		store:      store,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: webhookTimeout},
	}
}

// Escalate notifies the configured webhook (if any) and persists the event.
// A webhook failure is logged but never prevents the event from being
// recorded.
func (s *EscalationService) Escalate(ctx context.Context, sessionID, query, reason string, messageID *string) error {
	status, response := s.notifyWebhook(ctx, sessionID, query, reason)

	event := &model.EscalationEvent{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		MessageID:       messageID,
		Reason:          reason,
		Query:           query,
		WebhookStatus:   status,
		WebhookResponse: response,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Create(ctx, event); err != nil {
		return fmt.Errorf("session.EscalationService.Escalate: %w", err)
	}
	webhookFailed := s.webhookURL != "" && (status == 0 || status >= 400)
	s.metrics.ObserveEscalation(webhookFailed)
	return nil
}

func (s *EscalationService) notifyWebhook(ctx context.Context, sessionID, query, reason string) (int, string) {
	if s.webhookURL == "" {
		return 0, ""
	}

	payload, err := json.Marshal(map[string]string{
		"session_id": sessionID,
		"query":      query,
		"reason":     reason,
	})
	if err != nil {
		slog.Error("escalation_webhook_marshal_failed", "error", err)
		return 0, fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		slog.Error("escalation_webhook_failed", "error", err)
		return 0, fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("escalation_webhook_failed", "error", err)
		return 0, fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseBody))
	slog.Info("escalation_webhook_sent", "session_id", sessionID, "status", resp.StatusCode)
	return resp.StatusCode, string(body)
}
