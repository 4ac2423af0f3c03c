package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sophia-systems/csbot/internal/model"
)

type fakeEscalationStore struct {
	created []*model.EscalationEvent
	err     error
}

func (f *fakeEscalationStore) Create(ctx context.Context, e *model.EscalationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, e)
	return nil
}

func TestEscalate_NoWebhookConfiguredStillPersists(t *testing.T) {
	store := &fakeEscalationStore{}
	svc := NewEscalationService(store, "")

	if err := svc.Escalate(context.Background(), "session-1", "my dryer won't turn on", "confidence below threshold", nil); err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("len(store.created) = %d, want 1", len(store.created))
	}
	if store.created[0].WebhookStatus != 0 {
		t.Errorf("WebhookStatus = %d, want 0 when no webhook is configured", store.created[0].WebhookStatus)
	}
}

func TestEscalate_WebhookSuccessRecordsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	store := &fakeEscalationStore{}
	svc := NewEscalationService(store, srv.URL)

	if err := svc.Escalate(context.Background(), "session-1", "my dryer won't turn on", "confidence below threshold", nil); err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if store.created[0].WebhookStatus != http.StatusAccepted {
		t.Errorf("WebhookStatus = %d, want %d", store.created[0].WebhookStatus, http.StatusAccepted)
	}
}

func TestEscalate_WebhookFailureStillPersists(t *testing.T) {
	store := &fakeEscalationStore{}
	svc := NewEscalationService(store, "http://127.0.0.1:1/unreachable")

	if err := svc.Escalate(context.Background(), "session-1", "my dryer won't turn on", "confidence below threshold", nil); err != nil {
		t.Fatalf("Escalate() error = %v, want nil — webhook failure must be non-fatal", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("len(store.created) = %d, want 1", len(store.created))
	}
	if store.created[0].WebhookStatus != 0 {
		t.Errorf("WebhookStatus = %d, want 0 after webhook failure", store.created[0].WebhookStatus)
	}
}

func TestEscalate_StorePersistenceErrorPropagates(t *testing.T) {
	store := &fakeEscalationStore{err: context.DeadlineExceeded}
	svc := NewEscalationService(store, "")

	if err := svc.Escalate(context.Background(), "session-1", "query", "reason", nil); err == nil {
		t.Fatal("expected an error when the store fails")
	}
}
