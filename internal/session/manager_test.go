package session

import (
	"context"
	"testing"

	"github.com/sophia-systems/csbot/internal/model"
)

type fakeMessageStore struct {
	added   []*model.ChatMessage
	recent  []*model.ChatMessage
	addErr  error
	listErr error
}

func (f *fakeMessageStore) AddMessage(ctx context.Context, msg *model.ChatMessage) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, msg)
	return nil
}

func (f *fakeMessageStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recent, nil
}

func TestContextMessages_FiltersToUserAndAssistant(t *testing.T) {
	store := &fakeMessageStore{
		recent: []*model.ChatMessage{
			{Role: model.RoleUser, Content: "how do I clean the lint trap?"},
			{Role: model.RoleAssistant, Content: "remove it and wipe it down after every cycle."},
		},
	}
	mgr := NewManager(store)

	msgs, err := mgr.ContextMessages(context.Background(), "session-1", 10)
	if err != nil {
		t.Fatalf("ContextMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected roles: %+v", msgs)
	}
}

func TestContextMessages_EmptySession(t *testing.T) {
	mgr := NewManager(&fakeMessageStore{})
	msgs, err := mgr.ContextMessages(context.Background(), "session-1", 10)
	if err != nil {
		t.Fatalf("ContextMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len(msgs) = %d, want 0", len(msgs))
	}
}

func TestSaveAssistantMessage_PersistsTierAndSources(t *testing.T) {
	store := &fakeMessageStore{}
	mgr := NewManager(store)
	tier := model.TierAnswer
	sources := []model.Source{{Title: "Manual", Text: "clean the lint trap"}}

	id, err := mgr.SaveAssistantMessage(context.Background(), "session-1", "Clean the lint trap after every load.", &tier, sources, &model.Usage{TotalTokens: 42})
	if err != nil {
		t.Fatalf("SaveAssistantMessage() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty message id")
	}
	if len(store.added) != 1 {
		t.Fatalf("len(store.added) = %d, want 1", len(store.added))
	}
	saved := store.added[0]
	if saved.Role != model.RoleAssistant {
		t.Errorf("Role = %v, want %v", saved.Role, model.RoleAssistant)
	}
	if saved.ConfidenceTier == nil || *saved.ConfidenceTier != model.TierAnswer {
		t.Errorf("ConfidenceTier = %v, want %v", saved.ConfidenceTier, model.TierAnswer)
	}
}

func TestSaveUserMessage(t *testing.T) {
	store := &fakeMessageStore{}
	mgr := NewManager(store)

	id, err := mgr.SaveUserMessage(context.Background(), "session-1", "how do I clean the lint trap?")
	if err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty message id")
	}
	if store.added[0].Role != model.RoleUser {
		t.Errorf("Role = %v, want %v", store.added[0].Role, model.RoleUser)
	}
}
