// Package session manages conversation context and human-handoff escalation.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/providers"
)

// MessageStore is the subset of repository.SessionRepo the Manager needs.
type MessageStore interface {
	AddMessage(ctx context.Context, msg *model.ChatMessage) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// Manager assembles LLM context from prior turns and persists new assistant
// turns.
type Manager struct {
	messages MessageStore
}

// NewManager creates a Manager.
func NewManager(messages MessageStore) *Manager {
	return &Manager{messages: messages}
}

// ContextMessages returns the last maxTurns user/assistant exchanges as LLM
// messages, oldest first.
func (m *Manager) ContextMessages(ctx context.Context, sessionID string, maxTurns int) ([]providers.LLMMessage, error) {
	recent, err := m.messages.RecentMessages(ctx, sessionID, maxTurns*2)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.ContextMessages: %w", err)
	}

	out := make([]providers.LLMMessage, 0, len(recent))
	for _, msg := range recent {
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			continue
		}
		out = append(out, providers.LLMMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out, nil
}

// SaveAssistantMessage persists an assistant turn with its routing metadata
// and returns the new message id.
func (m *Manager) SaveAssistantMessage(ctx context.Context, sessionID, content string, tier *model.ConfidenceTier, sources []model.Source, usage *model.Usage) (string, error) {
	msg := &model.ChatMessage{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Role:           model.RoleAssistant,
		Content:        content,
		ConfidenceTier: tier,
		Sources:        sources,
		Usage:          usage,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.messages.AddMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("session.Manager.SaveAssistantMessage: %w", err)
	}
	return msg.ID, nil
}

// SaveUserMessage persists an incoming user turn.
func (m *Manager) SaveUserMessage(ctx context.Context, sessionID, content string) (string, error) {
	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.messages.AddMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("session.Manager.SaveUserMessage: %w", err)
	}
	return msg.ID, nil
}
