package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sophia-systems/csbot/internal/cerrors"
	"github.com/sophia-systems/csbot/internal/model"
)

// SessionRepo persists ChatSession and ChatMessage rows using pgx's
// batch/scan idiom, with a windowed query for the most recent messages
// in a session.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo creates a SessionRepo.
func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create inserts a new ChatSession row.
func (r *SessionRepo) Create(ctx context.Context, s *model.ChatSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Title, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.SessionRepo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a ChatSession by id.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	s := &model.ChatSession{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, created_at, updated_at FROM chat_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, &cerrors.SessionNotFoundError{SessionID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("repository.SessionRepo.GetByID: %w", err)
	}
	return s, nil
}

// AddMessage appends a ChatMessage to a session.
func (r *SessionRepo) AddMessage(ctx context.Context, msg *model.ChatMessage) error {
	sourcesJSON, err := json.Marshal(msg.Sources)
	if err != nil {
		return fmt.Errorf("repository.SessionRepo.AddMessage: marshal sources: %w", err)
	}
	usageJSON, err := json.Marshal(msg.Usage)
	if err != nil {
		return fmt.Errorf("repository.SessionRepo.AddMessage: marshal usage: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, confidence_tier, sources, usage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.ConfidenceTier, sourcesJSON, usageJSON, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.SessionRepo.AddMessage: %w", err)
	}

	_, err = r.pool.Exec(ctx, `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), msg.SessionID)
	if err != nil {
		return fmt.Errorf("repository.SessionRepo.AddMessage: touch session: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages for a session in insertion
// order. limit is the caller's 2*max_turns.
func (r *SessionRepo) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, confidence_tier, sources, usage, created_at
		FROM (
			SELECT id, session_id, role, content, confidence_tier, sources, usage, created_at
			FROM chat_messages
			WHERE session_id = $1 AND role IN ('user', 'assistant')
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.SessionRepo.RecentMessages: %w", err)
	}
	defer rows.Close()

	var out []*model.ChatMessage
	for rows.Next() {
		m := &model.ChatMessage{}
		var role string
		var tier *string
		var sourcesJSON, usageJSON []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &tier, &sourcesJSON, &usageJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.SessionRepo.RecentMessages: scan: %w", err)
		}
		m.Role = model.ChatRole(role)
		if tier != nil {
			t := model.ConfidenceTier(*tier)
			m.ConfidenceTier = &t
		}
		if len(sourcesJSON) > 0 {
			_ = json.Unmarshal(sourcesJSON, &m.Sources)
		}
		if len(usageJSON) > 0 && string(usageJSON) != "null" {
			m.Usage = &model.Usage{}
			_ = json.Unmarshal(usageJSON, m.Usage)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
