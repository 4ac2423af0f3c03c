package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sophia-systems/csbot/internal/model"
)

// EscalationRepo persists append-only EscalationEvent rows: it exposes
// only Create and ListBySession, never an update.
type EscalationRepo struct {
	pool *pgxpool.Pool
}

// NewEscalationRepo creates an EscalationRepo.
func NewEscalationRepo(pool *pgxpool.Pool) *EscalationRepo {
	return &EscalationRepo{pool: pool}
}

// Create inserts a new EscalationEvent row.
func (r *EscalationRepo) Create(ctx context.Context, e *model.EscalationEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escalation_events (id, session_id, message_id, reason, query, webhook_status, webhook_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.SessionID, e.MessageID, e.Reason, e.Query, e.WebhookStatus, e.WebhookResponse, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository.EscalationRepo.Create: %w", err)
	}
	return nil
}

// ListBySession returns every EscalationEvent for a session, most recent
// first: the natural read side of an append-only model. Nothing else in
// this module calls it.
func (r *EscalationRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.EscalationEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, message_id, reason, query, webhook_status, webhook_response, created_at
		FROM escalation_events WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("repository.EscalationRepo.ListBySession: %w", err)
	}
	defer rows.Close()

	var out []*model.EscalationEvent
	for rows.Next() {
		e := &model.EscalationEvent{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.MessageID, &e.Reason, &e.Query, &e.WebhookStatus, &e.WebhookResponse, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.EscalationRepo.ListBySession: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
