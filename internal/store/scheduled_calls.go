package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/propertyhub/voice-agent/internal/domain"
)

// CreateScheduledCalls implements scheduler.Store: bulk-inserts one row per
// call via a batch so enqueuing a large campaign costs one round trip.
func (s *Store) CreateScheduledCalls(ctx context.Context, calls []*domain.ScheduledCall) error {
	const q = `
		INSERT INTO scheduled_calls
		    (lead_id, campaign_id, status, scheduled_for, attempts, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	batch := &pgx.Batch{}
	for _, sc := range calls {
		batch.Queue(q, sc.LeadID, sc.CampaignID, sc.Status, sc.ScheduledFor, sc.Attempts, sc.MaxAttempts)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, sc := range calls {
		if err := br.QueryRow().Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return fmt.Errorf("store: create scheduled calls: %w", err)
		}
	}
	return nil
}

// GetScheduledCall implements scheduler.Store.
func (s *Store) GetScheduledCall(ctx context.Context, id int64) (*domain.ScheduledCall, error) {
	const q = `
		SELECT id, lead_id, campaign_id, status, scheduled_for, attempts,
		       max_attempts, last_failure, call_session_id, created_at, updated_at
		FROM   scheduled_calls
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("store: get scheduled call: %w", err)
	}
	sc, err := pgx.CollectOneRow(rows, scanScheduledCall)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get scheduled call: %w", err)
	}
	return &sc, nil
}

// UpdateScheduledCall implements both executor.Store and scheduler.Store.
func (s *Store) UpdateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error {
	const q = `
		UPDATE scheduled_calls
		SET    status = $2, scheduled_for = $3, attempts = $4, last_failure = $5,
		       call_session_id = $6, updated_at = now()
		WHERE  id = $1`

	_, err := s.pool.Exec(ctx, q, sc.ID, sc.Status, sc.ScheduledFor, sc.Attempts, sc.LastFailure, sc.CallSessionID)
	if err != nil {
		return fmt.Errorf("store: update scheduled call: %w", err)
	}
	return nil
}

// CountCalling implements scheduler.Store.
func (s *Store) CountCalling(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM scheduled_calls WHERE status = $1`
	var count int
	if err := s.pool.QueryRow(ctx, q, domain.ScheduledCallCalling).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count calling: %w", err)
	}
	return count, nil
}

// PendingCallsDue implements scheduler.Store.
func (s *Store) PendingCallsDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledCall, error) {
	const q = `
		SELECT id, lead_id, campaign_id, status, scheduled_for, attempts,
		       max_attempts, last_failure, call_session_id, created_at, updated_at
		FROM   scheduled_calls
		WHERE  status = $1 AND scheduled_for <= $2
		ORDER  BY scheduled_for ASC
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, domain.ScheduledCallPending, before, limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending calls due: %w", err)
	}
	calls, err := pgx.CollectRows(rows, scanScheduledCall)
	if err != nil {
		return nil, fmt.Errorf("store: pending calls due: %w", err)
	}
	out := make([]*domain.ScheduledCall, len(calls))
	for i := range calls {
		out[i] = &calls[i]
	}
	return out, nil
}

func scanScheduledCall(row pgx.CollectableRow) (domain.ScheduledCall, error) {
	var sc domain.ScheduledCall
	err := row.Scan(
		&sc.ID, &sc.LeadID, &sc.CampaignID, &sc.Status, &sc.ScheduledFor, &sc.Attempts,
		&sc.MaxAttempts, &sc.LastFailure, &sc.CallSessionID, &sc.CreatedAt, &sc.UpdatedAt,
	)
	return sc, err
}
