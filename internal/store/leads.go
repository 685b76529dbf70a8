package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/propertyhub/voice-agent/internal/domain"
)

// CreateLead inserts a new lead, used by the minimal HTTP surface that seeds
// leads for local runs and integration tests (ingestion proper is out of
// scope here).
func (s *Store) CreateLead(ctx context.Context, l *domain.Lead) error {
	const q = `
		INSERT INTO leads
		    (name, phone, email, property_type, location, budget, source, tags,
		     notes, campaign_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, q,
		l.Name, l.Phone, l.Email, l.PropertyType, l.Location, l.Budget, l.Source,
		l.Tags, l.Notes, l.CampaignID,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// GetLead implements worker.LeadStore.
func (s *Store) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	const q = `
		SELECT id, name, phone, email, property_type, location, budget, source,
		       tags, notes, campaign_id, call_attempts, last_call_attempt,
		       created_at, updated_at
		FROM   leads
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("store: get lead: %w", err)
	}
	lead, err := pgx.CollectOneRow(rows, scanLead)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get lead: %w", err)
	}
	return &lead, nil
}

// UnscheduledLeads implements scheduler.Store: every lead in campaignID that
// does not already have a ScheduledCall row.
func (s *Store) UnscheduledLeads(ctx context.Context, campaignID int64) ([]*domain.Lead, error) {
	const q = `
		SELECT id, name, phone, email, property_type, location, budget, source,
		       tags, notes, campaign_id, call_attempts, last_call_attempt,
		       created_at, updated_at
		FROM   leads
		WHERE  campaign_id = $1
		  AND  id NOT IN (SELECT lead_id FROM scheduled_calls WHERE campaign_id = $1)`

	rows, err := s.pool.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("store: unscheduled leads: %w", err)
	}
	leads, err := pgx.CollectRows(rows, scanLead)
	if err != nil {
		return nil, fmt.Errorf("store: unscheduled leads: %w", err)
	}
	out := make([]*domain.Lead, len(leads))
	for i := range leads {
		out[i] = &leads[i]
	}
	return out, nil
}

// IncrementLeadAttempt implements executor.Store.
func (s *Store) IncrementLeadAttempt(ctx context.Context, leadID int64, at time.Time) error {
	const q = `
		UPDATE leads
		SET    call_attempts = call_attempts + 1, last_call_attempt = $2, updated_at = $2
		WHERE  id = $1`

	if _, err := s.pool.Exec(ctx, q, leadID, at); err != nil {
		return fmt.Errorf("store: increment lead attempt: %w", err)
	}
	return nil
}

func scanLead(row pgx.CollectableRow) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.PropertyType, &l.Location, &l.Budget,
		&l.Source, &l.Tags, &l.Notes, &l.CampaignID, &l.CallAttempts, &l.LastCallAttempt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}
