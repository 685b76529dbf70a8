package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/propertyhub/voice-agent/internal/domain"
)

// GetCampaign implements scheduler.Store.
func (s *Store) GetCampaign(ctx context.Context, campaignID int64) (*domain.Campaign, error) {
	const q = `
		SELECT id, name, status, agent_name, agent_persona, property_details,
		       calling_hours_start, calling_hours_end, max_concurrent_calls,
		       max_attempts, created_at, updated_at
		FROM   campaigns
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("store: get campaign: %w", err)
	}
	campaign, err := pgx.CollectOneRow(rows, scanCampaign)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get campaign: %w", err)
	}
	return &campaign, nil
}

// CreateCampaign inserts a new campaign and returns its assigned id.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	const q = `
		INSERT INTO campaigns
		    (name, status, agent_name, agent_persona, property_details,
		     calling_hours_start, calling_hours_end, max_concurrent_calls, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, q,
		c.Name, c.Status, c.AgentName, c.AgentPersona, c.PropertyDetails,
		c.CallingHoursStart, c.CallingHoursEnd, c.MaxConcurrentCalls, c.MaxAttempts,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func scanCampaign(row pgx.CollectableRow) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Status, &c.AgentName, &c.AgentPersona, &c.PropertyDetails,
		&c.CallingHoursStart, &c.CallingHoursEnd, &c.MaxConcurrentCalls, &c.MaxAttempts,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
