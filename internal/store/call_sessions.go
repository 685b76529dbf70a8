package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/propertyhub/voice-agent/internal/domain"
)

// CreateCallSession implements executor.Store.
func (s *Store) CreateCallSession(ctx context.Context, cs *domain.CallSession) error {
	transcript, err := json.Marshal(cs.Transcript)
	if err != nil {
		return fmt.Errorf("store: marshal transcript: %w", err)
	}
	extracted, err := json.Marshal(cs.ExtractedData)
	if err != nil {
		return fmt.Errorf("store: marshal extracted data: %w", err)
	}

	const q = `
		INSERT INTO call_sessions
		    (lead_id, campaign_id, scheduled_call_id, provider_call_id, stream_sid,
		     status, outcome, transcript, extracted_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, q,
		cs.LeadID, cs.CampaignID, cs.ScheduledCallID, cs.ProviderCallID, cs.StreamSID,
		cs.Status, cs.Outcome, transcript, extracted,
	).Scan(&cs.ID, &cs.CreatedAt, &cs.UpdatedAt)
}

// GetCallSessionByProviderID implements webhook.Store.
func (s *Store) GetCallSessionByProviderID(ctx context.Context, providerCallID string) (*domain.CallSession, error) {
	const q = `
		SELECT id, lead_id, campaign_id, scheduled_call_id, provider_call_id, stream_sid,
		       status, outcome, answered_at, started_at, ended_at, duration_seconds,
		       recording_url, transcript, extracted_data, created_at, updated_at
		FROM   call_sessions
		WHERE  provider_call_id = $1`

	rows, err := s.pool.Query(ctx, q, providerCallID)
	if err != nil {
		return nil, fmt.Errorf("store: get call session: %w", err)
	}
	cs, err := pgx.CollectOneRow(rows, scanCallSession)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get call session: %w", err)
	}
	return &cs, nil
}

// UpdateCallSession implements webhook.Store; also used by the turn
// controller's finalize hook via cmd/server's wiring to persist the
// final transcript/outcome/extracted data.
func (s *Store) UpdateCallSession(ctx context.Context, cs *domain.CallSession) error {
	transcript, err := json.Marshal(cs.Transcript)
	if err != nil {
		return fmt.Errorf("store: marshal transcript: %w", err)
	}
	extracted, err := json.Marshal(cs.ExtractedData)
	if err != nil {
		return fmt.Errorf("store: marshal extracted data: %w", err)
	}

	const q = `
		UPDATE call_sessions
		SET    status = $2, outcome = $3, answered_at = $4, started_at = $5, ended_at = $6,
		       duration_seconds = $7, recording_url = $8, transcript = $9, extracted_data = $10,
		       updated_at = now()
		WHERE  id = $1`

	_, err = s.pool.Exec(ctx, q,
		cs.ID, cs.Status, cs.Outcome, cs.AnsweredAt, cs.StartedAt, cs.EndedAt,
		cs.DurationSeconds, cs.RecordingURL, transcript, extracted,
	)
	if err != nil {
		return fmt.Errorf("store: update call session: %w", err)
	}
	return nil
}

func scanCallSession(row pgx.CollectableRow) (domain.CallSession, error) {
	var (
		cs         domain.CallSession
		transcript []byte
		extracted  []byte
	)
	err := row.Scan(
		&cs.ID, &cs.LeadID, &cs.CampaignID, &cs.ScheduledCallID, &cs.ProviderCallID, &cs.StreamSID,
		&cs.Status, &cs.Outcome, &cs.AnsweredAt, &cs.StartedAt, &cs.EndedAt, &cs.DurationSeconds,
		&cs.RecordingURL, &transcript, &extracted, &cs.CreatedAt, &cs.UpdatedAt,
	)
	if err != nil {
		return cs, err
	}
	if len(transcript) > 0 {
		if jsonErr := json.Unmarshal(transcript, &cs.Transcript); jsonErr != nil {
			return cs, jsonErr
		}
	}
	if len(extracted) > 0 {
		if jsonErr := json.Unmarshal(extracted, &cs.ExtractedData); jsonErr != nil {
			return cs, jsonErr
		}
	}
	return cs, nil
}
