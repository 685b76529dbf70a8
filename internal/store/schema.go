package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlLeads = `
CREATE TABLE IF NOT EXISTS leads (
    id                BIGSERIAL     PRIMARY KEY,
    name              TEXT          NOT NULL,
    phone             TEXT          NOT NULL,
    email             TEXT          NOT NULL DEFAULT '',
    property_type     TEXT          NOT NULL DEFAULT '',
    location          TEXT          NOT NULL DEFAULT '',
    budget            DOUBLE PRECISION,
    source            TEXT          NOT NULL DEFAULT '',
    tags              TEXT[]        NOT NULL DEFAULT '{}',
    notes             TEXT          NOT NULL DEFAULT '',
    campaign_id       BIGINT,
    call_attempts     INT           NOT NULL DEFAULT 0,
    last_call_attempt TIMESTAMPTZ,
    created_at        TIMESTAMPTZ   NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ   NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads (campaign_id);
`

const ddlCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id                   BIGSERIAL    PRIMARY KEY,
    name                 TEXT         NOT NULL,
    status               TEXT         NOT NULL DEFAULT 'draft',
    agent_name           TEXT         NOT NULL,
    agent_persona        TEXT         NOT NULL DEFAULT '',
    property_details     TEXT         NOT NULL DEFAULT '',
    calling_hours_start  INT          NOT NULL DEFAULT 10,
    calling_hours_end    INT          NOT NULL DEFAULT 19,
    max_concurrent_calls INT          NOT NULL DEFAULT 5,
    max_attempts         INT          NOT NULL DEFAULT 3,
    created_at           TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlScheduledCalls = `
CREATE TABLE IF NOT EXISTS scheduled_calls (
    id              BIGSERIAL    PRIMARY KEY,
    lead_id         BIGINT       NOT NULL REFERENCES leads (id),
    campaign_id     BIGINT       NOT NULL REFERENCES campaigns (id),
    status          TEXT         NOT NULL DEFAULT 'pending',
    scheduled_for   TIMESTAMPTZ  NOT NULL,
    attempts        INT          NOT NULL DEFAULT 0,
    max_attempts    INT          NOT NULL DEFAULT 3,
    last_failure    TEXT         NOT NULL DEFAULT '',
    call_session_id BIGINT,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_scheduled_calls_one_active_per_lead
    ON scheduled_calls (campaign_id, lead_id)
    WHERE status NOT IN ('completed', 'cancelled', 'max_retries_reached');

CREATE INDEX IF NOT EXISTS idx_scheduled_calls_pending_due
    ON scheduled_calls (scheduled_for)
    WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_scheduled_calls_status
    ON scheduled_calls (status);
`

const ddlCallSessions = `
CREATE TABLE IF NOT EXISTS call_sessions (
    id                BIGSERIAL    PRIMARY KEY,
    lead_id           BIGINT       NOT NULL REFERENCES leads (id),
    campaign_id       BIGINT       NOT NULL REFERENCES campaigns (id),
    scheduled_call_id BIGINT       REFERENCES scheduled_calls (id),
    provider_call_id  TEXT         NOT NULL DEFAULT '',
    stream_sid        TEXT         NOT NULL DEFAULT '',
    status            TEXT         NOT NULL DEFAULT 'initiated',
    outcome           TEXT         NOT NULL DEFAULT '',
    answered_at       TIMESTAMPTZ,
    started_at        TIMESTAMPTZ,
    ended_at          TIMESTAMPTZ,
    duration_seconds  INT          NOT NULL DEFAULT 0,
    recording_url     TEXT         NOT NULL DEFAULT '',
    transcript        JSONB        NOT NULL DEFAULT '[]',
    extracted_data    JSONB        NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_call_sessions_provider_call_id
    ON call_sessions (provider_call_id)
    WHERE provider_call_id != '';
`

// Migrate creates every table and index this package needs, idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlLeads, ddlCampaigns, ddlScheduledCalls, ddlCallSessions} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
