// Package executor places one outbound call per ScheduledCall: it builds the
// telephony provider's connect request, records the resulting CallSession,
// bumps the lead's attempt counter, and schedules a retry on failure.
package executor

import (
	"context"
	"time"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// CallRequest is what the telephony client needs to place one outbound call.
type CallRequest struct {
	To                string
	CallerID          string
	CustomField       map[string]any
	StatusCallbackURL string
	Record            bool
}

// CallResult is the provider's immediate response to placing a call.
type CallResult struct {
	ProviderCallID string
	Status         string
}

// TelephonyClient places outbound calls through the connected provider.
type TelephonyClient interface {
	PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error)
}

// Store is the subset of durable persistence the executor needs. The
// relational store package implements this against Postgres.
type Store interface {
	UpdateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error
	CreateCallSession(ctx context.Context, cs *domain.CallSession) error
	IncrementLeadAttempt(ctx context.Context, leadID int64, at time.Time) error
}

// Executor runs one ScheduledCall through the telephony provider.
type Executor struct {
	telephony         TelephonyClient
	store             Store
	statusCallbackURL string
	record            bool
}

// NewExecutor builds an Executor. statusCallbackURL is this service's own
// public webhook endpoint, included on every call so the provider can report
// status changes back.
func NewExecutor(telephony TelephonyClient, store Store, statusCallbackURL string, record bool) *Executor {
	return &Executor{
		telephony:         telephony,
		store:             store,
		statusCallbackURL: statusCallbackURL,
		record:            record,
	}
}

// Execute places a call for sc/lead, creates the CallSession row, transitions
// sc to Calling, and bumps the lead's attempt bookkeeping. On failure it
// transitions sc back through the failure path and schedules a retry per the
// failure-reason ladder.
func (e *Executor) Execute(ctx context.Context, sc *domain.ScheduledCall, lead *domain.Lead) (*domain.CallSession, error) {
	logger := observability.GetLogger()
	now := time.Now()

	customField := map[string]any{
		"lead_id":           lead.ID,
		"lead_name":         lead.Name,
		"phone":             lead.Phone,
		"property_type":     lead.PropertyType,
		"location":          lead.Location,
		"budget":            lead.Budget,
		"campaign_id":       sc.CampaignID,
		"scheduled_call_id": sc.ID,
	}

	if err := sc.Transition(domain.ScheduledCallCalling); err != nil {
		return nil, err
	}

	result, err := e.telephony.PlaceCall(ctx, CallRequest{
		To:                lead.Phone,
		CustomField:       customField,
		StatusCallbackURL: e.statusCallbackURL,
		Record:            e.record,
	})
	if err != nil {
		logger.Error().Err(err).
			Int64("scheduled_call_id", sc.ID).
			Int64("lead_id", lead.ID).
			Msg("executor: failed to place call")

		if transErr := sc.Transition(domain.ScheduledCallFailed); transErr != nil {
			return nil, transErr
		}
		if retryErr := sc.ScheduleRetry(domain.FailureFailed, now); retryErr != nil {
			return nil, retryErr
		}
		if updateErr := e.store.UpdateScheduledCall(ctx, sc); updateErr != nil {
			return nil, updateErr
		}
		return nil, err
	}

	callSession := &domain.CallSession{
		LeadID:          lead.ID,
		CampaignID:      sc.CampaignID,
		ScheduledCallID: &sc.ID,
		ProviderCallID:  result.ProviderCallID,
		Status:          domain.CallSessionInitiated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.CreateCallSession(ctx, callSession); err != nil {
		return nil, err
	}

	sc.CallSessionID = &callSession.ID
	if err := e.store.UpdateScheduledCall(ctx, sc); err != nil {
		return nil, err
	}

	if err := e.store.IncrementLeadAttempt(ctx, lead.ID, now); err != nil {
		logger.Warn().Err(err).Int64("lead_id", lead.ID).Msg("executor: failed to bump lead attempt counter")
	}

	logger.Info().
		Str("provider_call_id", result.ProviderCallID).
		Int64("lead_id", lead.ID).
		Int64("scheduled_call_id", sc.ID).
		Msg("executor: call initiated")

	return callSession, nil
}
