// Package webhook receives call-status callbacks from the telephony provider,
// updates the durable CallSession record, and schedules a retry on
// non-completed terminal statuses.
package webhook

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// exotel's status-callback vocabulary, per its Calls/connect StatusCallback docs.
const (
	statusInitiated  = "initiated"
	statusRinging    = "ringing"
	statusInProgress = "in-progress"
	statusCompleted  = "completed"
	statusBusy       = "busy"
	statusNoAnswer   = "no-answer"
	statusFailed     = "failed"
)

var statusMapping = map[string]domain.CallSessionStatus{
	statusInitiated:  domain.CallSessionInitiated,
	statusRinging:    domain.CallSessionRinging,
	statusInProgress: domain.CallSessionInProgress,
	statusCompleted:  domain.CallSessionCompleted,
	statusBusy:       domain.CallSessionBusy,
	statusNoAnswer:   domain.CallSessionNoAnswer,
	statusFailed:     domain.CallSessionFailed,
}

// retryDelay is the reason-specific wait before redialing, per the failed
// status a terminal, non-completed call reported.
var retryDelay = map[string]time.Duration{
	statusNoAnswer: 2 * time.Hour,
	statusBusy:     4 * time.Hour,
	statusFailed:   1 * time.Hour,
}

// Store is the subset of durable persistence the webhook handler needs.
type Store interface {
	GetCallSessionByProviderID(ctx context.Context, providerCallID string) (*domain.CallSession, error)
	UpdateCallSession(ctx context.Context, cs *domain.CallSession) error
}

// Scheduler is the subset of *scheduler.Scheduler the webhook needs to
// requeue a call after a non-completed terminal status.
type Scheduler interface {
	ScheduleRetry(ctx context.Context, scheduledCallID int64, reason domain.FailureReason, delay time.Duration) (*domain.ScheduledCall, error)
}

// Handler serves the provider's call-status callback endpoint.
type Handler struct {
	store     Store
	scheduler Scheduler
}

// New builds a Handler.
func New(store Store, scheduler Scheduler) *Handler {
	return &Handler{store: store, scheduler: scheduler}
}

// ServeCallStatus handles a form-encoded POST from the telephony provider. It
// responds immediately after updating the CallSession row; retry scheduling
// runs on a background goroutine so a slow scheduler store never delays the
// provider's callback round-trip.
func (h *Handler) ServeCallStatus(w http.ResponseWriter, r *http.Request) {
	logger := observability.GetLogger()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	callSID := r.FormValue("CallSid")
	status := r.FormValue("Status")
	duration := r.FormValue("Duration")
	recordingURL := r.FormValue("RecordingUrl")

	logger.Info().Str("call_sid", callSID).Str("status", status).Msg("webhook: received call status")

	cs, err := h.store.GetCallSessionByProviderID(r.Context(), callSID)
	if err != nil {
		logger.Error().Err(err).Str("call_sid", callSID).Msg("webhook: failed to load call session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if cs == nil {
		logger.Warn().Str("call_sid", callSID).Msg("webhook: call session not found")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"received","warning":"session_not_found"}`))
		return
	}

	now := time.Now()
	mapped, known := statusMapping[status]
	if !known {
		mapped = domain.CallSessionFailed
	}
	cs.Status = mapped

	if status == statusInProgress {
		cs.AnsweredAt = &now
	}

	if mapped.IsTerminal() {
		cs.EndedAt = &now
		if seconds, err := strconv.Atoi(duration); err == nil {
			cs.DurationSeconds = seconds
		}
		if recordingURL != "" {
			cs.RecordingURL = recordingURL
		}
	}

	if err := h.store.UpdateCallSession(r.Context(), cs); err != nil {
		logger.Error().Err(err).Str("call_sid", callSID).Msg("webhook: failed to update call session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"received"}`))

	if mapped.IsTerminal() && cs.ScheduledCallID != nil {
		scheduledCallID := *cs.ScheduledCallID
		go h.handleCallCompletion(scheduledCallID, status)
	}
}

// handleCallCompletion drives the retry ladder for a terminal, non-completed
// status. It runs detached from the HTTP request so a slow scheduler never
// blocks the webhook response.
func (h *Handler) handleCallCompletion(scheduledCallID int64, status string) {
	logger := observability.GetLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if status == statusCompleted {
		logger.Info().Int64("scheduled_call_id", scheduledCallID).Msg("webhook: call completed")
		return
	}

	delay, retryable := retryDelay[status]
	if !retryable {
		return
	}

	reason := domain.FailureFailed
	switch status {
	case statusNoAnswer:
		reason = domain.FailureNoAnswer
	case statusBusy:
		reason = domain.FailureBusy
	}

	if _, err := h.scheduler.ScheduleRetry(ctx, scheduledCallID, reason, delay); err != nil {
		logger.Error().Err(err).Int64("scheduled_call_id", scheduledCallID).Msg("webhook: failed to schedule retry")
		return
	}

	logger.Info().Int64("scheduled_call_id", scheduledCallID).Str("status", status).Msg("webhook: retry scheduled")
}
