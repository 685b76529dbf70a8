package domain

import "time"

// ScheduledCallStatus is the lifecycle state of a ScheduledCall.
type ScheduledCallStatus string

const (
	ScheduledCallPending         ScheduledCallStatus = "pending"
	ScheduledCallCalling         ScheduledCallStatus = "calling"
	ScheduledCallCompleted       ScheduledCallStatus = "completed"
	ScheduledCallFailed          ScheduledCallStatus = "failed"
	ScheduledCallCancelled       ScheduledCallStatus = "cancelled"
	ScheduledCallMaxRetriesReached ScheduledCallStatus = "max_retries_reached"
)

var scheduledCallTransitions = map[ScheduledCallStatus][]ScheduledCallStatus{
	ScheduledCallPending:           {ScheduledCallCalling, ScheduledCallCancelled},
	ScheduledCallCalling:           {ScheduledCallCompleted, ScheduledCallFailed, ScheduledCallPending, ScheduledCallCancelled},
	ScheduledCallFailed:            {ScheduledCallPending, ScheduledCallMaxRetriesReached, ScheduledCallCancelled},
	ScheduledCallCompleted:         {},
	ScheduledCallCancelled:         {},
	ScheduledCallMaxRetriesReached: {},
}

// CanTransition reports whether moving from the receiver to next is permitted.
func (s ScheduledCallStatus) CanTransition(next ScheduledCallStatus) bool {
	for _, allowed := range scheduledCallTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FailureReason classifies why a dialed call did not complete, and drives the
// retry-delay ladder in the scheduler.
type FailureReason string

const (
	FailureNoAnswer FailureReason = "no_answer"
	FailureBusy     FailureReason = "busy"
	FailureFailed   FailureReason = "failed"
)

// RetryDelay returns how long the scheduler should wait before redialing,
// keyed by the reason the previous attempt did not complete.
func (r FailureReason) RetryDelay() time.Duration {
	switch r {
	case FailureNoAnswer:
		return 2 * time.Hour
	case FailureBusy:
		return 4 * time.Hour
	case FailureFailed:
		return 1 * time.Hour
	default:
		return 1 * time.Hour
	}
}

// ScheduledCall is a single queued attempt to reach a Lead within a Campaign.
// At most one non-terminal ScheduledCall may exist per (LeadID, CampaignID)
// pair; enforced by the durable store via a unique partial index, not here.
type ScheduledCall struct {
	ID            int64               `json:"id"`
	LeadID        int64               `json:"lead_id"`
	CampaignID    int64               `json:"campaign_id"`
	Status        ScheduledCallStatus `json:"status"`
	ScheduledFor  time.Time           `json:"scheduled_for"`
	Attempts      int                 `json:"attempts"`
	MaxAttempts   int                 `json:"max_attempts"`
	LastFailure   FailureReason       `json:"last_failure,omitempty"`
	CallSessionID *int64              `json:"call_session_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IsTerminal reports whether the call has reached a state the worker loop
// will never pick up again.
func (s ScheduledCallStatus) IsTerminal() bool {
	switch s {
	case ScheduledCallCompleted, ScheduledCallCancelled, ScheduledCallMaxRetriesReached:
		return true
	default:
		return false
	}
}

// Transition moves the scheduled call to next, returning an error if the
// edge is not allowed by the status DAG.
func (sc *ScheduledCall) Transition(next ScheduledCallStatus) error {
	if !sc.Status.CanTransition(next) {
		return &InvalidTransitionError{Entity: "scheduled_call", From: string(sc.Status), To: string(next)}
	}
	sc.Status = next
	return nil
}

// ScheduleRetry bumps the attempt counter and either requeues the call for a
// later time or marks it max_retries_reached, depending on MaxAttempts.
func (sc *ScheduledCall) ScheduleRetry(reason FailureReason, now time.Time) error {
	sc.Attempts++
	sc.LastFailure = reason
	if sc.Attempts >= sc.MaxAttempts {
		return sc.Transition(ScheduledCallMaxRetriesReached)
	}
	if err := sc.Transition(ScheduledCallPending); err != nil {
		return err
	}
	sc.ScheduledFor = now.Add(reason.RetryDelay())
	return nil
}
