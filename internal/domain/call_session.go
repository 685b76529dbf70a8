package domain

import "time"

// CallSessionStatus tracks a call's progress as reported by the telephony
// provider's status webhook, plus the gateway's own lifecycle markers.
type CallSessionStatus string

const (
	CallSessionInitiated  CallSessionStatus = "initiated"
	CallSessionRinging    CallSessionStatus = "ringing"
	CallSessionInProgress CallSessionStatus = "in_progress"
	CallSessionCompleted  CallSessionStatus = "completed"
	CallSessionFailed     CallSessionStatus = "failed"
	CallSessionNoAnswer   CallSessionStatus = "no_answer"
	CallSessionBusy       CallSessionStatus = "busy"
)

// CallOutcome is the business-level result of a completed conversation,
// derived by the turn controller from the LLM's last intent and next_action.
type CallOutcome string

const (
	OutcomeQualified          CallOutcome = "qualified"
	OutcomeNotInterested      CallOutcome = "not_interested"
	OutcomeCallbackRequested  CallOutcome = "callback_requested"
	OutcomeNoAnswer           CallOutcome = "no_answer"
	OutcomeDisconnected       CallOutcome = "disconnected"
	OutcomeError              CallOutcome = "error"
)

// CallSession is the durable record of one phone call: provider call id,
// lifecycle status, timing, and the eventual business outcome.
type CallSession struct {
	ID               int64             `json:"id"`
	LeadID           int64             `json:"lead_id"`
	CampaignID       int64             `json:"campaign_id"`
	ScheduledCallID  *int64            `json:"scheduled_call_id,omitempty"`
	ProviderCallID   string            `json:"provider_call_id,omitempty"`
	StreamSID        string            `json:"stream_sid,omitempty"`
	Status           CallSessionStatus `json:"status"`
	Outcome          CallOutcome       `json:"outcome,omitempty"`
	AnsweredAt       *time.Time        `json:"answered_at,omitempty"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
	DurationSeconds  int               `json:"duration_seconds,omitempty"`
	RecordingURL     string            `json:"recording_url,omitempty"`
	Transcript       []TranscriptTurn  `json:"transcript,omitempty"`
	ExtractedData    map[string]any    `json:"extracted_data,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TranscriptTurn is one line of the final, ordered conversation transcript.
type TranscriptTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IsTerminal reports whether the provider has reported a final status for
// this call and no further webhook updates are expected.
func (s CallSessionStatus) IsTerminal() bool {
	switch s {
	case CallSessionCompleted, CallSessionFailed, CallSessionNoAnswer, CallSessionBusy:
		return true
	default:
		return false
	}
}

// FailureReason maps a terminal, non-completed status to the FailureReason
// the scheduler's retry ladder keys on. Returns "" for non-failure statuses.
func (s CallSessionStatus) FailureReason() FailureReason {
	switch s {
	case CallSessionNoAnswer:
		return FailureNoAnswer
	case CallSessionBusy:
		return FailureBusy
	case CallSessionFailed:
		return FailureFailed
	default:
		return ""
	}
}
