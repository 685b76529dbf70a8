package domain

import "time"

// QuestionType classifies the last question the agent asked, used by the
// post-LLM guardrails to avoid re-asking for data already collected.
type QuestionType string

const (
	QuestionPurpose      QuestionType = "purpose"
	QuestionBudget       QuestionType = "budget"
	QuestionTimeline     QuestionType = "timeline"
	QuestionLocation     QuestionType = "location"
	QuestionPropertyType QuestionType = "property_type"
	QuestionOther        QuestionType = "other"
)

// TurnState is the per-call state machine position, mirrored in the session
// store between turns so a reconnect can resume mid-conversation.
type TurnState string

const (
	TurnAwaitStart      TurnState = "await_start"
	TurnGreetingOut     TurnState = "greeting_out"
	TurnListenForUser   TurnState = "listen_for_user"
	TurnTranscribing    TurnState = "transcribing"
	TurnThinking        TurnState = "thinking"
	TurnSpeaking        TurnState = "speaking"
	TurnFinalizing      TurnState = "finalizing"
	TurnClosed          TurnState = "closed"
)

// Turn is one line of the conversation: who spoke (user or agent), what
// they said, and when.
type Turn struct {
	Role      string    `json:"role"` // "user" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSession is the live, in-memory-or-Redis state of an active
// call's dialogue: turn history, extracted lead data, and the bookkeeping
// the guardrails need to avoid repetition and wrong-name slips.
type ConversationSession struct {
	CallID              string         `json:"call_id"`
	CampaignID          int64          `json:"campaign_id"`
	LeadID              int64          `json:"lead_id"`
	AgentName           string         `json:"agent_name"`
	State               TurnState      `json:"state"`
	History             []Turn         `json:"history"`
	ExtractedData       map[string]any `json:"extracted_data"`
	LastQuestionAsked    string         `json:"last_question_asked,omitempty"`
	LastQuestionType     QuestionType   `json:"last_question_type,omitempty"`
	LastIntent          string         `json:"last_intent,omitempty"`
	LastNextAction      string         `json:"last_next_action,omitempty"`
	ShouldStopSpeaking  bool           `json:"should_stop_speaking"`
	ShouldEndCall       bool           `json:"should_end_call"`
	TurnCount           int            `json:"turn_count"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NewConversationSession builds a fresh session in the AwaitStart state.
func NewConversationSession(callID string, campaignID, leadID int64, agentName string, now time.Time) *ConversationSession {
	return &ConversationSession{
		CallID:        callID,
		CampaignID:    campaignID,
		LeadID:        leadID,
		AgentName:     agentName,
		State:         TurnAwaitStart,
		History:       make([]Turn, 0, 16),
		ExtractedData: make(map[string]any),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AppendTurn records one exchange and bumps the updated-at timestamp. History
// is truncated by the LLM client to the most recent 8 turns before each
// completion request; the full history is retained here for transcription.
func (c *ConversationSession) AppendTurn(role, text string, now time.Time) {
	c.History = append(c.History, Turn{Role: role, Text: text, Timestamp: now})
	c.UpdatedAt = now
}

// RecentHistory returns the last n turns, or the whole history if shorter.
func (c *ConversationSession) RecentHistory(n int) []Turn {
	if len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// MergeExtractedData copies non-nil fields from incoming into the session's
// ExtractedData map. Existing non-nil values are never overwritten with nil,
// keeping the merge monotonic: once a field is known it stays known.
func (c *ConversationSession) MergeExtractedData(incoming map[string]any) {
	if c.ExtractedData == nil {
		c.ExtractedData = make(map[string]any)
	}
	for k, v := range incoming {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		c.ExtractedData[k] = v
	}
}

// HasField reports whether a piece of lead data has already been collected,
// used to suppress re-asking an already-answered question.
func (c *ConversationSession) HasField(name string) bool {
	v, ok := c.ExtractedData[name]
	if !ok {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return v != nil
}
