// Package llm drives the per-turn dialogue model: a single OpenAI-compatible
// chat-completion call per customer utterance, returning the strict JSON
// contract the turn controller's guardrails operate on.
package llm

import "context"

// NextAction is what the turn controller should do with this response.
type NextAction string

const (
	ActionAskQuestion   NextAction = "ask_question"
	ActionRespond       NextAction = "respond"
	ActionScheduleVisit NextAction = "schedule_visit"
	ActionEndCall       NextAction = "end_call"
)

// TurnResponse is the structured result of one LLM turn.
type TurnResponse struct {
	Intent              string         `json:"intent"`
	NextAction          NextAction     `json:"next_action"`
	ResponseText        string         `json:"response_text"`
	ShouldEndCall        bool           `json:"should_end_call"`
	ExtractedData        map[string]any `json:"extracted_data"`
	LastQuestionAsked    string         `json:"last_question_asked,omitempty"`
	QuestionType         string         `json:"question_type,omitempty"`
	CustomerMidSentence  bool           `json:"customer_mid_sentence,omitempty"`
}

// HistoryTurn is one prior exchange fed back into the prompt as context.
type HistoryTurn struct {
	Role string // "user" or "agent"
	Text string
}

// LeadContext carries the facts about the lead the system prompt should
// reference (name, property interest, budget, location, etc.).
type LeadContext map[string]any

// Client generates the next structured turn given the conversation so far.
type Client interface {
	GenerateTurn(ctx context.Context, systemPrompt string, history []HistoryTurn, userInput string, leadCtx LeadContext) (*TurnResponse, error)
}

// DefaultResponse is the safe fallback returned whenever the LLM call fails
// or its output cannot be parsed into a TurnResponse.
func DefaultResponse() *TurnResponse {
	return &TurnResponse{
		Intent:        "unclear",
		NextAction:    ActionRespond,
		ResponseText:  "Sorry, could you repeat that?",
		ShouldEndCall: false,
		ExtractedData: map[string]any{},
	}
}
