package llm

import "testing"

func TestDecodeTurnResponse_Complete(t *testing.T) {
	raw := `{
		"intent": "interested",
		"next_action": "ask_question",
		"response_text": "Sounds good! What's your budget range?",
		"should_end_call": false,
		"extracted_data": {"property_type": "2BHK"},
		"last_question_asked": "What's your budget range?",
		"question_type": "budget"
	}`

	resp, err := decodeTurnResponse(raw)
	if err != nil {
		t.Fatalf("decodeTurnResponse failed: %v", err)
	}
	if resp.Intent != "interested" {
		t.Errorf("expected intent 'interested', got %q", resp.Intent)
	}
	if resp.NextAction != ActionAskQuestion {
		t.Errorf("expected next_action 'ask_question', got %q", resp.NextAction)
	}
	if resp.ExtractedData["property_type"] != "2BHK" {
		t.Errorf("expected extracted_data property_type '2BHK', got %v", resp.ExtractedData["property_type"])
	}
	if resp.QuestionType != "budget" {
		t.Errorf("expected question_type 'budget', got %q", resp.QuestionType)
	}
}

func TestDecodeTurnResponse_MissingFields(t *testing.T) {
	raw := `{"response_text": "Got it, thanks!"}`

	resp, err := decodeTurnResponse(raw)
	if err != nil {
		t.Fatalf("decodeTurnResponse failed: %v", err)
	}
	if resp.Intent != "unclear" {
		t.Errorf("expected default intent 'unclear', got %q", resp.Intent)
	}
	if resp.NextAction != ActionRespond {
		t.Errorf("expected default next_action 'respond', got %q", resp.NextAction)
	}
	if resp.ExtractedData == nil {
		t.Error("expected non-nil extracted_data even when absent from JSON")
	}
}

func TestDecodeTurnResponse_EmptyResponseTextRejected(t *testing.T) {
	raw := `{"intent": "unclear", "next_action": "respond", "response_text": "", "should_end_call": false}`

	_, err := decodeTurnResponse(raw)
	if err == nil {
		t.Error("expected error for empty response_text")
	}
}

func TestDecodeTurnResponse_InvalidJSON(t *testing.T) {
	_, err := decodeTurnResponse("not json at all")
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDefaultResponse(t *testing.T) {
	resp := DefaultResponse()
	if resp.Intent != "unclear" {
		t.Errorf("expected intent 'unclear', got %q", resp.Intent)
	}
	if resp.ShouldEndCall {
		t.Error("expected should_end_call false")
	}
	if resp.ExtractedData == nil {
		t.Error("expected non-nil extracted_data")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Errorf("expected truncated string 'hello', got %q", got)
	}
}
