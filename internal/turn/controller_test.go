package turn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/propertyhub/voice-agent/internal/audio"
	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/interrupt"
	"github.com/propertyhub/voice-agent/internal/llm"
	"github.com/propertyhub/voice-agent/internal/session"
	"github.com/propertyhub/voice-agent/internal/stt"
)

type fakeSTT struct {
	text       string
	confidence float64
}

func (f *fakeSTT) Transcribe(ctx context.Context, pcmData []byte, callID string) (*stt.TranscriptionResult, error) {
	if f.text == "" {
		return nil, nil
	}
	return &stt.TranscriptionResult{Text: f.text, Confidence: f.confidence}, nil
}

type fakeLLM struct {
	resp *llm.TurnResponse
}

func (f *fakeLLM) GenerateTurn(ctx context.Context, systemPrompt string, history []llm.HistoryTurn, userInput string, leadCtx llm.LeadContext) (*llm.TurnResponse, error) {
	r := *f.resp
	return &r, nil
}

type fakeTTS struct{}

func (f *fakeTTS) Synthesize(ctx context.Context, text, callID string) ([]byte, error) {
	return make([]byte, 320), nil // 20ms of silence at 8kHz/16-bit
}

func testConfig() *config.Config {
	return &config.Config{
		VADEnergyThreshold: 30.0,
		VADSilenceFrames:   1,
		MinUtteranceBytes:  10,
	}
}

func newTestController(t *testing.T, llmResp *llm.TurnResponse, sttText string) (*Controller, *[]string, *domain.CallOutcome) {
	t.Helper()
	var sent []string
	var mu sync.Mutex
	var finalOutcome domain.CallOutcome

	send := func(streamSID, payload string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, payload)
		return nil
	}

	ctrl := NewController(
		StartInfo{
			CallID:       "call-1",
			StreamSID:    "stream-1",
			CampaignID:   1,
			LeadID:       2,
			AgentName:    "Priya",
			LeadName:     "Rajesh",
			PropertyType: "3BHK",
			Location:     "Whitefield",
			Budget:       "80 lakhs",
		},
		session.NewStore(nil, time.Hour),
		interrupt.NewManager(),
		&fakeSTT{text: sttText, confidence: 0.9},
		&fakeLLM{resp: llmResp},
		&fakeTTS{},
		testConfig(),
		send,
		func(sess *domain.ConversationSession, outcome domain.CallOutcome) { finalOutcome = outcome },
	)
	return ctrl, &sent, &finalOutcome
}

func TestController_HandleStart_SpeaksIntroAndListens(t *testing.T) {
	ctrl, sent, _ := newTestController(t, llm.DefaultResponse(), "")
	if err := ctrl.HandleStart(context.Background()); err != nil {
		t.Fatalf("HandleStart failed: %v", err)
	}
	if len(*sent) == 0 {
		t.Error("expected the intro to produce at least one egress frame")
	}
	if !ctrl.waitingForResponse {
		t.Error("expected controller to be waiting for the caller after the intro")
	}
}

func TestController_FullTurn_EndsCallOnQualifiedSignal(t *testing.T) {
	resp := &llm.TurnResponse{
		Intent:        "ready_to_visit",
		NextAction:    llm.ActionScheduleVisit,
		ResponseText:  "Great, let's get that visit booked for Saturday.",
		ShouldEndCall: true,
		ExtractedData: map[string]any{"budget": "80 lakhs", "timeline": "next month"},
	}
	ctrl, sent, _ := newTestController(t, resp, "yes Saturday works for me")

	if err := ctrl.HandleStart(context.Background()); err != nil {
		t.Fatalf("HandleStart failed: %v", err)
	}

	loud := make([]byte, 320)
	for i := 0; i < len(loud); i += 2 {
		loud[i] = 0x00
		loud[i+1] = 0x40 // int16 big enough to clear the RMS threshold
	}
	if err := ctrl.HandleMedia(context.Background(), audio.EncodeBase64(loud)); err != nil {
		t.Fatalf("HandleMedia (speech) failed: %v", err)
	}

	silence := make([]byte, 3200)
	if err := ctrl.HandleMedia(context.Background(), audio.EncodeBase64(silence)); err != nil {
		t.Fatalf("HandleMedia (silence) failed: %v", err)
	}

	if !ctrl.closed {
		t.Error("expected controller to finalize after should_end_call=true")
	}
	if len(*sent) == 0 {
		t.Error("expected at least one egress frame across intro + reply")
	}
}

func TestController_HandleClear_DropsBuffer(t *testing.T) {
	ctrl, _, _ := newTestController(t, llm.DefaultResponse(), "")
	ctrl.audioBuffer = []byte{1, 2, 3}
	ctrl.HandleClear()
	if len(ctrl.audioBuffer) != 0 {
		t.Error("expected HandleClear to empty the audio buffer")
	}
}
