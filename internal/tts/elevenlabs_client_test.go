package tts

import (
	"encoding/json"
	"testing"
)

func TestSynthesizeRequest_MarshalsVoiceSettings(t *testing.T) {
	req := synthesizeRequest{
		Text:    "Hello, am I speaking with Ramesh?",
		ModelID: "eleven_turbo_v2",
		VoiceSettings: voiceSettings{
			Stability:       0.40,
			SimilarityBoost: 0.75,
			Style:           0.15,
			UseSpeakerBoost: true,
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var roundTrip map[string]any
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	settings, ok := roundTrip["voice_settings"].(map[string]any)
	if !ok {
		t.Fatal("expected voice_settings object in marshaled request")
	}
	if settings["stability"] != 0.40 {
		t.Errorf("expected stability 0.40, got %v", settings["stability"])
	}
	if settings["similarity_boost"] != 0.75 {
		t.Errorf("expected similarity_boost 0.75, got %v", settings["similarity_boost"])
	}
}

func TestNewElevenLabsClient_UsesConfiguredVoice(t *testing.T) {
	client := &ElevenLabsClient{
		apiKey:  "test-key",
		voiceID: "21m00Tcm4TlvDq8ikWAM",
		modelID: "eleven_turbo_v2",
	}
	if client.voiceID != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("expected configured voice ID, got %q", client.voiceID)
	}
}
