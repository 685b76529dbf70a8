package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/resilience"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// voiceSettings tunes delivery; values chosen for a calm, natural sales-call
// voice rather than expressive narration.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabsClient synthesizes agent speech via ElevenLabs' HTTP API,
// requesting raw 8kHz PCM directly so no audio transcoding step is needed
// before the chunk is written back onto the telephony stream.
type ElevenLabsClient struct {
	apiKey         string
	voiceID        string
	modelID        string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewElevenLabsClient builds an ElevenLabsClient from configuration.
func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	circuitBreaker := resilience.NewCircuitBreaker(
		"elevenlabs",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &ElevenLabsClient{
		apiKey:     cfg.ElevenLabsAPIKey,
		voiceID:    cfg.ElevenLabsVoiceID,
		modelID:    cfg.ElevenLabsModelID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		circuitBreaker: circuitBreaker,
	}
}

// Synthesize requests speech audio for text and returns 16-bit mono PCM
// sampled at 8kHz (output_format=pcm_8000), matching what the telephony
// gateway needs without further resampling or μ-law conversion.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, callID string) ([]byte, error) {
	reqBody := synthesizeRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.40,
			SimilarityBoost: 0.75,
			Style:           0.15,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=pcm_8000&optimize_streaming_latency=3", elevenLabsBaseURL, c.voiceID)

	var audioData []byte
	callErr := c.circuitBreaker.Call(func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return fmt.Errorf("tts: build request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", c.apiKey)
		req.Header.Set("Accept", "audio/pcm")

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return fmt.Errorf("tts: request failed: %w", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("tts: elevenlabs returned status %d: %s", resp.StatusCode, string(body))
		}

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("tts: read response body: %w", readErr)
		}
		if len(data) == 0 {
			return fmt.Errorf("tts: elevenlabs returned empty audio")
		}

		audioData = data
		return nil
	})

	observability.UpdateCircuitBreakerState("elevenlabs", int(c.circuitBreaker.GetState()))
	if callErr != nil {
		observability.IncrementCircuitBreakerFailures("elevenlabs")
		observability.GetLogger().Error().
			Err(callErr).
			Str("call_id", callID).
			Msg("tts: synthesis failed")
		return nil, callErr
	}

	observability.GetLogger().Debug().
		Str("call_id", callID).
		Int("bytes", len(audioData)).
		Msg("tts: synthesis complete")

	return audioData, nil
}
