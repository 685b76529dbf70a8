package stt

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	restInterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	clientInterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/propertyhub/voice-agent/internal/audio"
	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/resilience"
)

// locationKeywords biases recognition toward the localities our leads
// actually mention, since Deepgram's general model under-recognizes them.
var locationKeywords = []string{
	"Kharadi", "Pune", "Whitefield", "HSR Layout", "Koramangala", "Bandra",
	"Mumbai", "Gurgaon", "Noida", "Bangalore", "Bengaluru", "Hyderabad",
	"Chennai", "Jaipur", "Jhotwara", "Vaishali Nagar", "Hinjewadi", "Wakad",
	"Viman Nagar", "Aundh", "Baner",
}

// realEstateKeywords biases recognition toward domain terms callers use.
var realEstateKeywords = []string{
	"BHK", "2BHK", "3BHK", "4BHK", "registry", "patta", "possession",
	"ready to move", "under construction", "Vastu", "lakh", "crore",
}

// postProcessRules corrects mishearings that show up repeatedly in Indian
// English/Hinglish phone audio, applied case-insensitively after transcription.
var postProcessRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)\bjust exploding\b`), "just exploring"},
	{regexp.MustCompile(`(?i)\bexploding\b`), "exploring"},
	{regexp.MustCompile(`(?i)\bget i am\b`), "yeah I am"},
	{regexp.MustCompile(`(?i)\balex it'?s been running\b`), "okay"},
	{regexp.MustCompile(`(?i)\bwhat am i [a-z]+ to do\b`), "what am I going to do"},
	{regexp.MustCompile(`(?i)\b(um|uh|er|ah)\b`), ""},
	{regexp.MustCompile(`(?i)\b(\d*)bhk\b`), "${1}BHK"},
	{regexp.MustCompile(`(?i)\blac\b`), "lakh"},
	{regexp.MustCompile(`(?i)\blakh(s?)\b`), "lakh${1}"},
	{regexp.MustCompile(`(?i)\bcrores?\b`), "crore"},
	{regexp.MustCompile(`\s+`), " "},
}

func postProcessTranscript(transcript string) string {
	for _, rule := range postProcessRules {
		transcript = rule.pattern.ReplaceAllString(transcript, rule.replace)
	}
	return strings.TrimSpace(transcript)
}

// DeepgramClient transcribes a buffered utterance via Deepgram's prerecorded
// (non-streaming) endpoint. Buffered transcription was chosen over streaming
// because we already segment utterances with our own VAD and only need one
// transcript per turn, not interim partials.
type DeepgramClient struct {
	config         *config.Config
	client         *listenClient.RESTClient
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramClient builds a DeepgramClient from configuration.
func NewDeepgramClient(cfg *config.Config) (*DeepgramClient, error) {
	client, err := listenClient.NewRESTClient(
		context.Background(),
		cfg.DeepgramAPIKey,
		&clientInterfaces.ClientOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("stt: create deepgram rest client: %w", err)
	}

	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramClient{
		config:         cfg,
		client:         client,
		circuitBreaker: circuitBreaker,
	}, nil
}

// Transcribe submits a single utterance's PCM audio for transcription.
// It wraps the raw PCM in a WAV container (Deepgram's prerecorded endpoint
// needs a self-describing audio format), applies the keyword bias list, and
// rejects results below the configured confidence floor.
func (d *DeepgramClient) Transcribe(ctx context.Context, pcmData []byte, callID string) (*TranscriptionResult, error) {
	if len(pcmData) == 0 {
		return nil, nil
	}

	wavAudio := audio.WrapWAV(pcmData, 8000, 1, 16)

	keywords := make([]string, 0, len(locationKeywords)+len(realEstateKeywords))
	keywords = append(keywords, locationKeywords...)
	keywords = append(keywords, realEstateKeywords...)

	options := &restInterfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.DeepgramModel,
		Language:    d.config.DeepgramLanguage,
		Punctuate:   true,
		SmartFormat: true,
		Keywords:    keywords,
	}

	var result *TranscriptionResult
	err := d.circuitBreaker.Call(func() error {
		resp, sttErr := d.client.FromStream(ctx, bytes.NewReader(wavAudio), options)
		if sttErr != nil {
			return fmt.Errorf("stt: deepgram transcribe_file: %w", sttErr)
		}

		if resp == nil || len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
			return nil
		}

		alt := resp.Results.Channels[0].Alternatives[0]
		if alt.Transcript == "" {
			return nil
		}

		if alt.Confidence < d.config.STTMinConfidence {
			observability.GetLogger().Debug().
				Str("call_id", callID).
				Float64("confidence", alt.Confidence).
				Msg("stt transcript rejected: below confidence floor")
			return nil
		}

		result = &TranscriptionResult{
			Text:       postProcessTranscript(alt.Transcript),
			Confidence: alt.Confidence,
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		return nil, err
	}

	return result, nil
}
