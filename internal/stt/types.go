package stt

import "context"

// TranscriptionResult is the outcome of a buffered transcription request.
type TranscriptionResult struct {
	// Text is the transcribed, post-processed utterance.
	Text string

	// Confidence is the provider's confidence score (0.0 to 1.0).
	Confidence float64
}

// STTClient transcribes a complete utterance's worth of PCM audio. Unlike a
// streaming client, it is called once per detected utterance (after VAD
// marks speech as ended) rather than fed audio continuously.
type STTClient interface {
	// Transcribe submits pcmData (16-bit mono linear PCM, 8kHz) for a single
	// call and returns the result, or nil if the transcript was rejected for
	// low confidence or came back empty.
	Transcribe(ctx context.Context, pcmData []byte, callID string) (*TranscriptionResult, error)
}
