package tts

import "context"

// TTSClient synthesizes speech audio for a single utterance of agent text.
// Unlike a streaming API, callers get the complete PCM payload back in one
// call; the turn controller paces it onto the wire itself via audio.Chunk.
type TTSClient interface {
	// Synthesize converts text to 16-bit mono PCM at 8kHz.
	Synthesize(ctx context.Context, text, callID string) ([]byte, error)
}
