package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting audio levels and silence
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// EncodeBase64 encodes raw audio bytes for embedding in a media-stream
// "media" event payload.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes the payload carried in an inbound "media" event.
func DecodeBase64(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64 payload: %w", err)
	}
	return data, nil
}

// DurationMS returns the duration, in milliseconds, of a buffer of 16-bit
// mono PCM sampled at sampleRate.
func DurationMS(pcmData []byte, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	numSamples := len(pcmData) / 2
	return (numSamples * 1000) / sampleRate
}

// Chunk splits pcmData into consecutive slices each covering chunkMS
// milliseconds at sampleRate, used to pace egress audio onto the wire at
// real-time rate. The final chunk may be shorter than chunkMS.
func Chunk(pcmData []byte, sampleRate, chunkMS int) [][]byte {
	if len(pcmData) == 0 || chunkMS <= 0 || sampleRate <= 0 {
		return nil
	}

	bytesPerMS := (sampleRate * 2) / 1000
	chunkBytes := bytesPerMS * chunkMS
	if chunkBytes <= 0 {
		return [][]byte{pcmData}
	}

	var chunks [][]byte
	for start := 0; start < len(pcmData); start += chunkBytes {
		end := start + chunkBytes
		if end > len(pcmData) {
			end = len(pcmData)
		}
		chunks = append(chunks, pcmData[start:end])
	}
	return chunks
}

// WrapWAV prepends a canonical 44-byte RIFF/WAVE header to raw 16-bit PCM
// data, producing a file Deepgram's buffered transcription endpoint accepts.
func WrapWAV(pcmData []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := uint32(len(pcmData))
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], dataSize+36)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	wav := make([]byte, 0, len(header)+len(pcmData))
	wav = append(wav, header...)
	wav = append(wav, pcmData...)
	return wav
}

