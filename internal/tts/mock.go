package tts

import (
	"context"
	"time"
)

// mockSynth answers every request with silence, 10 ms per input byte.
type mockSynth struct {
	sampleRate int
	channels   int
}

func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		case <-time.After(10 * time.Millisecond):
		}
		samples := len(req.Text) * m.sampleRate / 100
		chunks <- SynthChunk{
			SessionID:  req.SessionID,
			SampleRate: m.sampleRate,
			Channels:   m.channels,
			BitDepth:   16,
			PCM:        make([]byte, 2*samples*m.channels),
			Final:      true,
			Stats:      &SynthStats{Samples: samples},
		}
	}()
	return chunks, errs
}
