package tts

import (
	"context"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	SessionID string
	Text      string
	Voice     renderer.Options
}

// SynthChunk contains PCM data.
type SynthChunk struct {
	SessionID  string
	Sequence   int
	SampleRate int
	Channels   int
	BitDepth   int
	PCM        []byte
	Final      bool
	// Stats is set on the final chunk by synthesizers that know them.
	Stats *SynthStats
}

// SynthStats summarizes one utterance.
type SynthStats struct {
	Phonemes int  `json:"phonemes"`
	Frames   int  `json:"frames"`
	Samples  int  `json:"samples"`
	Cached   bool `json:"cached"`
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// Phonemizer answers parse-only queries.
type Phonemizer interface {
	Phonemes(text string) (phoneme.Sequence, error)
}
