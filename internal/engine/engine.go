// Package engine ties the phoneme parser and the formant renderer together
// and packages the result as audio.
package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/loqalabs/loqa-sam/internal/parser"
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// Speech is one synthesized utterance.
type Speech struct {
	Text     string
	Phonemes phoneme.Sequence
	Voice    renderer.Options
	*renderer.Result
}

// Engine is safe for concurrent use.
type Engine struct {
	parser *parser.Parser
	logger *slog.Logger
}

// New returns an engine. A nil logger discards.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		parser: parser.New(parser.WithLogger(logger)),
		logger: logger,
	}
}

// Phonemes parses text without rendering it.
func (e *Engine) Phonemes(text string) (phoneme.Sequence, error) {
	seq, err := e.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return seq, nil
}

// Speak parses and renders text with the given voice.
func (e *Engine) Speak(text string, voice renderer.Options) (*Speech, error) {
	seq, err := e.Phonemes(text)
	if err != nil {
		return nil, err
	}
	res, err := renderer.Render(seq, voice)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	e.logger.Debug("speech rendered",
		slog.Int("phonemes", len(seq)),
		slog.Int("frames", res.Frames()),
		slog.Int("samples", len(res.Samples)))
	return &Speech{Text: text, Phonemes: seq, Voice: voice, Result: res}, nil
}
