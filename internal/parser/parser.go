// Package parser turns phonetic text into an annotated phoneme sequence.
//
// The notation is upper-case phoneme names ("/HEHLOW"), stress digits 1-8
// written after a vowel, spaces for pauses and the punctuation marks
// ". ? , -". Parsing runs name matching, the context rules, the prosody
// passes and breath insertion in that order.
package parser

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// Parser converts text to phoneme sequences. The zero value is not usable;
// construct with New. A Parser holds no per-call state and may be shared.
type Parser struct {
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger routes skipped-character diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse runs the default parser.
func Parse(text string) (phoneme.Sequence, error) {
	return defaultParser.Parse(text)
}

// Parse returns the phoneme sequence for text. Pauses are consumed and not
// part of the result; Break markers are. The result never holds more than
// phoneme.MaxLen triples: longer output fails with phoneme.ErrTooLong.
func (p *Parser) Parse(text string) (phoneme.Sequence, error) {
	b := newBuffer()
	if err := p.matchNames(b, normalize(text)); err != nil {
		return nil, err
	}
	if err := applyContextRules(b); err != nil {
		return nil, fmt.Errorf("context rules: %w", err)
	}
	copyStress(b)
	assignLengths(b)
	adjustLengths(b)
	if err := expandStops(b); err != nil {
		return nil, fmt.Errorf("expand stops: %w", err)
	}
	for pos, t := range b.items {
		if int(t.Index) >= phoneme.Count {
			return nil, fmt.Errorf("position %d holds %d: %w", pos, t.Index, phoneme.ErrInvalidIndex)
		}
	}
	if err := insertBreath(b); err != nil {
		return nil, fmt.Errorf("insert breath: %w", err)
	}

	out := make(phoneme.Sequence, 0, b.len())
	for _, t := range b.items {
		if t.Index == phoneme.Pause {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// matchNames fills b from the normalized text: two-letter names first, then
// single-letter names, then stress digits. Anything else is skipped.
func (p *Parser) matchNames(b *buffer, text string) error {
	for i := 0; i < len(text); {
		first := text[i]
		var second byte
		if i+1 < len(text) {
			second = text[i+1]
		}
		if idx, ok := matchFull(first, second); ok {
			if err := b.push(phoneme.Triple{Index: idx}); err != nil {
				return fmt.Errorf("match %q: %w", text[i:i+2], err)
			}
			i += 2
			continue
		}
		i++
		if idx, ok := matchWildcard(first); ok {
			if err := b.push(phoneme.Triple{Index: idx}); err != nil {
				return fmt.Errorf("match %q: %w", first, err)
			}
			continue
		}
		if s, ok := stressDigit(first); ok && b.len() > 0 {
			b.items[b.len()-1].Stress = s
			continue
		}
		p.logger.Debug("skipping unrecognized character",
			slog.String("char", string(first)),
			slog.Int("offset", i-1),
		)
	}
	return nil
}
