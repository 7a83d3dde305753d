package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

const instrumentationName = "github.com/loqalabs/loqa-sam/internal/tts"

type cacheKey struct {
	text  string
	voice renderer.Options
}

// SAM synthesizes with the built-in formant engine. Rendered utterances are
// kept in an LRU cache keyed by text and voice; cached speech is shared and
// must not be modified.
type SAM struct {
	engine       *engine.Engine
	cache        *lru.Cache[cacheKey, *engine.Speech]
	chunkSamples int
	logger       *slog.Logger

	tracer   trace.Tracer
	phonemes metric.Int64Counter
	samples  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSAM returns the engine-backed synthesizer. A cacheSize of 0 disables
// caching.
func NewSAM(eng *engine.Engine, cacheSize, chunkDurationMS int, logger *slog.Logger) (*SAM, error) {
	if chunkDurationMS <= 0 {
		return nil, errors.New("chunk duration must be positive")
	}
	s := &SAM{
		engine:       eng,
		chunkSamples: max(1, renderer.SampleRate*chunkDurationMS/1000),
		logger:       logger.With(slog.String("component", "sam-synth")),
		tracer:       otel.Tracer(instrumentationName),
	}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, *engine.Speech](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create speech cache: %w", err)
		}
		s.cache = cache
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if s.phonemes, err = meter.Int64Counter("sam.parse.phonemes", metric.WithDescription("Phonemes produced by the parser")); err != nil {
		return nil, err
	}
	if s.samples, err = meter.Int64Counter("sam.render.samples", metric.WithDescription("PCM samples rendered")); err != nil {
		return nil, err
	}
	if s.duration, err = meter.Float64Histogram("sam.synthesis.duration", metric.WithDescription("Parse and render time"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return s, nil
}

// Speak renders text, consulting the cache first.
func (s *SAM) Speak(ctx context.Context, text string, voice renderer.Options) (*engine.Speech, bool, error) {
	ctx, span := s.tracer.Start(ctx, "sam.speak", trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	key := cacheKey{text: text, voice: voice}
	if s.cache != nil {
		if sp, ok := s.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return sp, true, nil
		}
	}

	start := time.Now()
	sp, err := s.engine.Speak(text, voice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	s.phonemes.Add(ctx, int64(len(sp.Phonemes)))
	s.samples.Add(ctx, int64(len(sp.Samples)))
	s.duration.Record(ctx, elapsed)
	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Int("phonemes", len(sp.Phonemes)),
		attribute.Int("samples", len(sp.Samples)),
	)

	if s.cache != nil {
		s.cache.Add(key, sp)
	}
	return sp, false, nil
}

// Phonemes parses text without rendering.
func (s *SAM) Phonemes(text string) (phoneme.Sequence, error) {
	return s.engine.Phonemes(text)
}

// Synthesize streams the rendered 8-bit PCM in chunk-duration slices.
func (s *SAM) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		sp, cached, err := s.Speak(ctx, req.Text, req.Voice)
		if err != nil {
			errs <- err
			return
		}
		stats := &SynthStats{
			Phonemes: len(sp.Phonemes),
			Frames:   sp.Frames(),
			Samples:  len(sp.Samples),
			Cached:   cached,
		}

		pcm := sp.Samples
		sequence := 0
		for {
			n := min(len(pcm), s.chunkSamples)
			chunk := SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   sequence,
				SampleRate: renderer.SampleRate,
				Channels:   1,
				BitDepth:   8,
				PCM:        pcm[:n],
				Final:      n == len(pcm),
			}
			if chunk.Final {
				chunk.Stats = stats
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			if chunk.Final {
				return
			}
			pcm = pcm[n:]
			sequence++
		}
	}()
	return chunks, errs
}
