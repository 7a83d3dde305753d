package tts

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-sam/internal/eventstore"
	"github.com/loqalabs/loqa-sam/internal/protocol"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

const (
	EventSynthesized = "tts.synthesized"
	EventFailed      = "tts.failed"
)

const (
	anonymousSession = "anonymous"
	eventPrivacy     = "internal"
)

// Recorder appends one event per synthesis. A nil Recorder records nothing.
type Recorder struct {
	store  *eventstore.Store
	logger *slog.Logger
}

func NewRecorder(store *eventstore.Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.With(slog.String("component", "tts-recorder"))}
}

// Record stores the outcome of req. stats may be nil when the synthesizer
// does not report them.
func (r *Recorder) Record(req protocol.TTSRequest, voice renderer.Options, stats *SynthStats, chunks int, elapsed time.Duration, synthErr error) {
	if r == nil || r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = anonymousSession
	}
	if err := r.store.AppendSession(ctx, sessionID, req.Target, eventPrivacy); err != nil {
		r.logger.Warn("failed to append tts session", slogError(err))
	}
	payload := map[string]any{
		"text":        req.Text,
		"voice":       voice,
		"chunks":      chunks,
		"duration_ms": elapsed.Milliseconds(),
	}
	if stats != nil {
		payload["phonemes"] = stats.Phonemes
		payload["frames"] = stats.Frames
		payload["samples"] = stats.Samples
		payload["cached"] = stats.Cached
	}
	eventType := EventSynthesized
	if synthErr != nil {
		eventType = EventFailed
		payload["error"] = synthErr.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("failed to marshal tts event", slogError(err))
		return
	}
	evt := eventstore.Event{
		SessionID: sessionID,
		ActorID:   req.Target,
		Type:      eventType,
		Payload:   data,
		Privacy:   eventPrivacy,
	}
	if err := r.store.AppendEvent(ctx, evt); err != nil {
		r.logger.Warn("failed to append tts event", slogError(err))
	}
}
