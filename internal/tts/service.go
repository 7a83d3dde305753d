package tts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-sam/internal/bus"
	"github.com/loqalabs/loqa-sam/internal/config"
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/protocol"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// AudioSink receives rendered 8-bit PCM for local playback.
type AudioSink interface {
	Enqueue(pcm []byte)
}

type Service struct {
	cfg    config.TTSConfig
	voice  renderer.Options
	bus    *bus.Client
	synth  Synthesizer
	phon   Phonemizer
	rec    *Recorder
	sink   AudioSink
	subs   []*nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

type ServiceOption func(*Service)

// WithDefaultVoice sets the voice used when a request carries none.
func WithDefaultVoice(v renderer.Options) ServiceOption {
	return func(s *Service) { s.voice = v }
}

// WithPhonemizer enables tts.phonemes replies.
func WithPhonemizer(p Phonemizer) ServiceOption {
	return func(s *Service) { s.phon = p }
}

// WithRecorder logs every synthesis to the event store.
func WithRecorder(rec *Recorder) ServiceOption {
	return func(s *Service) { s.rec = rec }
}

func WithAudioSink(sink AudioSink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

func NewService(parent context.Context, cfg config.TTSConfig, busClient *bus.Client, synth Synthesizer, log *slog.Logger, opts ...ServiceOption) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		cfg:    cfg,
		voice:  renderer.DefaultOptions(),
		bus:    busClient,
		synth:  synth,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "tts-service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectTTSRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	if s.phon != nil {
		sub, err := s.bus.Conn().Subscribe(protocol.SubjectTTSPhonemes, s.handlePhonemes)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || len(s.subs) > 0 }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.TTSRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode tts request", slogError(err))
		return
	}
	voice := s.voice
	if req.Voice != nil {
		voice = VoiceFromProtocol(*req.Voice)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout())
		defer cancel()

		start := time.Now()
		chunks, errs := s.synth.Synthesize(ctx, SynthRequest{SessionID: req.SessionID, Text: req.Text, Voice: voice})
		sequence := 0
		var stats *SynthStats
		var synthErr error
		for chunks != nil || errs != nil {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					chunks = nil
					continue
				}
				chunk.Sequence = sequence
				sequence++
				if chunk.Stats != nil {
					stats = chunk.Stats
				}
				s.publishChunk(req, chunk)
			case err, ok := <-errs:
				if ok && err != nil {
					s.logger.Warn("tts synthesis error", slog.String("session_id", req.SessionID), slogError(err))
					synthErr = err
				}
				errs = nil
			case <-ctx.Done():
				synthErr = ctx.Err()
				s.logger.Warn("tts synthesis cancelled", slogError(synthErr))
				chunks, errs = nil, nil
			}
		}
		if synthErr == nil && sequence == 0 {
			synthErr = errors.New("synthesizer produced no audio")
		}
		if synthErr != nil {
			s.publishStatus(protocol.TTSStatus{SessionID: req.SessionID, Target: req.Target, Error: synthErr.Error(), Chunks: sequence})
		}
		s.rec.Record(req, voice, stats, sequence, time.Since(start), synthErr)
	}()
}

func (s *Service) timeout() time.Duration {
	if s.cfg.TimeoutMS <= 0 {
		return 45 * time.Second
	}
	return time.Duration(s.cfg.TimeoutMS) * time.Millisecond
}

func (s *Service) publishChunk(req protocol.TTSRequest, chunk SynthChunk) {
	packet := protocol.AudioChunk{
		SessionID:  req.SessionID,
		Target:     req.Target,
		SampleRate: chunk.SampleRate,
		Channels:   chunk.Channels,
		BitDepth:   chunk.BitDepth,
		Sequence:   chunk.Sequence,
		PCM:        chunk.PCM,
		Final:      chunk.Final,
	}
	data, err := json.Marshal(packet)
	if err != nil {
		s.logger.Warn("failed to marshal tts chunk", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTTSAudio, data); err != nil {
		s.logger.Warn("failed to publish tts chunk", slogError(err))
	}
	if s.sink != nil && chunk.BitDepth == 8 && chunk.SampleRate == renderer.SampleRate {
		s.sink.Enqueue(chunk.PCM)
	}
	if chunk.Final {
		s.publishStatus(protocol.TTSStatus{SessionID: req.SessionID, Target: req.Target, Completed: true, Chunks: chunk.Sequence + 1})
	}
}

func (s *Service) publishStatus(status protocol.TTSStatus) {
	status.Timestamp = time.Now().UTC()
	data, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("failed to marshal tts status", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTTSDone, data); err != nil {
		s.logger.Warn("failed to publish tts status", slogError(err))
	}
}

func (s *Service) handlePhonemes(msg *nats.Msg) {
	var req protocol.PhonemeRequest
	var reply protocol.PhonemeReply
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		reply.Error = "invalid request: " + err.Error()
	} else if seq, err := s.phon.Phonemes(req.Text); err != nil {
		reply.Error = err.Error()
	} else {
		reply.Phonemes = PhonemesToProtocol(seq)
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal phoneme reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond to phoneme request", slogError(err))
	}
}

// VoiceFromProtocol converts wire voice parameters.
func VoiceFromProtocol(v protocol.Voice) renderer.Options {
	return renderer.Options{Pitch: v.Pitch, Speed: v.Speed, Mouth: v.Mouth, Throat: v.Throat, Sing: v.Sing}
}

// VoiceFromConfig converts the configured default voice.
func VoiceFromConfig(v config.VoiceConfig) renderer.Options {
	return renderer.Options{Pitch: uint8(v.Pitch), Speed: uint8(v.Speed), Mouth: uint8(v.Mouth), Throat: uint8(v.Throat), Sing: v.Sing}
}

// PhonemesToProtocol converts a parsed sequence to its wire form.
func PhonemesToProtocol(seq phoneme.Sequence) []protocol.Phoneme {
	out := make([]protocol.Phoneme, 0, len(seq))
	for _, t := range seq {
		out = append(out, protocol.Phoneme{Name: phoneme.Name(t.Index), Index: t.Index, Length: t.Length, Stress: t.Stress})
	}
	return out
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
