package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-sam/internal/capability"
	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/protocol"
	"github.com/loqalabs/loqa-sam/internal/renderer"
	"github.com/loqalabs/loqa-sam/internal/tts"
)

var errUnknownFormat = errors.New("unknown audio format")

type speakRequest struct {
	SessionID string          `json:"session_id"`
	Text      string          `json:"text"`
	Voice     *protocol.Voice `json:"voice,omitempty"`
}

type phonemesResponse struct {
	RequestID string             `json:"request_id"`
	Notation  string             `json:"notation"`
	Phonemes  []protocol.Phoneme `json:"phonemes"`
}

type eventView struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actor_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r *Runtime) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("GET /readyz", r.handleReady)
	if r.metrics != nil {
		mux.Handle("GET /metrics", r.metrics)
	}
	mux.HandleFunc("POST /v1/speak", r.handleSpeak)
	mux.HandleFunc("POST /v1/phonemes", r.handlePhonemes)
	mux.HandleFunc("GET /v1/nodes", r.handleNodes)
	mux.HandleFunc("GET /v1/sessions/{id}/events", r.handleSessionEvents)
	return mux
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) isReady() bool {
	if !r.ready.Load() {
		return false
	}
	if r.bus != nil && !r.bus.Healthy() {
		return false
	}
	if r.service != nil && !r.service.Healthy() {
		return false
	}
	return r.registry == nil || r.registry.Healthy()
}

// audioContentType maps the format query value to a response type. The
// default is a WAV file; pcm16 is raw signed 16-bit little endian.
func audioContentType(format string) (string, error) {
	switch format {
	case "", "wav":
		return "audio/wav", nil
	case "pcm16":
		return "audio/L16; rate=" + strconv.Itoa(renderer.SampleRate) + "; channels=1", nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func encodeAudio(contentType string, samples []byte) ([]byte, error) {
	if contentType == "audio/wav" {
		return engine.EncodeWAV(samples)
	}
	return engine.PCM16(samples), nil
}

// handleSpeak renders the request body and answers with audio. Plain
// text bodies are taken as the phonetic input; anything else must be a
// JSON speakRequest.
func (r *Runtime) handleSpeak(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	contentType, err := audioContentType(req.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, ok := r.readSpeakRequest(w, req)
	if !ok {
		return
	}
	if in.SessionID == "" {
		in.SessionID = requestID
	}
	voice := r.voice
	if in.Voice != nil {
		voice = tts.VoiceFromProtocol(*in.Voice)
	}
	busReq := protocol.TTSRequest{SessionID: in.SessionID, Target: "http", Text: in.Text, Voice: in.Voice}

	start := time.Now()
	sp, cached, err := r.sam.Speak(req.Context(), in.Text, voice)
	if err != nil {
		r.recorder.Record(busReq, voice, nil, 0, time.Since(start), err)
		r.writeSynthesisError(w, requestID, err)
		return
	}
	body, err := encodeAudio(contentType, sp.Samples)
	if err != nil {
		r.recorder.Record(busReq, voice, nil, 0, time.Since(start), err)
		r.writeSynthesisError(w, requestID, err)
		return
	}
	r.recorder.Record(busReq, voice, &tts.SynthStats{
		Phonemes: len(sp.Phonemes),
		Frames:   sp.Frames(),
		Samples:  len(sp.Samples),
		Cached:   cached,
	}, 1, time.Since(start), nil)

	cache := "miss"
	if cached {
		cache = "hit"
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("X-Sam-Phonemes", strconv.Itoa(len(sp.Phonemes)))
	h.Set("X-Sam-Samples", strconv.Itoa(len(sp.Samples)))
	h.Set("X-Sam-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (r *Runtime) handlePhonemes(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	in, ok := r.readSpeakRequest(w, req)
	if !ok {
		return
	}
	seq, err := r.sam.Phonemes(in.Text)
	if err != nil {
		r.writeSynthesisError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, phonemesResponse{
		RequestID: requestID,
		Notation:  seq.String(),
		Phonemes:  tts.PhonemesToProtocol(seq),
	})
}

func (r *Runtime) handleNodes(w http.ResponseWriter, req *http.Request) {
	if r.registry == nil {
		writeError(w, http.StatusServiceUnavailable, "capability registry not running")
		return
	}
	var filter func(capability.NodeInfo) bool
	if name := req.URL.Query().Get("capability"); name != "" {
		filter = capability.WithCapabilityFilter(name)
	}
	nodes := r.registry.Query(filter)
	if nodes == nil {
		nodes = []capability.NodeInfo{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (r *Runtime) handleSessionEvents(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := r.store.ListSessionEvents(req.Context(), req.PathValue("id"), limit)
	if err != nil {
		r.logger.Error("list session events failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "event store unavailable")
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{ID: e.ID, Type: e.Type, ActorID: e.ActorID, CreatedAt: e.CreatedAt}
		if json.Valid(e.Payload) {
			v.Payload = e.Payload
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Runtime) readSpeakRequest(w http.ResponseWriter, req *http.Request) (speakRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, int64(r.cfg.HTTP.MaxTextBytes)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return speakRequest{}, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return speakRequest{}, false
	}

	var in speakRequest
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		in.Text = string(body)
	} else if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return speakRequest{}, false
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return speakRequest{}, false
	}
	return in, true
}

func (r *Runtime) writeSynthesisError(w http.ResponseWriter, requestID string, err error) {
	if errors.Is(err, phoneme.ErrTooLong) || errors.Is(err, phoneme.ErrInvalidIndex) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	r.logger.Error("synthesis failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "synthesis failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
