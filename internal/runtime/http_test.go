package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-sam/internal/config"
	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/eventstore"
	"github.com/loqalabs/loqa-sam/internal/tts"
)

func newTestRuntime(t *testing.T) (*Runtime, *httptest.Server) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.HTTP.MaxTextBytes = 1024

	sam, err := tts.NewSAM(engine.New(nil), 4, 100, log)
	if err != nil {
		t.Fatalf("new sam: %v", err)
	}
	store, err := eventstore.Open(context.Background(), config.EventStoreConfig{
		Path:          filepath.Join(t.TempDir(), "events.db"),
		RetentionMode: "session",
	}, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r := New(cfg, "test", log)
	r.sam = sam
	r.store = store
	r.recorder = tts.NewRecorder(store, log)
	srv := httptest.NewServer(r.routes())
	t.Cleanup(srv.Close)
	return r, srv
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndReadiness(t *testing.T) {
	r, srv := newTestRuntime(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz before start: %v %v", resp, err)
	}
	resp.Body.Close()

	r.ready.Store(true)
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz after start: %v %v", resp, err)
	}
	resp.Body.Close()
}

func TestSpeakReturnsWAV(t *testing.T) {
	_, srv := newTestRuntime(t)
	resp := post(t, srv.URL+"/v1/speak", "application/json", `{"session_id":"sess-1","text":"/HEHLOW, MAY NEYM IHZ SAEM."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" || resp.Header.Get("X-Sam-Cache") != "miss" {
		t.Fatalf("unexpected headers %v", resp.Header)
	}
	body, _ := io.ReadAll(resp.Body)
	samples, _ := strconv.Atoi(resp.Header.Get("X-Sam-Samples"))
	if samples == 0 || len(body) < 44+samples || string(body[:4]) != "RIFF" {
		t.Fatalf("unexpected wav: %d bytes for %d samples", len(body), samples)
	}

	again := post(t, srv.URL+"/v1/speak", "text/plain; charset=utf-8", "/HEHLOW, MAY NEYM IHZ SAEM.")
	if again.StatusCode != http.StatusOK || again.Header.Get("X-Sam-Cache") != "hit" {
		t.Fatalf("plain text repeat must hit the cache: %d %q", again.StatusCode, again.Header.Get("X-Sam-Cache"))
	}

	events, err := http.Get(srv.URL + "/v1/sessions/sess-1/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer events.Body.Close()
	var views []eventView
	if err := json.NewDecoder(events.Body).Decode(&views); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(views) != 1 || views[0].Type != tts.EventSynthesized {
		t.Fatalf("unexpected events %+v", views)
	}
}

func TestSpeakPCM16(t *testing.T) {
	_, srv := newTestRuntime(t)
	resp := post(t, srv.URL+"/v1/speak?format=pcm16", "text/plain", "AOL")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/L16") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	samples, _ := strconv.Atoi(resp.Header.Get("X-Sam-Samples"))
	if samples == 0 || len(body) != 2*samples {
		t.Fatalf("expected %d bytes, got %d", 2*samples, len(body))
	}

	bad := post(t, srv.URL+"/v1/speak?format=mp3", "text/plain", "AOL")
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format: expected 400, got %d", bad.StatusCode)
	}
}

func TestSpeakErrors(t *testing.T) {
	_, srv := newTestRuntime(t)
	cases := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"bad json", "application/json", `{"text":`, http.StatusBadRequest},
		{"empty text", "application/json", `{"text":"  "}`, http.StatusBadRequest},
		{"too long", "text/plain", strings.Repeat("AA", 300), http.StatusUnprocessableEntity},
		{"body limit", "text/plain", strings.Repeat("A", 2000), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/speak", tc.contentType, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Fatalf("expected JSON error body, got %v %v", body, err)
			}
		})
	}
}

func TestPhonemesEndpoint(t *testing.T) {
	_, srv := newTestRuntime(t)
	resp := post(t, srv.URL+"/v1/phonemes", "application/json", `{"text":"AOL"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out phonemesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Notation != "AO(12) LX(9)" || len(out.Phonemes) != 2 || out.RequestID == "" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestNodesWithoutRegistry(t *testing.T) {
	_, srv := newTestRuntime(t)
	resp, err := http.Get(srv.URL + "/v1/nodes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestVoiceAttributes(t *testing.T) {
	cfg := config.Default()
	cfg.Voice.Pitch = 90
	r := New(cfg, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	attrs := r.voiceAttributes()
	if attrs["pitch"] != "90" || attrs["sample_rate"] != "22050" || attrs["mode"] != "sam" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}
