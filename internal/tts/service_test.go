package tts

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/loqa-sam/internal/bus"
	"github.com/loqalabs/loqa-sam/internal/config"
	"github.com/loqalabs/loqa-sam/internal/eventstore"
	"github.com/loqalabs/loqa-sam/internal/natsserver"
	"github.com/loqalabs/loqa-sam/internal/protocol"
)

type recordingSink struct {
	mu  sync.Mutex
	pcm []byte
}

func (r *recordingSink) Enqueue(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pcm = append(r.pcm, pcm...)
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pcm)
}

type harness struct {
	client *bus.Client
	store  *eventstore.Store
	sink   *recordingSink
	svc    *Service
}

func startService(t *testing.T) *harness {
	t.Helper()
	log := discardLogger()
	srv, err := natsserver.Start(config.BusConfig{Embedded: true, Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir()}, log)
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	client, err := bus.Connect(context.Background(), config.BusConfig{Servers: []string{srv.ClientURL()}, ConnectTimeout: 2000}, "tts-test", log)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	store, err := eventstore.Open(context.Background(), config.EventStoreConfig{
		Path:          filepath.Join(t.TempDir(), "events.db"),
		RetentionMode: "session",
	}, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sam := newSAM(t, 8)
	sink := &recordingSink{}
	cfg := config.TTSConfig{Enabled: true, Mode: "sam", ChunkDurationMS: 100, TimeoutMS: 5000}
	svc := NewService(context.Background(), cfg, client, sam, log,
		WithPhonemizer(sam), WithRecorder(NewRecorder(store, log)), WithAudioSink(sink))
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Close)
	if !svc.Healthy() {
		t.Fatal("expected healthy service")
	}
	return &harness{client: client, store: store, sink: sink, svc: svc}
}

func (f *harness) request(t *testing.T, req protocol.TTSRequest) protocol.TTSStatus {
	t.Helper()
	done, err := f.client.Conn().SubscribeSync(protocol.SubjectTTSDone)
	if err != nil {
		t.Fatalf("subscribe done: %v", err)
	}
	defer done.Unsubscribe()
	data, _ := json.Marshal(req)
	if err := f.client.Conn().Publish(protocol.SubjectTTSRequest, data); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg, err := done.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("wait for done: %v", err)
	}
	var status protocol.TTSStatus
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return status
}

func waitEvents(t *testing.T, store *eventstore.Store, session string) []eventstore.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		events, err := store.ListSessionEvents(context.Background(), session, 10)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(events) > 0 {
			return events
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no events recorded for %s", session)
	return nil
}

func TestServiceStreamsAudio(t *testing.T) {
	f := startService(t)
	audio, err := f.client.Conn().SubscribeSync(protocol.SubjectTTSAudio)
	if err != nil {
		t.Fatalf("subscribe audio: %v", err)
	}

	status := f.request(t, protocol.TTSRequest{SessionID: "s1", Target: "kitchen", Text: "/HEHLOW, MAY NEYM IHZ SAEM."})
	if !status.Completed || status.Error != "" || status.SessionID != "s1" || status.Target != "kitchen" {
		t.Fatalf("unexpected status %+v", status)
	}

	var total int
	for i := 0; i < status.Chunks; i++ {
		msg, err := audio.NextMsg(2 * time.Second)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		var chunk protocol.AudioChunk
		if err := json.Unmarshal(msg.Data, &chunk); err != nil {
			t.Fatalf("decode chunk: %v", err)
		}
		if chunk.Sequence != i || chunk.BitDepth != 8 || chunk.SampleRate != 22050 {
			t.Fatalf("unexpected chunk header %+v", chunk)
		}
		if chunk.Final != (i == status.Chunks-1) {
			t.Fatalf("chunk %d final=%v", i, chunk.Final)
		}
		total += len(chunk.PCM)
	}
	if total == 0 || f.sink.len() != total {
		t.Fatalf("sink received %d of %d samples", f.sink.len(), total)
	}

	events := waitEvents(t, f.store, "s1")
	if events[0].Type != EventSynthesized {
		t.Fatalf("expected %s, got %s", EventSynthesized, events[0].Type)
	}
	var payload map[string]any
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if int(payload["samples"].(float64)) != total {
		t.Fatalf("payload samples %v, want %d", payload["samples"], total)
	}
}

func TestServiceReportsFailures(t *testing.T) {
	f := startService(t)
	long := make([]byte, 0, 600)
	for i := 0; i < 300; i++ {
		long = append(long, 'A', 'A')
	}
	status := f.request(t, protocol.TTSRequest{SessionID: "s2", Text: string(long), Voice: &protocol.Voice{Pitch: 64, Speed: 72, Mouth: 128, Throat: 128}})
	if status.Completed || status.Error == "" {
		t.Fatalf("expected failure status, got %+v", status)
	}
	events := waitEvents(t, f.store, "s2")
	if events[0].Type != EventFailed {
		t.Fatalf("expected %s, got %s", EventFailed, events[0].Type)
	}
}

func TestServiceAnswersPhonemes(t *testing.T) {
	f := startService(t)
	data, _ := json.Marshal(protocol.PhonemeRequest{Text: "AOL"})
	msg, err := f.client.Conn().Request(protocol.SubjectTTSPhonemes, data, 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var reply protocol.PhonemeReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Error != "" || len(reply.Phonemes) != 2 {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if p := reply.Phonemes[0]; p.Name != "AO" || p.Index != 11 || p.Length != 12 {
		t.Fatalf("unexpected first phoneme %+v", p)
	}

	msg, err = f.client.Conn().Request(protocol.SubjectTTSPhonemes, []byte("{"), 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	reply = protocol.PhonemeReply{}
	_ = json.Unmarshal(msg.Data, &reply)
	if reply.Error == "" {
		t.Fatal("expected error for malformed request")
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(context.Background(), config.TTSConfig{Enabled: false}, nil, NewMockSynth(16000, 1), discardLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !svc.Healthy() {
		t.Fatal("disabled service reports healthy")
	}
	svc.Close()
}
