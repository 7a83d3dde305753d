//go:build !headless

package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/loqalabs/loqa-sam/internal/config"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// Player streams queued 8-bit PCM to the default output device.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	queue  *queue
	log    *slog.Logger
	mu     sync.Mutex
}

// New opens the audio device. Only one device context may exist per
// process.
func New(cfg config.PlaybackConfig, log *slog.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   renderer.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
		BufferSize:   time.Duration(cfg.BufferMS) * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	p := &Player{ctx: ctx, queue: &queue{}, log: log.With(slog.String("component", "playback"))}
	p.player = ctx.NewPlayer(p.queue)
	p.player.Play()
	p.log.Info("audio playback started", slog.Int("sample_rate", renderer.SampleRate), slog.Int("buffer_ms", cfg.BufferMS))
	return p, nil
}

// Enqueue schedules pcm after everything queued before it.
func (p *Player) Enqueue(pcm []byte) {
	p.queue.push(pcm)
}

// Pending reports queued samples not yet handed to the device.
func (p *Player) Pending() int {
	pending, _ := p.queue.stats()
	return pending
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}
