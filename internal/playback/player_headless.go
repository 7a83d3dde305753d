//go:build headless

package playback

import (
	"log/slog"

	"github.com/loqalabs/loqa-sam/internal/config"
)

// Player discards audio; it drains its queue immediately.
type Player struct {
	queue *queue
}

func New(_ config.PlaybackConfig, log *slog.Logger) (*Player, error) {
	log.Info("audio playback disabled in headless build")
	return &Player{queue: &queue{}}, nil
}

func (p *Player) Enqueue(pcm []byte) {
	p.queue.push(pcm)
	_, _ = p.queue.Read(make([]byte, len(pcm)))
}

func (p *Player) Pending() int {
	pending, _ := p.queue.stats()
	return pending
}

func (p *Player) Close() error { return nil }
