// Package playback plays rendered speech on the local audio device.
//
// Rendered PCM is appended to a queue that the device pulls from; when
// the queue runs dry the device receives silence. Builds tagged headless
// replace the device with a sink that drops audio.
package playback

import "sync"

// silence is the zero level of unsigned 8-bit PCM.
const silence = 0x80

type queue struct {
	mu      sync.Mutex
	pending []byte
	played  int
}

func (q *queue) push(pcm []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pcm...)
}

// Read always fills p so the device never starves.
func (q *queue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := copy(p, q.pending)
	q.pending = q.pending[n:]
	if len(q.pending) == 0 {
		q.pending = nil
	}
	q.played += n
	for i := n; i < len(p); i++ {
		p[i] = silence
	}
	return len(p), nil
}

func (q *queue) stats() (pending, played int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), q.played
}
