package parser

import (
	"fmt"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// buffer is the working phoneme list of one parse. Reads outside the
// populated range see End, which carries no flags.
type buffer struct {
	items []phoneme.Triple
}

func newBuffer() *buffer {
	return &buffer{items: make([]phoneme.Triple, 0, phoneme.MaxLen)}
}

func (b *buffer) len() int { return len(b.items) }

func (b *buffer) index(i int) uint8 {
	if i < 0 || i >= len(b.items) {
		return phoneme.End
	}
	return b.items[i].Index
}

func (b *buffer) flags(i int) phoneme.Flag {
	return phoneme.Flags(int(b.index(i)))
}

func (b *buffer) has(i int, f phoneme.Flag) bool {
	return b.flags(i)&f != 0
}

func (b *buffer) stress(i int) uint8 {
	if i < 0 || i >= len(b.items) {
		return 0
	}
	return b.items[i].Stress
}

func (b *buffer) setIndex(i int, idx uint8) {
	b.items[i].Index = idx
}

func (b *buffer) push(t phoneme.Triple) error {
	if len(b.items) >= phoneme.MaxLen {
		return fmt.Errorf("append %s: %w", phoneme.Name(t.Index), phoneme.ErrTooLong)
	}
	b.items = append(b.items, t)
	return nil
}

// insert shifts everything from pos one slot to the right and stores t at
// pos. The list never grows past MaxLen so the End slot stays available.
func (b *buffer) insert(pos int, t phoneme.Triple) error {
	if len(b.items) >= phoneme.MaxLen {
		return fmt.Errorf("insert %s at %d: %w", phoneme.Name(t.Index), pos, phoneme.ErrTooLong)
	}
	if pos > len(b.items) {
		pos = len(b.items)
	}
	b.items = append(b.items, phoneme.Triple{})
	copy(b.items[pos+1:], b.items[pos:])
	b.items[pos] = t
	return nil
}
