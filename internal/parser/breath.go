package parser

import (
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/wrap"
)

// breathLimit is the accumulated length after which a chunk is forced to
// end at the most recent pause.
const breathLimit = 232

// insertBreath places a Break after every punctuation mark and splits
// chunks that run past breathLimit, turning the last pause into a short
// glottal stop.
func insertBreath(b *buffer) error {
	var acc wrap.Uint8
	lastPause := -1
	for pos := 0; pos < b.len(); pos++ {
		idx := b.index(pos)
		acc.Add(int(b.items[pos].Length))
		if acc.Int() < breathLimit {
			switch {
			case idx == phoneme.Break:
			case !b.has(pos, phoneme.FlagPunct):
				if idx == phoneme.Pause {
					lastPause = pos
				}
			default:
				acc.Set(0)
				pos++
				if err := b.insert(pos, phoneme.Triple{Index: phoneme.Break}); err != nil {
					return err
				}
			}
			continue
		}
		if lastPause >= 0 {
			pos = lastPause
			b.items[pos] = phoneme.Triple{Index: phoneme.Q, Length: 4}
			lastPause = -1
		}
		acc.Set(0)
		pos++
		if err := b.insert(pos, phoneme.Triple{Index: phoneme.Break}); err != nil {
			return err
		}
	}
	return nil
}
