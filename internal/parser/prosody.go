package parser

import (
	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// copyStress gives a consonant in front of a stressed vowel one more than
// the vowel's stress.
func copyStress(b *buffer) {
	for pos := 0; pos < b.len(); pos++ {
		if !b.has(pos, phoneme.FlagConsonant) {
			continue
		}
		if b.index(pos+1) == phoneme.End || !b.has(pos+1, phoneme.FlagVowel) {
			continue
		}
		if s := b.stress(pos + 1); s != 0 && s&0x80 == 0 {
			b.items[pos].Stress = s + 1
		}
	}
}

// assignLengths sets each phoneme's duration from the table.
func assignLengths(b *buffer) {
	for pos := range b.items {
		def, ok := phoneme.Lookup(int(b.items[pos].Index))
		if !ok {
			continue
		}
		s := b.items[pos].Stress
		if s == 0 || s&0x80 != 0 {
			b.items[pos].Length = def.Length
		} else {
			b.items[pos].Length = def.Stressed
		}
	}
}

// lengthen returns (l * 1.5) + 1 in 8-bit arithmetic.
func lengthen(l uint8) uint8 { return l>>1 + l + 1 }

// adjustLengths runs both duration passes. The first stretches the stretch
// between the last vowel and a punctuation mark; the second applies the
// neighbour rules per phoneme.
func adjustLengths(b *buffer) {
	stretchBeforePunctuation(b)
	for pos := 0; pos < b.len(); pos++ {
		switch f := b.flags(pos); {
		case f&phoneme.FlagVowel != 0:
			adjustVowel(b, pos)
		case f&phoneme.FlagNasal != 0:
			// <NASAL> <STOP CONSONANT>
			next := pos + 1
			if b.index(next) != phoneme.End && b.has(next, phoneme.FlagStopCons) {
				b.items[next].Length = 6
				b.items[pos].Length = 5
			}
		case f&phoneme.FlagStopCons != 0:
			// <STOP CONSONANT> {optional silence} <STOP CONSONANT>
			next := pos + 1
			for b.index(next) == phoneme.Pause {
				next++
			}
			if b.index(next) != phoneme.End && b.has(next, phoneme.FlagStopCons) {
				b.items[next].Length = b.items[next].Length>>1 + 1
				b.items[pos].Length = b.items[pos].Length>>1 + 1
			}
		case f&phoneme.FlagLiquid != 0:
			// liquids always lose two frames, whatever precedes them
			b.items[pos].Length -= 2
		}
	}
}

func stretchBeforePunctuation(b *buffer) {
	for x := 0; x < b.len(); {
		if !b.has(x, phoneme.FlagPunct) {
			x++
			continue
		}
		punct := x
		for x--; x > 0 && !b.has(x, phoneme.FlagVowel); x-- {
		}
		if x <= 0 {
			return
		}
		for ; x != punct; x++ {
			f := b.flags(x)
			if f&phoneme.FlagFricative == 0 || f&phoneme.FlagVoiced != 0 {
				b.items[x].Length = lengthen(b.items[x].Length)
			}
		}
		x++
	}
}

func adjustVowel(b *buffer, pos int) {
	next := pos + 1
	nf := b.flags(next)
	if nf&phoneme.FlagConsonant == 0 {
		// <VOWEL> <RX | LX> <CONSONANT>
		if n := b.index(next); n == phoneme.RX || n == phoneme.LX {
			if b.has(next+1, phoneme.FlagConsonant) {
				b.items[pos].Length--
			}
		}
		return
	}
	l := b.items[pos].Length
	switch {
	case nf&phoneme.FlagVoiced != 0:
		// <VOWEL> <VOICED CONSONANT>: 5/4 + 1
		b.items[pos].Length = l>>2 + l + 1
	case nf&phoneme.FlagPlosive != 0:
		// <VOWEL> <UNVOICED PLOSIVE>: minus 1/8
		b.items[pos].Length = l - l>>3
	}
}

// expandStops splits every stop consonant into its closure and two release
// phonemes. Unvoiced plosives stay whole in front of another closure or /H.
func expandStops(b *buffer) error {
	for pos := 0; pos < b.len(); pos++ {
		idx := b.index(pos)
		f := b.flags(pos)
		if f&phoneme.FlagStopCons == 0 {
			continue
		}
		if f&phoneme.FlagPlosive != 0 {
			next := pos + 1
			for b.index(next) == phoneme.Pause {
				next++
			}
			if n := b.index(next); n != phoneme.End {
				if b.has(next, phoneme.FlagClosure) || n == phoneme.HH || n == phoneme.HX {
					continue
				}
			}
		}
		stress := b.stress(pos)
		for k := uint8(1); k <= 2; k++ {
			def, _ := phoneme.Lookup(int(idx + k))
			if err := b.insert(pos+int(k), phoneme.Triple{Index: idx + k, Length: def.Length, Stress: stress}); err != nil {
				return err
			}
		}
		pos += 2
	}
	return nil
}
