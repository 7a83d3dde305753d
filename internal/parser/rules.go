package parser

import (
	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// contextRule rewrites the phoneme at pos depending on its neighbours.
// Rules are tried in table order and the first one whose guard holds
// fires. After firing, evaluation stops unless then names a later rule to
// resume at.
type contextRule struct {
	name  string
	guard func(b *buffer, pos int) bool
	fire  func(b *buffer, pos int) error
	then  string
}

var syllabicTail = map[uint8]uint8{
	phoneme.UL: phoneme.L,
	phoneme.UM: phoneme.M,
	phoneme.UN: phoneme.N,
}

var contextRules = []contextRule{
	{
		// OIL, COW: a diphthong glides into WX or YX
		name:  "diphthong-glide",
		guard: func(b *buffer, pos int) bool { return b.has(pos, phoneme.FlagDiphthong) },
		fire: func(b *buffer, pos int) error {
			glide := phoneme.WX
			if b.has(pos, phoneme.FlagDipYX) {
				glide = phoneme.YX
			}
			return b.insert(pos+1, phoneme.Triple{Index: glide, Stress: b.stress(pos)})
		},
		then: "alveolar-uw",
	},
	{
		// MEDDLE: UL -> AX L, likewise UM and UN
		name: "syllabic-split",
		guard: func(b *buffer, pos int) bool {
			p := b.index(pos)
			return p == phoneme.UL || p == phoneme.UM || p == phoneme.UN
		},
		fire: func(b *buffer, pos int) error {
			tail := syllabicTail[b.index(pos)]
			b.setIndex(pos, phoneme.AX)
			return b.insert(pos+1, phoneme.Triple{Index: tail, Stress: b.stress(pos)})
		},
	},
	{
		// AWAY EIGHT: a glottal stop separates two stressed vowels across a pause
		name: "stressed-vowel-pause",
		guard: func(b *buffer, pos int) bool {
			return b.has(pos, phoneme.FlagVowel) && b.stress(pos) != 0
		},
		fire: func(b *buffer, pos int) error {
			if b.index(pos+1) != phoneme.Pause {
				return nil
			}
			if b.index(pos+2) != phoneme.End && b.has(pos+2, phoneme.FlagVowel) && b.stress(pos+2) != 0 {
				return b.insert(pos+2, phoneme.Triple{Index: phoneme.Q})
			}
			return nil
		},
	},
	{
		// TRACK, DRY, ART
		name:  "before-r",
		guard: func(b *buffer, pos int) bool { return b.index(pos) == phoneme.R },
		fire: func(b *buffer, pos int) error {
			switch prior := b.index(pos - 1); {
			case prior == phoneme.T:
				b.setIndex(pos-1, phoneme.CH)
			case prior == phoneme.D:
				b.setIndex(pos-1, phoneme.J)
			case b.has(pos-1, phoneme.FlagVowel):
				b.setIndex(pos, phoneme.RX)
			}
			return nil
		},
	},
	{
		// ALL
		name: "vowel-l",
		guard: func(b *buffer, pos int) bool {
			return b.index(pos) == phoneme.L && b.has(pos-1, phoneme.FlagVowel)
		},
		fire: func(b *buffer, pos int) error {
			b.setIndex(pos, phoneme.LX)
			return nil
		},
	},
	{
		name: "g-s",
		guard: func(b *buffer, pos int) bool {
			return b.index(pos) == phoneme.S && b.index(pos-1) == phoneme.G
		},
		fire: func(b *buffer, pos int) error {
			b.setIndex(pos, phoneme.Z)
			return nil
		},
	},
	{
		// GO: G before anything but a front vowel
		name:  "back-g",
		guard: func(b *buffer, pos int) bool { return b.index(pos) == phoneme.G },
		fire: func(b *buffer, pos int) error {
			next := b.index(pos + 1)
			if next != phoneme.End && !b.has(pos+1, phoneme.FlagDipYX) {
				b.setIndex(pos, phoneme.GX)
			}
			return nil
		},
	},
	{
		// COW: K before anything but a front vowel
		name: "back-k",
		guard: func(b *buffer, pos int) bool {
			if b.index(pos) != phoneme.K {
				return false
			}
			return b.index(pos+1) == phoneme.End || !b.has(pos+1, phoneme.FlagDipYX)
		},
		fire: func(b *buffer, pos int) error {
			b.setIndex(pos, phoneme.KX)
			return nil
		},
		then: "soften-after-s",
	},
	{
		// SPY, STY, SKY, SCOWL: S P -> S B and so on
		name: "soften-after-s",
		guard: func(b *buffer, pos int) bool {
			return b.has(pos, phoneme.FlagPlosive) && b.index(pos-1) == phoneme.S
		},
		fire: func(b *buffer, pos int) error {
			b.setIndex(pos, b.index(pos)-12)
			return nil
		},
	},
	{
		// NEW, DEW, SUE, ZOO, THOO, TOO
		name: "alveolar-uw",
		guard: func(b *buffer, pos int) bool {
			return b.index(pos) == phoneme.UW && b.has(pos-1, phoneme.FlagAlveolar)
		},
		fire: func(b *buffer, pos int) error {
			b.setIndex(pos, phoneme.UX)
			return nil
		},
	},
	{
		// CHEW
		name:  "ch-release",
		guard: func(b *buffer, pos int) bool { return b.index(pos) == phoneme.CH },
		fire: func(b *buffer, pos int) error {
			return b.insert(pos+1, phoneme.Triple{Index: phoneme.CH + 1, Stress: b.stress(pos)})
		},
	},
	{
		// JAY
		name:  "j-release",
		guard: func(b *buffer, pos int) bool { return b.index(pos) == phoneme.J },
		fire: func(b *buffer, pos int) error {
			return b.insert(pos+1, phoneme.Triple{Index: phoneme.J + 1, Stress: b.stress(pos)})
		},
	},
	{
		// PARTY, TARDY: T or D between a vowel and an unstressed vowel flaps
		name: "flap",
		guard: func(b *buffer, pos int) bool {
			p := b.index(pos)
			return (p == phoneme.T || p == phoneme.D) && b.has(pos-1, phoneme.FlagVowel)
		},
		fire: func(b *buffer, pos int) error {
			if b.index(pos+1) != phoneme.Pause {
				if b.has(pos+1, phoneme.FlagVowel) && b.stress(pos+1) == 0 {
					b.setIndex(pos, phoneme.DX)
				}
				return nil
			}
			if b.has(pos+2, phoneme.FlagVowel) {
				b.setIndex(pos, phoneme.DX)
			}
			return nil
		},
	},
}

func ruleIndex(name string) int {
	for i, r := range contextRules {
		if r.name == name {
			return i
		}
	}
	return len(contextRules)
}

// applyContextRules sweeps the buffer once. Phonemes inserted by a rule
// are visited by the sweep like any other.
func applyContextRules(b *buffer) error {
	for pos := 0; pos < b.len(); pos++ {
		if b.index(pos) == phoneme.Pause {
			continue
		}
		for i := 0; i < len(contextRules); {
			r := contextRules[i]
			if !r.guard(b, pos) {
				i++
				continue
			}
			if err := r.fire(b, pos); err != nil {
				return err
			}
			if r.then == "" {
				break
			}
			i = ruleIndex(r.then)
		}
	}
	return nil
}
