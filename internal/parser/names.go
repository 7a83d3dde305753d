package parser

import (
	"strings"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// normalize folds the phonetic notation to upper case and drops bytes
// outside printable ASCII. Spaces are kept: each one becomes a pause.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(' ')
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// nameRule is one entry of the name table: a phoneme spelled with one or
// two letters.
type nameRule struct {
	first, second byte
	index         uint8
}

var (
	fullNames     []nameRule
	wildcardNames []nameRule
)

func init() {
	for i := 0; i < phoneme.Count; i++ {
		def, _ := phoneme.Lookup(i)
		first, second := def.Name[0], def.Name[1]
		if first == '*' {
			// internal release phonemes have no spelling
			continue
		}
		rule := nameRule{first: first, second: second, index: uint8(i)}
		if second == '*' {
			wildcardNames = append(wildcardNames, rule)
		} else {
			fullNames = append(fullNames, rule)
		}
	}
}

// matchFull returns the phoneme spelled exactly by the two letters.
func matchFull(first, second byte) (uint8, bool) {
	for _, r := range fullNames {
		if r.first == first && r.second == second {
			return r.index, true
		}
	}
	return 0, false
}

// matchWildcard returns the single-letter phoneme spelled by first.
func matchWildcard(first byte) (uint8, bool) {
	for _, r := range wildcardNames {
		if r.first == first {
			return r.index, true
		}
	}
	return 0, false
}

// stressDigit maps '1'..'8' to the stress level.
func stressDigit(c byte) (uint8, bool) {
	if c >= '1' && c <= '8' {
		return c - '0', true
	}
	return 0, false
}
