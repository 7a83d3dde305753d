package phoneme

import (
	"errors"
	"fmt"
	"strings"
)

// Capacity is the number of slots in the interchange arrays. The last
// usable slot is reserved for End, so a sequence holds at most Capacity-1
// triples.
const Capacity = 256

// MaxLen is the largest number of triples a sequence can carry.
const MaxLen = Capacity - 1

var (
	ErrTooLong           = errors.New("phoneme sequence exceeds capacity")
	ErrInvalidIndex      = errors.New("phoneme index out of range")
	ErrMalformedSequence = errors.New("phoneme sequence has no end marker")
)

// Triple is one phoneme with its duration in frames and its stress level.
type Triple struct {
	Index  uint8 `json:"index" yaml:"index"`
	Length uint8 `json:"length" yaml:"length"`
	Stress uint8 `json:"stress" yaml:"stress"`
}

// Sequence is an ordered list of triples. The End marker is implicit and
// is materialized by Arrays.
type Sequence []Triple

// Arrays returns the three parallel interchange arrays with End written
// right after the last triple.
func (s Sequence) Arrays() (index, length, stress [Capacity]byte) {
	n := len(s)
	if n > MaxLen {
		n = MaxLen
	}
	for i := 0; i < n; i++ {
		index[i] = s[i].Index
		length[i] = s[i].Length
		stress[i] = s[i].Stress
	}
	index[n] = End
	return index, length, stress
}

// Indices returns the phoneme indices of the sequence.
func (s Sequence) Indices() []uint8 {
	out := make([]uint8, len(s))
	for i, t := range s {
		out[i] = t.Index
	}
	return out
}

// Validate checks that every triple names a table phoneme or a Break.
func (s Sequence) Validate() error {
	if len(s) > MaxLen {
		return fmt.Errorf("%d triples: %w", len(s), ErrTooLong)
	}
	for i, t := range s {
		if t.Index == Break {
			continue
		}
		if int(t.Index) >= Count {
			return fmt.Errorf("triple %d has index %d: %w", i, t.Index, ErrInvalidIndex)
		}
	}
	return nil
}

// String renders the sequence using phoneme names, stress digits and
// lengths, e.g. "S(2) AH5(11)".
func (s Sequence) String() string {
	var b strings.Builder
	for i, t := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Name(t.Index))
		if t.Stress != 0 {
			fmt.Fprintf(&b, "%d", t.Stress)
		}
		fmt.Fprintf(&b, "(%d)", t.Length)
	}
	return b.String()
}

// FromArrays reads the interchange arrays up to End. Entries after End are
// never read.
func FromArrays(index, length, stress []byte) (Sequence, error) {
	n := len(index)
	if len(length) < n {
		n = len(length)
	}
	if len(stress) < n {
		n = len(stress)
	}
	var seq Sequence
	for i := 0; i < n; i++ {
		if index[i] == End {
			return seq, nil
		}
		if len(seq) == MaxLen {
			return nil, fmt.Errorf("no end marker within %d slots: %w", Capacity, ErrMalformedSequence)
		}
		seq = append(seq, Triple{Index: index[i], Length: length[i], Stress: stress[i]})
	}
	return nil, ErrMalformedSequence
}
