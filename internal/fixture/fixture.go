// Package fixture loads golden parser and renderer records and checks the
// engine against them.
//
// A record names an input text and any subset of the expected outputs:
// phoneme triples (output, length, stress), the voice-adjusted formant
// tables, and the rendered frame tracks. Files are YAML or JSON holding a
// single record or a list of them.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// formantDataLen is the number of formant table entries a record carries.
// The legacy tables end before UN, the last phoneme, so index 80 is never
// recorded or compared.
const formantDataLen = phoneme.Count - 1

// Record is one golden case.
type Record struct {
	Input string            `yaml:"input" json:"input"`
	Voice *renderer.Options `yaml:"voice,omitempty" json:"voice,omitempty"`

	Output []uint8 `yaml:"output,omitempty" json:"output,omitempty"`
	Length []uint8 `yaml:"length,omitempty" json:"length,omitempty"`
	Stress []uint8 `yaml:"stress,omitempty" json:"stress,omitempty"`

	Freq1Data []uint8 `yaml:"freq1data,omitempty" json:"freq1data,omitempty"`
	Freq2Data []uint8 `yaml:"freq2data,omitempty" json:"freq2data,omitempty"`
	Freq3Data []uint8 `yaml:"freq3data,omitempty" json:"freq3data,omitempty"`

	Pitches              []uint8 `yaml:"pitches,omitempty" json:"pitches,omitempty"`
	SampledConsonantFlag []uint8 `yaml:"sampledConsonantFlag,omitempty" json:"sampledConsonantFlag,omitempty"`
	Frequency1           []uint8 `yaml:"frequency1,omitempty" json:"frequency1,omitempty"`
	Frequency2           []uint8 `yaml:"frequency2,omitempty" json:"frequency2,omitempty"`
	Frequency3           []uint8 `yaml:"frequency3,omitempty" json:"frequency3,omitempty"`
	Amplitude1           []uint8 `yaml:"amplitude1,omitempty" json:"amplitude1,omitempty"`
	Amplitude2           []uint8 `yaml:"amplitude2,omitempty" json:"amplitude2,omitempty"`
	Amplitude3           []uint8 `yaml:"amplitude3,omitempty" json:"amplitude3,omitempty"`
}

func (r Record) wantsRender() bool {
	return r.Freq1Data != nil || r.Freq2Data != nil || r.Freq3Data != nil ||
		r.Pitches != nil || r.SampledConsonantFlag != nil ||
		r.Frequency1 != nil || r.Frequency2 != nil || r.Frequency3 != nil ||
		r.Amplitude1 != nil || r.Amplitude2 != nil || r.Amplitude3 != nil
}

func (r Record) voice() renderer.Options {
	if r.Voice != nil {
		return *r.Voice
	}
	return renderer.DefaultOptions()
}

// Mismatch is the first differing position of one field.
type Mismatch struct {
	Field string
	Index int
	Want  int
	Got   int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s mismatch at %d: want %d, got %d", m.Field, m.Index, m.Want, m.Got)
}

// Load reads records from a YAML or JSON file.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Decode(data)
}

// Decode parses either a list of records or a single record.
func Decode(data []byte) ([]Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, errors.New("fixture is empty")
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var records []Record
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode fixture records: %w", err)
		}
		return records, nil
	case yaml.MappingNode:
		var rec Record
		if err := root.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode fixture record: %w", err)
		}
		return []Record{rec}, nil
	default:
		return nil, fmt.Errorf("fixture must be a record or a list of records")
	}
}

// Write encodes records as YAML.
func Write(w io.Writer, records []Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}

// Capture runs the engine and records everything it produced.
func Capture(e *engine.Engine, input string, voice *renderer.Options) (Record, error) {
	rec := Record{Input: input, Voice: voice}
	sp, err := e.Speak(input, rec.voice())
	if err != nil {
		return Record{}, err
	}
	rec.Output = sp.Phonemes.Indices()
	for _, t := range sp.Phonemes {
		rec.Length = append(rec.Length, t.Length)
		rec.Stress = append(rec.Stress, t.Stress)
	}
	rec.Freq1Data = bytes.Clone(sp.Freq1Data[:formantDataLen])
	rec.Freq2Data = bytes.Clone(sp.Freq2Data[:formantDataLen])
	rec.Freq3Data = bytes.Clone(sp.Freq3Data[:formantDataLen])
	rec.Pitches = sp.Pitches
	rec.SampledConsonantFlag = sp.SampledConsonantFlag
	rec.Frequency1 = sp.Frequency1
	rec.Frequency2 = sp.Frequency2
	rec.Frequency3 = sp.Frequency3
	rec.Amplitude1 = sp.Amplitude1
	rec.Amplitude2 = sp.Amplitude2
	rec.Amplitude3 = sp.Amplitude3
	return rec, nil
}

// Verify runs the engine on rec.Input and diffs every field rec carries.
// Triples are compared exactly; tables and tracks are compared with zero
// padding, matching the interchange rule that trailing zero frames mark
// the end of data. Formant tables are compared over their first 80
// entries only. Only the first mismatch of each field is reported.
func Verify(e *engine.Engine, rec Record) ([]Mismatch, error) {
	var out []Mismatch
	if rec.Output != nil || rec.Length != nil || rec.Stress != nil {
		seq, err := e.Phonemes(rec.Input)
		if err != nil {
			return nil, err
		}
		out = append(out, compareTriples(seq, rec)...)
	}
	if !rec.wantsRender() {
		return out, nil
	}

	sp, err := e.Speak(rec.Input, rec.voice())
	if err != nil {
		return nil, err
	}
	fields := []struct {
		name      string
		want, got []uint8
	}{
		{"freq1data", formantData(rec.Freq1Data), sp.Freq1Data[:formantDataLen]},
		{"freq2data", formantData(rec.Freq2Data), sp.Freq2Data[:formantDataLen]},
		{"freq3data", formantData(rec.Freq3Data), sp.Freq3Data[:formantDataLen]},
		{"pitches", rec.Pitches, sp.Pitches},
		{"sampledConsonantFlag", rec.SampledConsonantFlag, sp.SampledConsonantFlag},
		{"frequency1", rec.Frequency1, sp.Frequency1},
		{"frequency2", rec.Frequency2, sp.Frequency2},
		{"frequency3", rec.Frequency3, sp.Frequency3},
		{"amplitude1", rec.Amplitude1, sp.Amplitude1},
		{"amplitude2", rec.Amplitude2, sp.Amplitude2},
		{"amplitude3", rec.Amplitude3, sp.Amplitude3},
	}
	for _, f := range fields {
		if f.want == nil {
			continue
		}
		if m, ok := comparePadded(f.name, f.want, f.got); !ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// formantData drops entries past the recorded table length. A nil slice
// stays nil so an absent field is still skipped.
func formantData(want []uint8) []uint8 {
	if len(want) > formantDataLen {
		return want[:formantDataLen]
	}
	return want
}

func compareTriples(seq phoneme.Sequence, rec Record) []Mismatch {
	var out []Mismatch
	check := func(name string, want []uint8, pick func(phoneme.Triple) uint8) {
		if want == nil {
			return
		}
		if len(want) != len(seq) {
			out = append(out, Mismatch{Field: name + ".length", Index: 0, Want: len(want), Got: len(seq)})
			return
		}
		for i, t := range seq {
			if got := pick(t); got != want[i] {
				out = append(out, Mismatch{Field: name, Index: i, Want: int(want[i]), Got: int(got)})
				return
			}
		}
	}
	check("output", rec.Output, func(t phoneme.Triple) uint8 { return t.Index })
	check("length", rec.Length, func(t phoneme.Triple) uint8 { return t.Length })
	check("stress", rec.Stress, func(t phoneme.Triple) uint8 { return t.Stress })
	return out
}

func comparePadded(name string, want, got []uint8) (Mismatch, bool) {
	n := max(len(want), len(got))
	at := func(s []uint8, i int) int {
		if i < len(s) {
			return int(s[i])
		}
		return 0
	}
	for i := 0; i < n; i++ {
		if w, g := at(want, i), at(got, i); w != g {
			return Mismatch{Field: name, Index: i, Want: w, Got: g}, false
		}
	}
	return Mismatch{}, true
}
