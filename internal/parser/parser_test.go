package parser

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func split(seq phoneme.Sequence) (idx, ln, st []uint8) {
	for _, t := range seq {
		idx = append(idx, t.Index)
		ln = append(ln, t.Length)
		st = append(st, t.Stress)
	}
	return idx, ln, st
}

func TestParseCases(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		index  []uint8
		length []uint8
		stress []uint8
	}{
		{
			name:   "reference word",
			input:  "SAH5KSEHSFUHL",
			index:  []uint8{32, 10, 75, 76, 77, 32, 7, 32, 34, 12, 19},
			length: []uint8{2, 10, 6, 1, 4, 2, 8, 2, 2, 10, 9},
			stress: []uint8{6, 5, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "t before r becomes ch",
			input:  "TRAEK",
			index:  []uint8{42, 23, 8, 75, 76, 77},
			length: []uint8{6, 5, 7, 6, 1, 4},
			stress: []uint8{0, 0, 0, 0, 0, 0},
		},
		{
			name:   "plosive after s softens and diphthong glides",
			input:  "SPAY",
			index:  []uint8{32, 54, 55, 56, 49, 21},
			length: []uint8{2, 6, 1, 2, 12, 7},
			stress: []uint8{0, 0, 0, 0, 0, 0},
		},
		{
			name:   "l after vowel",
			input:  "AOL",
			index:  []uint8{11, 19},
			length: []uint8{12, 9},
			stress: []uint8{0, 0},
		},
		{
			name:   "glottal stop between stressed vowels",
			input:  "AA5 AA5",
			index:  []uint8{9, 31, 9},
			length: []uint8{15, 5, 15},
			stress: []uint8{5, 6, 5},
		},
		{
			name:   "period ends a chunk",
			input:  "AA.",
			index:  []uint8{9, 1, phoneme.Break},
			length: []uint8{11, 18, 0},
			stress: []uint8{0, 0, 0},
		},
		{
			name:   "nasal before a stop",
			input:  "FAH5NKSHUN",
			index:  []uint8{34, 10, 28, 75, 76, 77, 33, 13, 28},
			length: []uint8{2, 14, 5, 6, 1, 4, 2, 7, 7},
			stress: []uint8{6, 5, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "syllabic l and doubled stops",
			input:  "MEHDDUL",
			index:  []uint8{27, 7, 57, 58, 59, 57, 58, 59, 13, 19},
			length: []uint8{7, 11, 3, 1, 1, 3, 1, 1, 5, 9},
			stress: []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "front k and flapped t",
			input:  "KAHMPYUWTER",
			index:  []uint8{72, 73, 74, 10, 27, 66, 67, 68, 26, 53, 20, 30, 15},
			length: []uint8{6, 1, 4, 8, 5, 6, 2, 2, 4, 9, 8, 2, 11},
			stress: []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "greeting",
			input:  "/HEHLOW, MAY NEYM IHZ SAEM.",
			index:  []uint8{36, 7, 19, 52, 20, 3, phoneme.Break, 27, 49, 21, 28, 48, 21, 27, 6, 38, 32, 8, 27, 1, phoneme.Break},
			length: []uint8{2, 8, 9, 14, 13, 18, 0, 7, 12, 7, 7, 13, 9, 7, 11, 6, 2, 17, 11, 18, 0},
			stress: []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "leading pause lets the vowel stretch",
			input:  " AA.",
			index:  []uint8{9, 1, phoneme.Break},
			length: []uint8{17, 18, 0},
			stress: []uint8{0, 0, 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.input, err)
			}
			idx, ln, st := split(seq)
			if !reflect.DeepEqual(idx, tc.index) {
				t.Fatalf("index mismatch: got %v want %v", idx, tc.index)
			}
			if !reflect.DeepEqual(ln, tc.length) {
				t.Fatalf("length mismatch: got %v want %v", ln, tc.length)
			}
			if !reflect.DeepEqual(st, tc.stress) {
				t.Fatalf("stress mismatch: got %v want %v", st, tc.stress)
			}
		})
	}
}

func TestParseSentinelInvariant(t *testing.T) {
	for _, input := range []string{
		"SAH5KSEHSFUHL",
		"/HEHLOW, MAY NEYM IHZ SAEM.",
		"IHZ KAORREHKT, PLEY5 AXGEH4N? AOR DUW YUW PRIY4FER PAONX?",
		"",
	} {
		seq, err := Parse(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		idx, _, _ := seq.Arrays()
		for i := 0; i < len(seq); i++ {
			if idx[i] == phoneme.End {
				t.Fatalf("%q: sentinel at %d before end %d", input, i, len(seq))
			}
		}
		if idx[len(seq)] != phoneme.End {
			t.Fatalf("%q: expected sentinel at %d", input, len(seq))
		}
		if err := seq.Validate(); err != nil {
			t.Fatalf("%q: %v", input, err)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	input := "KEY4S FAWND AH PLEYS AET DHAX BAA5R. BEHTWIY4N DHIY AHNLIHKLIY TAEN AAN WAHN AHV LAHNIYZUNEHS /HUWRZ."
	first, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := New(WithLogger(newLogger()))
	for i := 0; i < 5; i++ {
		again, err := p.Parse(input)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first, again)
		}
	}
}

func TestParseSkipsUnknownCharacters(t *testing.T) {
	want, err := Parse("SAH5KSEHSFUHL")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, input := range []string{"sah5ksehsfuhl", "S#AH5KSEHSFUHL", "9SAH5KSEHSFUHL", "SAH5KSEHSFUHL\x00"} {
		got, err := Parse(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%q: got %v want %v", input, got, want)
		}
	}
	got, err := Parse("5AA")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Stress != 0 {
		t.Fatalf("leading stress digit must be ignored, got %v", got)
	}
}

func TestParseTooLong(t *testing.T) {
	_, err := Parse(strings.Repeat("AA", phoneme.MaxLen+1))
	if !errors.Is(err, phoneme.ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	// fits at name matching, overflows once the stops are expanded
	_, err = Parse(strings.Repeat("PAA", 100))
	if !errors.Is(err, phoneme.ErrTooLong) {
		t.Fatalf("expected ErrTooLong from expansion, got %v", err)
	}
	// 22 unstressed AA fill a chunk; each full chunk gets a break
	seq, err := Parse(strings.Repeat("AA", 200))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	breaks := 0
	for _, tr := range seq {
		if tr.Index == phoneme.Break {
			breaks++
		}
	}
	if breaks != 9 || len(seq) != 209 {
		t.Fatalf("expected 9 breaks in 209 triples, got %d in %d", breaks, len(seq))
	}
}

func TestBreathSplitsLongChunks(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = "AA"
	}
	seq, err := Parse(strings.Join(words, " "))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(seq) != 27 {
		t.Fatalf("expected 27 triples, got %d: %v", len(seq), seq)
	}
	if seq[21] != (phoneme.Triple{Index: phoneme.Q, Length: 4}) {
		t.Fatalf("expected glottal stop at 21, got %+v", seq[21])
	}
	if seq[22].Index != phoneme.Break {
		t.Fatalf("expected break at 22, got %+v", seq[22])
	}
}

func TestBreathAccumulatorWraps(t *testing.T) {
	chunkFrames := func(seq phoneme.Sequence) []int {
		var out []int
		n := 0
		for _, tr := range seq {
			if tr.Index == phoneme.Break {
				out = append(out, n)
				n = 0
				continue
			}
			n += int(tr.Length)
		}
		return out
	}

	// 21 AA reach 231 frames; the stressed AA carries the 8-bit sum past
	// 255 so no break is forced before the period
	seq, err := Parse(strings.Repeat("AA", 21) + "AA5Z.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := chunkFrames(seq); !reflect.DeepEqual(got, []int{288}) {
		t.Fatalf("expected one chunk of 288 frames, got %v", got)
	}

	// one more AA crosses the limit before wrapping
	seq, err = Parse(strings.Repeat("AA", 22) + "AA5Z.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := chunkFrames(seq); !reflect.DeepEqual(got, []int{242, 57}) {
		t.Fatalf("expected chunks of 242 and 57 frames, got %v", got)
	}
}

func TestContextRuleJumpsResolve(t *testing.T) {
	for i, r := range contextRules {
		if r.then == "" {
			continue
		}
		j := ruleIndex(r.then)
		if j >= len(contextRules) || j <= i {
			t.Fatalf("rule %s resumes at unknown or earlier rule %q", r.name, r.then)
		}
	}
}

func TestParseDoesNotMutateTables(t *testing.T) {
	before := make([]phoneme.Definition, phoneme.Count)
	for i := range before {
		before[i], _ = phoneme.Lookup(i)
	}
	full, wild := len(fullNames), len(wildcardNames)
	if _, err := Parse("/HEHLOW, MAY NEYM IHZ SAEM."); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i := range before {
		if def, _ := phoneme.Lookup(i); def != before[i] {
			t.Fatalf("definition %d changed", i)
		}
	}
	if len(fullNames) != full || len(wildcardNames) != wild {
		t.Fatal("name tables changed")
	}
}
