package fixture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

const sakseh = `input: SAH5KSEHSFUHL
output: [32, 10, 75, 76, 77, 32, 7, 32, 34, 12, 19]
length: [2, 10, 6, 1, 4, 2, 8, 2, 2, 10, 9]
stress: [6, 5, 0, 0, 0, 0, 0, 0, 0, 0, 0]
`

func TestVerifyParserRecord(t *testing.T) {
	recs, err := Decode([]byte(sakseh))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
	mismatches, err := Verify(engine.New(nil), recs[0])
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", mismatches)
	}
}

func TestVerifyReportsFirstMismatch(t *testing.T) {
	recs, err := Decode([]byte(sakseh))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec := recs[0]
	rec.Length[3] = 9
	rec.Stress = rec.Stress[:4]
	mismatches, err := Verify(engine.New(nil), rec)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(mismatches) != 2 {
		t.Fatalf("expected two mismatches, got %v", mismatches)
	}
	if m := mismatches[0]; m.Field != "length" || m.Index != 3 || m.Want != 9 || m.Got != 1 {
		t.Fatalf("unexpected length mismatch %v", m)
	}
	if m := mismatches[1]; m.Field != "stress.length" || m.Want != 4 || m.Got != 11 {
		t.Fatalf("unexpected stress mismatch %v", m)
	}
}

func TestCaptureRoundTrip(t *testing.T) {
	e := engine.New(nil)
	voice := renderer.DefaultOptions()
	voice.Mouth = 150

	var recs []Record
	for _, text := range []string{"/HEHLOW, MAY NEYM IHZ SAEM.", "TRAEK"} {
		rec, err := Capture(e, text, nil)
		if err != nil {
			t.Fatalf("capture %q: %v", text, err)
		}
		recs = append(recs, rec)
	}
	custom, err := Capture(e, "AESTRUNAHMIY", &voice)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	recs = append(recs, custom)

	path := filepath.Join(t.TempDir(), "golden.yaml")
	var buf bytes.Buffer
	if err := Write(&buf, recs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(recs) {
		t.Fatalf("expected %d records, got %d", len(recs), len(loaded))
	}
	if loaded[2].Voice == nil || loaded[2].Voice.Mouth != 150 {
		t.Fatalf("voice not preserved: %+v", loaded[2].Voice)
	}
	for _, rec := range loaded {
		mismatches, err := Verify(e, rec)
		if err != nil {
			t.Fatalf("verify %q: %v", rec.Input, err)
		}
		if len(mismatches) != 0 {
			t.Fatalf("%q: %v", rec.Input, mismatches)
		}
	}
}

func TestVerifyTracksWithZeroPadding(t *testing.T) {
	e := engine.New(nil)
	rec, err := Capture(e, "KOW", nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	rec.Pitches = append(rec.Pitches, 0, 0, 0)
	if m, _ := Verify(e, rec); len(m) != 0 {
		t.Fatalf("trailing zero frames must be ignored: %v", m)
	}
	rec.Amplitude1 = append([]uint8(nil), rec.Amplitude1...)
	rec.Amplitude1[0] ^= 0x01
	m, err := Verify(e, rec)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(m) != 1 || m[0].Field != "amplitude1" || m[0].Index != 0 {
		t.Fatalf("expected an amplitude1 mismatch at 0, got %v", m)
	}
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`[{"input": "AOL", "output": [11, 19], "length": [12, 9], "stress": [0, 0]}]`)
	recs, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].Input != "AOL" || len(recs[0].Output) != 2 {
		t.Fatalf("unexpected records %+v", recs)
	}
	if m, err := Verify(engine.New(nil), recs[0]); err != nil || len(m) != 0 {
		t.Fatalf("verify: %v %v", m, err)
	}
}

func TestDecodeRejectsScalars(t *testing.T) {
	if _, err := Decode([]byte("42")); err == nil {
		t.Fatal("expected error for scalar fixture")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error for empty fixture")
	}
}

func TestVerifyGoldenFile(t *testing.T) {
	recs, err := Load(filepath.Join("testdata", "golden.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]bool{
		"/HEHLOW, MAY NEYM IHZ SAEM.": false,
		"FAH5NKSHUN":                  false,
		"MEHDDUL":                     false,
		"KAHMPYUWTER":                 false,
	}
	e := engine.New(nil)
	for _, rec := range recs {
		if _, ok := want[rec.Input]; !ok {
			t.Fatalf("unexpected record %q", rec.Input)
		}
		want[rec.Input] = true
		if rec.Output == nil || rec.Pitches == nil || rec.Frequency1 == nil || rec.Amplitude3 == nil {
			t.Fatalf("%q: golden record must pin triples and tracks", rec.Input)
		}
		mismatches, err := Verify(e, rec)
		if err != nil {
			t.Fatalf("verify %q: %v", rec.Input, err)
		}
		if len(mismatches) != 0 {
			t.Fatalf("%q: %v", rec.Input, mismatches)
		}
	}
	for input, seen := range want {
		if !seen {
			t.Fatalf("golden file lacks %q", input)
		}
	}
}

func TestFormantDataHasEightyEntries(t *testing.T) {
	e := engine.New(nil)
	rec, err := Capture(e, "AOL", nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	for name, data := range map[string][]uint8{
		"freq1data": rec.Freq1Data,
		"freq2data": rec.Freq2Data,
		"freq3data": rec.Freq3Data,
	} {
		if len(data) != 80 {
			t.Fatalf("%s has %d entries, want 80", name, len(data))
		}
	}

	// legacy records stop at index 79 although UN sets F1 to 0x13
	legacy := Record{
		Input:     "AOL",
		Freq1Data: rec.Freq1Data,
		Freq2Data: rec.Freq2Data,
		Freq3Data: rec.Freq3Data,
	}
	if m, err := Verify(e, legacy); err != nil || len(m) != 0 {
		t.Fatalf("80-entry record must verify: %v %v", m, err)
	}

	padded := legacy
	padded.Freq1Data = append(append([]uint8(nil), rec.Freq1Data...), 0)
	if m, err := Verify(e, padded); err != nil || len(m) != 0 {
		t.Fatalf("entries past 80 must be ignored: %v %v", m, err)
	}

	broken := legacy
	broken.Freq3Data = append([]uint8(nil), rec.Freq3Data...)
	broken.Freq3Data[79] = 0
	m, err := Verify(e, broken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(m) != 1 || m[0].Field != "freq3data" || m[0].Index != 79 || m[0].Want != 0 || m[0].Got != 1 {
		t.Fatalf("expected freq3data mismatch at 79, got %v", m)
	}
}
