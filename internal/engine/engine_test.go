package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

func TestSpeakGreeting(t *testing.T) {
	e := New(nil)
	sp, err := e.Speak("/HEHLOW, MAY NEYM IHZ SAEM.", renderer.DefaultOptions())
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if len(sp.Phonemes) == 0 || sp.Frames() == 0 || len(sp.Samples) == 0 {
		t.Fatalf("empty speech: %d phonemes, %d frames, %d samples", len(sp.Phonemes), sp.Frames(), len(sp.Samples))
	}
	if sp.Phonemes[len(sp.Phonemes)-1].Index != phoneme.Break {
		t.Fatalf("expected trailing break, got %v", sp.Phonemes)
	}
	if sp.DurationMillis() <= 0 {
		t.Fatal("expected a positive duration")
	}
}

func TestSpeakPropagatesSentinels(t *testing.T) {
	e := New(nil)
	long := bytes.Repeat([]byte("AA"), 256)
	if _, err := e.Speak(string(long), renderer.DefaultOptions()); !errors.Is(err, phoneme.ErrTooLong) {
		t.Fatalf("expected too long, got %v", err)
	}
}

func TestPhonemesMatchesSpeak(t *testing.T) {
	e := New(nil)
	seq, err := e.Phonemes("SAH5KSEHSFUHL")
	if err != nil {
		t.Fatalf("phonemes: %v", err)
	}
	sp, err := e.Speak("SAH5KSEHSFUHL", renderer.DefaultOptions())
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if seq.String() != sp.Phonemes.String() {
		t.Fatalf("parse-only %q differs from %q", seq, sp.Phonemes)
	}
}

func TestEncodeWAV(t *testing.T) {
	samples := []byte{0x80, 0xF0, 0x00, 0x10, 0x80, 0x70}
	out, err := EncodeWAV(samples)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(out) < 44+len(samples) {
		t.Fatalf("wav too short: %d bytes", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" || string(out[12:16]) != "fmt " {
		t.Fatalf("bad header %q", out[:16])
	}
	if ch := binary.LittleEndian.Uint16(out[22:24]); ch != 1 {
		t.Fatalf("expected mono, got %d channels", ch)
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != renderer.SampleRate {
		t.Fatalf("expected %d Hz, got %d", renderer.SampleRate, rate)
	}
	if bits := binary.LittleEndian.Uint16(out[34:36]); bits != 8 {
		t.Fatalf("expected 8-bit samples, got %d", bits)
	}
	if string(out[36:40]) != "data" {
		t.Fatalf("expected data chunk, got %q", out[36:40])
	}
	if n := binary.LittleEndian.Uint32(out[40:44]); n != uint32(len(samples)) {
		t.Fatalf("data chunk size %d, want %d", n, len(samples))
	}
	if !bytes.Equal(out[44:44+len(samples)], samples) {
		t.Fatalf("payload mismatch: %v", out[44:44+len(samples)])
	}
}

func TestPCM16(t *testing.T) {
	got := PCM16([]byte{0x80, 0xF0, 0x00})
	want := []byte{0x00, 0x00, 0x00, 0x70, 0x00, 0x80}
	if !bytes.Equal(got, want) {
		t.Fatalf("PCM16 = %x, want %x", got, want)
	}
}

func TestMemFileSeek(t *testing.T) {
	var f memFile
	_, _ = f.Write([]byte("abcdef"))
	if _, err := f.Seek(1, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	_, _ = f.Write([]byte("XY"))
	if pos, _ := f.Seek(0, io.SeekEnd); pos != 6 {
		t.Fatalf("expected end 6, got %d", pos)
	}
	if string(f.buf) != "aXYdef" {
		t.Fatalf("unexpected buffer %q", f.buf)
	}
	if _, err := f.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error for negative offset")
	}
}
