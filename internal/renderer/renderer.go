// Package renderer synthesizes 8-bit PCM speech from phoneme sequences.
//
// A sequence is split at Break markers into chunks. Each chunk is expanded
// into control frames (pitch, three formant frequencies and amplitudes, and
// a sampled-consonant flag), smoothed across phoneme boundaries, and played
// through a glottal-pulse driven formant synthesizer. All arithmetic is
// 8-bit and wraps.
package renderer

import (
	"fmt"

	"github.com/loqalabs/loqa-sam/internal/phoneme"
)

// Result is the output of one render call. The frame tracks of all chunks
// are concatenated in order; Freq*Data are the voice-adjusted formant
// tables the frames were built from.
type Result struct {
	Samples []byte

	Pitches              []byte
	SampledConsonantFlag []byte
	Frequency1           []byte
	Frequency2           []byte
	Frequency3           []byte
	Amplitude1           []byte
	Amplitude2           []byte
	Amplitude3           []byte

	Freq1Data [phoneme.Count]byte
	Freq2Data [phoneme.Count]byte
	Freq3Data [phoneme.Count]byte
}

// Frames returns the number of control frames in the result.
func (r *Result) Frames() int { return len(r.Pitches) }

// DurationMillis returns the audio length in milliseconds.
func (r *Result) DurationMillis() int {
	return len(r.Samples) * 1000 / SampleRate
}

func (r *Result) appendFrames(f *frames, n int) {
	r.Pitches = append(r.Pitches, f.pitch[:n]...)
	r.SampledConsonantFlag = append(r.SampledConsonantFlag, f.flag[:n]...)
	r.Frequency1 = append(r.Frequency1, f.freq1[:n]...)
	r.Frequency2 = append(r.Frequency2, f.freq2[:n]...)
	r.Frequency3 = append(r.Frequency3, f.freq3[:n]...)
	r.Amplitude1 = append(r.Amplitude1, f.ampl1[:n]...)
	r.Amplitude2 = append(r.Amplitude2, f.ampl2[:n]...)
	r.Amplitude3 = append(r.Amplitude3, f.ampl3[:n]...)
}

// Render synthesizes seq. It fails with phoneme.ErrInvalidIndex for indices
// outside the table (Break excepted) or stress above 9, and with
// phoneme.ErrTooLong when the sequence exceeds the fixed buffer. A chunk
// longer than 255 frames is not an error: its frame cursor wraps and only
// the frame count modulo 256 is played. No partial result is returned on
// failure.
func Render(seq phoneme.Sequence, opts Options) (*Result, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	for i, t := range seq {
		if int(t.Stress)+1 >= len(stressPitch) {
			return nil, fmt.Errorf("triple %d has stress %d: %w", i, t.Stress, phoneme.ErrInvalidIndex)
		}
	}

	voice := newVoiceTables(opts.Mouth, opts.Throat)
	res := &Result{
		Freq1Data: voice.freq1,
		Freq2Data: voice.freq2,
		Freq3Data: voice.freq3,
	}
	s := &synth{speed: opts.Speed, out: &pcmWriter{}}

	for _, chunk := range chunks(seq) {
		f := &frames{}
		n := f.expand(chunk, opts.Pitch, voice)
		count := f.smooth(chunk)
		if !opts.Sing {
			f.contour()
		}
		f.rescale()
		res.appendFrames(f, n)
		s.run(f, count)
	}
	res.Samples = s.out.samples()
	return res, nil
}

// RenderArrays renders the three-array interchange form, reading up to the
// End sentinel.
func RenderArrays(index, length, stress [phoneme.Capacity]byte, opts Options) (*Result, error) {
	seq, err := phoneme.FromArrays(index[:], length[:], stress[:])
	if err != nil {
		return nil, err
	}
	return Render(seq, opts)
}

// chunks splits seq at Break markers, dropping empty chunks.
func chunks(seq phoneme.Sequence) []phoneme.Sequence {
	var out []phoneme.Sequence
	start := 0
	for i, t := range seq {
		if t.Index != phoneme.Break {
			continue
		}
		if i > start {
			out = append(out, seq[start:i])
		}
		start = i + 1
	}
	if start < len(seq) {
		out = append(out, seq[start:])
	}
	return out
}
