package renderer

import (
	"github.com/loqalabs/loqa-sam/internal/phoneme"
	"github.com/loqalabs/loqa-sam/internal/wrap"
)

// frameCapacity is the size of the per-chunk frame buffers, addressed by an
// 8-bit cursor.
const frameCapacity = 256

const (
	risingInflection  uint8 = 1
	fallingInflection uint8 = 255
)

type track int

const (
	trackPitch track = iota
	trackFreq1
	trackFreq2
	trackFreq3
	trackAmpl1
	trackAmpl2
	trackAmpl3
)

// frames holds the control data of one chunk.
type frames struct {
	pitch, flag         [frameCapacity]uint8
	freq1, freq2, freq3 [frameCapacity]uint8
	ampl1, ampl2, ampl3 [frameCapacity]uint8
}

func (f *frames) track(t track) *[frameCapacity]uint8 {
	switch t {
	case trackPitch:
		return &f.pitch
	case trackFreq1:
		return &f.freq1
	case trackFreq2:
		return &f.freq2
	case trackFreq3:
		return &f.freq3
	case trackAmpl1:
		return &f.ampl1
	case trackAmpl2:
		return &f.ampl2
	default:
		return &f.ampl3
	}
}

// frameCount is the number of frames a phoneme occupies. Zero behaves as
// a full 8-bit wrap of the frame counter.
func frameCount(length uint8) int {
	if length == 0 {
		return frameCapacity
	}
	return int(length)
}

// expand writes Length frames per phoneme and applies the sentence-final
// inflections. The frame cursor is an 8-bit register: a chunk longer than
// the buffers wraps around and overwrites its own first frames. It returns
// the number of distinct frames written.
func (f *frames) expand(chunk phoneme.Sequence, pitch uint8, voice *voiceTables) int {
	var x wrap.Uint8
	total := 0
	for _, t := range chunk {
		switch t.Index {
		case phoneme.Period:
			f.inflect(risingInflection, x.Get())
		case phoneme.Question:
			f.inflect(fallingInflection, x.Get())
		}
		p := pitch + stressPitch[t.Stress+1]
		n := frameCount(t.Length)
		for k := 0; k < n; k++ {
			i := x.Get()
			f.freq1[i] = voice.freq1[t.Index]
			f.freq2[i] = voice.freq2[t.Index]
			f.freq3[i] = voice.freq3[t.Index]
			f.ampl1[i] = ampl1Table[t.Index]
			f.ampl2[i] = ampl2Table[t.Index]
			f.ampl3[i] = ampl3Table[t.Index]
			f.flag[i] = sampledConsonantFlags[t.Index]
			f.pitch[i] = p
			x.Inc()
		}
		total += n
	}
	return min(total, frameCapacity)
}

// inflect ramps the pitch of the 30 frames before end, starting from the
// first frame whose pitch is not 127. Frames with pitch 255 are skipped.
func (f *frames) inflect(inflection, end uint8) {
	var pos uint8
	if end >= 30 {
		pos = end - 30
	}
	a := f.pitch[pos]
	for a == 127 {
		pos++
		a = f.pitch[pos]
	}
	for pos != end {
		a += inflection
		f.pitch[pos] = a
		for {
			pos++
			if pos == end || f.pitch[pos] != 255 {
				break
			}
		}
	}
}

// blend returns the frames taken from the current (in) and next (out)
// phoneme for the transition between them.
func blend(cur, next uint8) (before, after uint8) {
	rank, nextRank := blendRank[cur], blendRank[next]
	switch {
	case rank == nextRank:
		return outBlendLength[cur], outBlendLength[next]
	case rank < nextRank:
		return inBlendLength[next], outBlendLength[next]
	default:
		return outBlendLength[cur], inBlendLength[cur]
	}
}

// smooth interpolates every track across each phoneme boundary and returns
// the 8-bit frame count handed to the synthesizer. The boundary wraps with
// the frame cursor, so a chunk of 256 frames or more yields the count
// modulo 256.
func (f *frames) smooth(chunk phoneme.Sequence) uint8 {
	var boundary wrap.Uint8
	for pos := 0; pos+1 < len(chunk); pos++ {
		before, after := blend(chunk[pos].Index, chunk[pos+1].Index)
		boundary.Add(int(chunk[pos].Length))

		b := boundary.Get()
		stop := b + after
		start := b - before
		width := before + after
		if (int(width)-2)&0x80 != 0 {
			continue
		}

		// pitch runs from the middle of this phoneme to the middle of the next
		cur := chunk[pos].Length / 2
		next := chunk[pos+1].Length / 2
		delta := int8(f.pitch[b+next] - f.pitch[b-cur])
		interpolate(&f.pitch, cur+next, start, delta)

		for t := trackFreq1; t <= trackAmpl3; t++ {
			tab := f.track(t)
			interpolate(tab, width, start, int8(tab[stop]-tab[start]))
		}
	}
	boundary.Add(int(chunk[len(chunk)-1].Length))
	return boundary.Get()
}

// interpolate spreads delta over width frames following frame, carrying the
// division remainder as an accumulated error. Values stuck at zero stay
// there on a rising slope.
func interpolate(tab *[frameCapacity]uint8, width, frame uint8, delta int8) {
	if width == 0 {
		return
	}
	d := int(delta)
	negative := d < 0
	mag := d
	if negative {
		mag = -d
	}
	remainder := uint8(mag % int(width))
	step := uint8(d / int(width))

	var acc uint8
	val := tab[frame] + step
	for n := width - 1; n > 0; n-- {
		acc += remainder
		if acc >= width {
			acc -= width
			if negative {
				val--
			} else if val != 0 {
				val++
			}
		}
		frame++
		tab[frame] = val
		val += step
	}
}

// contour lowers each frame's pitch by half its F1.
func (f *frames) contour() {
	for i := range f.pitch {
		f.pitch[i] -= f.freq1[i] >> 1
	}
}

// rescale maps the linear amplitudes through the logarithmic table.
func (f *frames) rescale() {
	for _, tab := range []*[frameCapacity]uint8{&f.ampl1, &f.ampl2, &f.ampl3} {
		for i, a := range tab {
			if int(a) < len(amplitudeRescale) {
				tab[i] = amplitudeRescale[a]
			} else {
				tab[i] = 0
			}
		}
	}
}
