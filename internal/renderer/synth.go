package renderer

// SampleRate of the rendered PCM.
const SampleRate = 22050

// subTicks is the number of timetable units per output sample.
const subTicks = 50

// Output kinds index the timetable.
const (
	outFormant = iota
	outUnvoicedLow
	outUnvoicedHigh
	outVoicedHigh
	outVoicedLow
)

// pcmWriter places 4-bit levels on the sample grid. Each write lands a
// little ahead of the cursor and covers five samples; later writes
// overwrite the tail of earlier ones.
type pcmWriter struct {
	buf  []byte
	pos  int
	last int
}

func (w *pcmWriter) write(kind int, level uint8) {
	w.pos += timetable[w.last][kind]
	w.last = kind
	at := w.pos / subTicks
	for len(w.buf) < at+5 {
		w.buf = append(w.buf, 0)
	}
	v := (level & 0x0F) * 16
	for k := 0; k < 5; k++ {
		w.buf[at+k] = v
	}
}

func (w *pcmWriter) samples() []byte {
	n := w.pos / subTicks
	if n > len(w.buf) {
		n = len(w.buf)
	}
	out := make([]byte, n)
	copy(out, w.buf)
	return out
}

// synth turns frames into samples. The writer persists across the chunks
// of one render call.
type synth struct {
	speed uint8
	out   *pcmWriter
}

// run consumes count frames. Voiced frames drive three formant oscillators
// reset on every glottal pulse; sampled consonants play noise rows.
//
// A sampled consonant consumes two frames. When it lands on the last frame
// of the count, run stops there; the 8-bit counter of the legacy engine
// would instead wrap to 255 and keep playing stale frames.
func (s *synth) run(f *frames, count uint8) {
	speedcounter := uint8(72)
	var phase1, phase2, phase3, noiseOffset, y uint8

	glottal := f.pitch[0]
	open := glottal - glottal>>2

	for count != 0 {
		flag := f.flag[y]
		if flag&0xF8 != 0 {
			s.sample(&noiseOffset, flag, f.pitch[y])
			y += 2
			if count < 2 {
				return
			}
			count -= 2
			speedcounter = s.speed
		} else {
			s.mix(phase1, phase2, phase3, f, y)
			speedcounter--
			if speedcounter == 0 {
				y++
				count--
				if count == 0 {
					return
				}
				speedcounter = s.speed
			}

			glottal--
			if glottal != 0 {
				open--
				if open != 0 || flag == 0 {
					phase1 += f.freq1[y]
					phase2 += f.freq2[y]
					phase3 += f.freq3[y]
					continue
				}
				// voiced fricatives interleave noise with the closed glottis
				s.sample(&noiseOffset, flag, f.pitch[y])
			}
		}

		glottal = f.pitch[y]
		open = glottal - glottal>>2
		phase1, phase2, phase3 = 0, 0, 0
	}
}

// mix sums the two sine formants and the rectangle formant into one 4-bit
// level.
func (s *synth) mix(phase1, phase2, phase3 uint8, f *frames, y uint8) {
	tmp := uint(multtable[sine[phase1]|f.ampl1[y]])
	tmp += uint(multtable[sine[phase2]|f.ampl2[y]])
	if tmp > 255 {
		tmp++
	}
	tmp += uint(multtable[rectangle[phase3]|f.ampl3[y]])
	tmp += 136
	tmp >>= 4
	s.out.write(outFormant, uint8(tmp&0x0F))
}

// sample plays one noise row. Flags with high bits play an unvoiced burst
// from that offset to the end of the row; otherwise a voiced burst whose
// length follows the pitch and whose offset carries over between calls.
func (s *synth) sample(offset *uint8, flag, pitch uint8) {
	row := (flag & 7) - 1
	base := int(row) * 256
	start := flag & 0xF8
	if start == 0 {
		*offset = s.voiced(base, *offset, (pitch>>4)^0xFF)
		return
	}
	s.unvoiced(base, start^0xFF, unvoicedLevel[row])
}

func (s *synth) voiced(base int, off, n uint8) uint8 {
	for {
		bits := noiseAt(base + int(off))
		for k := 0; k < 8; k++ {
			if bits&0x80 != 0 {
				s.out.write(outVoicedHigh, 26)
			} else {
				s.out.write(outVoicedLow, 6)
			}
			bits <<= 1
		}
		off++
		n++
		if n == 0 {
			return off
		}
	}
}

func (s *synth) unvoiced(base int, off, level uint8) {
	for {
		bits := noiseAt(base + int(off))
		for k := 0; k < 8; k++ {
			if bits&0x80 != 0 {
				s.out.write(outUnvoicedHigh, 5)
			} else {
				s.out.write(outUnvoicedLow, level)
			}
			bits <<= 1
		}
		off++
		if off == 0 {
			return
		}
	}
}

func noiseAt(i int) uint8 {
	return noiseTable[i%len(noiseTable)]
}
