package renderer

import "github.com/loqalabs/loqa-sam/internal/phoneme"

// Options shapes the voice. Pitch is a period, so larger values sound
// lower; Speed is the number of oscillator ticks per frame.
type Options struct {
	Pitch  uint8 `yaml:"pitch" json:"pitch"`
	Speed  uint8 `yaml:"speed" json:"speed"`
	Mouth  uint8 `yaml:"mouth" json:"mouth"`
	Throat uint8 `yaml:"throat" json:"throat"`
	// Sing keeps the stress pitch as is instead of shaping it by F1.
	Sing bool `yaml:"sing" json:"sing"`
}

// DefaultOptions is the stock voice.
func DefaultOptions() Options {
	return Options{Pitch: 64, Speed: 72, Mouth: 128, Throat: 128}
}

// Base F1 (mouth) and F2 (throat) values for phonemes 5..29 and 48..53.
var (
	mouthFormants5to29 = [25]uint8{
		10, 14, 19, 24, 27, 23, 21, 16, 20, 14, 18, 14, 18, 18,
		16, 13, 15, 11, 18, 14, 11, 9, 6, 6, 6,
	}
	throatFormants5to29 = [25]uint8{
		84, 73, 67, 63, 40, 44, 31, 37, 45, 73, 49, 36, 30, 51,
		37, 29, 69, 24, 50, 30, 24, 83, 46, 54, 86,
	}
	mouthFormants48to53  = [6]uint8{19, 27, 21, 27, 18, 13}
	throatFormants48to53 = [6]uint8{72, 39, 31, 43, 30, 34}
)

// voiceTables are the formant frequency tables after mouth and throat
// scaling. Each render call owns its copy.
type voiceTables struct {
	freq1, freq2, freq3 [phoneme.Count]uint8
}

func scaleFormant(factor, base uint8) uint8 {
	return uint8(((int(factor) * int(base)) >> 8) << 1)
}

func newVoiceTables(mouth, throat uint8) *voiceTables {
	v := &voiceTables{freq1: freq1Table, freq2: freq2Table, freq3: freq3Table}
	for i := range mouthFormants5to29 {
		v.freq1[5+i] = scaleFormant(mouth, mouthFormants5to29[i])
		v.freq2[5+i] = scaleFormant(throat, throatFormants5to29[i])
	}
	for i := range mouthFormants48to53 {
		v.freq1[48+i] = scaleFormant(mouth, mouthFormants48to53[i])
		v.freq2[48+i] = scaleFormant(throat, throatFormants48to53[i])
	}
	return v
}
