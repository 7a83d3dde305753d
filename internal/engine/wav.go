package engine

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loqalabs/loqa-sam/internal/renderer"
)

// WriteWAV writes unsigned 8-bit mono samples as a RIFF/WAVE stream at the
// renderer sample rate.
func WriteWAV(w io.WriteSeeker, samples []byte) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: renderer.SampleRate},
		Data:           data,
		SourceBitDepth: 8,
	}
	enc := wav.NewEncoder(w, renderer.SampleRate, 8, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// EncodeWAV returns samples as an in-memory WAV file.
func EncodeWAV(samples []byte) ([]byte, error) {
	var f memFile
	if err := WriteWAV(&f, samples); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// PCM16 converts unsigned 8-bit samples to signed 16-bit little endian.
func PCM16(samples []byte) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := uint16(int16(int(s)-128) << 8)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// memFile is a growable io.WriteSeeker; the WAV encoder seeks back to patch
// the chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
