package tts

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/loqa-sam/internal/protocol"
)

// execSynth hands rendering to an external voice program. When a
// Phonemizer is set the text is parsed here, so malformed notation fails
// before the program starts and the program receives the triples instead
// of having to parse SAM notation itself.
type execSynth struct {
	argv       []string
	phon       Phonemizer
	sampleRate int
	channels   int
	mu         sync.Mutex
}

// execRequest is written to the program's stdin as one JSON document.
type execRequest struct {
	Text       string             `json:"text"`
	Phonemes   []protocol.Phoneme `json:"phonemes,omitempty"`
	Pitch      uint8              `json:"pitch"`
	Speed      uint8              `json:"speed"`
	Mouth      uint8              `json:"mouth"`
	Throat     uint8              `json:"throat"`
	Sing       bool               `json:"sing,omitempty"`
	SampleRate int                `json:"sample_rate"`
	Channels   int                `json:"channels"`
}

// execReply is one line of the program's stdout. PCM is base64 16-bit
// little-endian; Frames may be reported on the final line.
type execReply struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
	Frames    int    `json:"frames,omitempty"`
}

// NewExecSynth parses command with shell quoting rules. phon may be nil, in
// which case only the raw text is sent.
func NewExecSynth(command string, sampleRate, channels int, phon Phonemizer) (Synthesizer, error) {
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("tts command empty")
	}
	return &execSynth{argv: argv, phon: phon, sampleRate: sampleRate, channels: channels}, nil
}

func (e *execSynth) request(req SynthRequest) (execRequest, error) {
	out := execRequest{
		Text:       req.Text,
		Pitch:      req.Voice.Pitch,
		Speed:      req.Voice.Speed,
		Mouth:      req.Voice.Mouth,
		Throat:     req.Voice.Throat,
		Sing:       req.Voice.Sing,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	}
	if e.phon == nil {
		return out, nil
	}
	seq, err := e.phon.Phonemes(req.Text)
	if err != nil {
		return execRequest{}, fmt.Errorf("parse %q: %w", req.Text, err)
	}
	out.Phonemes = PhonemesToProtocol(seq)
	return out, nil
}

// Synthesize runs one program per request. Requests are serialized.
func (e *execSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	e.mu.Lock()
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		defer e.mu.Unlock()

		payload, err := e.request(req)
		if err != nil {
			errs <- err
			return
		}
		stats := &SynthStats{Phonemes: len(payload.Phonemes)}
		seq := 0
		err = e.run(ctx, payload, func(reply execReply, pcm []byte) {
			chunk := SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   seq,
				SampleRate: e.sampleRate,
				Channels:   e.channels,
				BitDepth:   16,
				PCM:        pcm,
				Final:      reply.Final,
			}
			stats.Samples += len(pcm) / 2
			if reply.Final {
				stats.Frames = reply.Frames
				chunk.Stats = stats
			}
			chunks <- chunk
			seq++
		})
		if err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

// run starts the program, feeds it payload and calls emit per reply line.
func (e *execSynth) run(ctx context.Context, payload execRequest, emit func(execReply, []byte)) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.argv[0], err)
	}
	if _, err := stdin.Write(data); err != nil {
		_ = cmd.Wait()
		return err
	}
	_ = stdin.Close()

	if err := readReplies(stdout, emit); err != nil {
		_ = cmd.Wait()
		return err
	}
	return cmd.Wait()
}

func readReplies(r io.Reader, emit func(execReply, []byte)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var reply execReply
		if err := json.Unmarshal(line, &reply); err != nil {
			return fmt.Errorf("decode reply: %w", err)
		}
		pcm, err := base64.StdEncoding.DecodeString(reply.PCMBase64)
		if err != nil {
			return fmt.Errorf("decode pcm: %w", err)
		}
		emit(reply, pcm)
	}
	return scanner.Err()
}
