package protocol

import "time"

// Voice carries the four voice parameters of the formant renderer.
type Voice struct {
	Pitch  uint8 `json:"pitch"`
	Speed  uint8 `json:"speed"`
	Mouth  uint8 `json:"mouth"`
	Throat uint8 `json:"throat"`
	Sing   bool  `json:"sing,omitempty"`
}

// TTSRequest asks the node to speak phonetic text. A nil Voice selects the
// configured default.
type TTSRequest struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text"`
	Voice     *Voice `json:"voice,omitempty"`
}

// AudioChunk is one slice of synthesized PCM.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Target     string `json:"target,omitempty"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// TTSStatus closes a request, successful or not.
type TTSStatus struct {
	SessionID string    `json:"session_id"`
	Target    string    `json:"target,omitempty"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	Chunks    int       `json:"chunks"`
	Timestamp time.Time `json:"timestamp"`
}

// PhonemeRequest asks for the parse of text without rendering it.
type PhonemeRequest struct {
	Text string `json:"text"`
}

// Phoneme is one parsed triple with its display name.
type Phoneme struct {
	Name   string `json:"name"`
	Index  uint8  `json:"index"`
	Length uint8  `json:"length"`
	Stress uint8  `json:"stress"`
}

type PhonemeReply struct {
	Phonemes []Phoneme `json:"phonemes"`
	Error    string    `json:"error,omitempty"`
}

const (
	SubjectTTSRequest  = "tts.request"
	SubjectTTSAudio    = "tts.audio"
	SubjectTTSDone     = "tts.done"
	SubjectTTSPhonemes = "tts.phonemes"
)
