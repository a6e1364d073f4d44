package whisper

import "context"

// TranscriptionRequest describes a single recognition pass over one audio file.
type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
	// WordTimestamps asks the engine for per-token timing so callers can
	// derive word-level alignment in addition to segment timing.
	WordTimestamps bool
}

// Segment is one contiguous span of recognized speech. Offsets are engine
// native milliseconds; conversion to seconds happens at the output boundary.
type Segment struct {
	StartMS int64
	EndMS   int64
	Text    string
	Words   []Word
}

// Word is a finer-grained alignment inside a segment, populated only when the
// request asked for word timestamps.
type Word struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// Transcription is the typed result of one recognition pass.
type Transcription struct {
	Language string
	Text     string
	Segments []Segment
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error)
}
