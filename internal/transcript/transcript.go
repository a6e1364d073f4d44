// Package transcript shapes engine output into the JSON document jimaku
// prints on stdout.
package transcript

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/jimaku-dev/jimaku/internal/whisper"
)

// Segment is one subtitle entry. Times are seconds rounded to 2 decimals.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Word is a word-level alignment entry, flattened across segments in
// temporal order.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is the single document a successful run prints. Words is a pointer
// so the key is absent entirely unless word timing was requested; a requested
// but empty word list still marshals as [].
type Result struct {
	Text      string    `json:"text"`
	Subtitles []Segment `json:"subtitles"`
	Words     *[]Word   `json:"words,omitempty"`
}

// Build converts a recognition pass into the output envelope: segment times
// rounded to 2 decimals, texts trimmed, subtitles kept in engine order.
func Build(tr whisper.Transcription, includeWords bool) Result {
	subtitles := make([]Segment, 0, len(tr.Segments))
	var words []Word

	for _, seg := range tr.Segments {
		subtitles = append(subtitles, Segment{
			Start: roundSeconds(seg.StartMS),
			End:   roundSeconds(seg.EndMS),
			Text:  strings.TrimSpace(seg.Text),
		})

		if !includeWords {
			continue
		}
		for _, word := range seg.Words {
			words = append(words, Word{
				Word:  strings.TrimSpace(word.Text),
				Start: roundSeconds(word.StartMS),
				End:   roundSeconds(word.EndMS),
			})
		}
	}

	result := Result{
		Text:      tr.Text,
		Subtitles: subtitles,
	}
	if includeWords {
		if words == nil {
			words = []Word{}
		}
		result.Words = &words
	}

	return result
}

// Empty returns the result for audio with no recognizable speech.
func Empty(includeWords bool) Result {
	return Build(whisper.Transcription{}, includeWords)
}

// Encode writes the result as exactly one line of JSON. Non-ASCII text is
// written raw rather than \u-escaped.
func Encode(w io.Writer, result Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// EncodeError writes the single-key error envelope used for usage errors.
func EncodeError(w io.Writer, message string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(struct {
		Error string `json:"error"`
	}{Error: message})
}

func roundSeconds(ms int64) float64 {
	return math.Round(float64(ms)/10) / 100
}
