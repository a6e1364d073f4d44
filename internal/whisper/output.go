package whisper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// engineOutput mirrors the JSON document whisper-cli writes with -oj. Token
// entries are present only when the full variant (-ojf) is requested.
type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []engineSegment `json:"transcription"`
}

type engineSegment struct {
	Offsets engineOffsets `json:"offsets"`
	Text    string        `json:"text"`
	Tokens  []engineToken `json:"tokens"`
}

type engineOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type engineToken struct {
	Text    string        `json:"text"`
	Offsets engineOffsets `json:"offsets"`
	ID      int           `json:"id"`
	P       float64       `json:"p"`
}

func parseEngineOutput(data []byte, wantWords bool) (Transcription, error) {
	var doc engineOutput
	if err := json.Unmarshal(data, &doc); err != nil {
		return Transcription{}, fmt.Errorf("decode whisper engine output: %w", err)
	}

	var fullText strings.Builder
	segments := make([]Segment, 0, len(doc.Transcription))

	for _, seg := range doc.Transcription {
		fullText.WriteString(seg.Text)

		segment := Segment{
			StartMS: seg.Offsets.From,
			EndMS:   seg.Offsets.To,
			Text:    seg.Text,
		}
		if wantWords {
			segment.Words = groupTokensIntoWords(seg.Tokens)
		}

		segments = append(segments, segment)
	}

	return Transcription{
		Language: doc.Result.Language,
		Text:     fullText.String(),
		Segments: segments,
	}, nil
}

// groupTokensIntoWords merges subword tokens into word-level spans. A token
// whose text begins with whitespace starts a new word; languages written
// without spaces (e.g. Japanese) therefore yield one word per token run,
// which matches the alignment granularity the engine can actually provide.
func groupTokensIntoWords(tokens []engineToken) []Word {
	var words []Word

	for _, token := range tokens {
		if isSpecialToken(token.Text) {
			continue
		}

		startsWord := len(words) == 0 || strings.HasPrefix(token.Text, " ")
		if startsWord {
			words = append(words, Word{
				StartMS: token.Offsets.From,
				EndMS:   token.Offsets.To,
				Text:    token.Text,
			})
			continue
		}

		last := &words[len(words)-1]
		last.Text += token.Text
		if token.Offsets.To > last.EndMS {
			last.EndMS = token.Offsets.To
		}
	}

	// Drop runs that were pure whitespace or punctuation-only remnants of
	// special token filtering.
	filtered := words[:0]
	for _, word := range words {
		if strings.TrimSpace(word.Text) == "" {
			continue
		}
		filtered = append(filtered, word)
	}

	return filtered
}

// isSpecialToken reports whether the token is one of whisper's internal
// markers such as [_BEG_], [_EOT_] or the [_TT_123] timestamp tokens.
func isSpecialToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "[_") && strings.HasSuffix(trimmed, "]")
}
