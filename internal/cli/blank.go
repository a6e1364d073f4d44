package cli

import "strings"

// blankAudioToken is what the whisper engine emits for audio it considers
// empty when the silence gate did not already catch it.
const blankAudioToken = "[BLANK_AUDIO]"

func isBlankText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	return strings.EqualFold(trimmed, blankAudioToken)
}
