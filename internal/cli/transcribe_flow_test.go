package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSilentWAVShortCircuitsToEmptyResult(t *testing.T) {
	t.Parallel()

	silentWAV := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(silentWAV, makePCM16WAVForTest(make([]int16, 16000), 16000, 1), 0o644))

	// The gate decides before any model resolution, so this runs without
	// weights or an engine binary.
	stdout, _, err := runCommand(t, []string{"--model-dir", t.TempDir(), silentWAV})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "", decoded["text"])
	require.Equal(t, []any{}, decoded["subtitles"])
}

func TestSilentWAVWithWordsKeepsEmptyWordList(t *testing.T) {
	t.Parallel()

	silentWAV := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(silentWAV, makePCM16WAVForTest(make([]int16, 16000), 16000, 1), 0o644))

	stdout, _, err := runCommand(t, []string{"--model-dir", t.TempDir(), "--words", silentWAV})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Len(t, decoded, 3)
	require.Equal(t, []any{}, decoded["words"])
}

func TestMissingModelWithoutAutoDownload(t *testing.T) {
	t.Parallel()

	// Not a WAV, so the silence gate does not intercept the run.
	audio := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("fake-mp3"), 0o644))

	_, _, err := runCommand(t, []string{"--model-dir", t.TempDir(), "--auto-download=false", audio})
	require.Error(t, err)
	require.Contains(t, err.Error(), "run `jimaku setup --model base`")
}

func TestIsBlankText(t *testing.T) {
	t.Parallel()

	require.True(t, isBlankText(""))
	require.True(t, isBlankText("   \n"))
	require.True(t, isBlankText(" [BLANK_AUDIO] "))
	require.False(t, isBlankText("こんにちは"))
}
