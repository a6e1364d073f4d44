package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveBundledEnginePathFindsLibexecSibling(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	engineDir := filepath.Join(root, "libexec", "whisper")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.MkdirAll(engineDir, 0o755))

	jimaku := filepath.Join(binDir, "jimaku")
	require.NoError(t, os.WriteFile(jimaku, []byte(""), 0o755))

	enginePath := filepath.Join(engineDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(jimaku)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveBundledEnginePathMissing(t *testing.T) {
	t.Parallel()

	jimaku := filepath.Join(t.TempDir(), "bin", "jimaku")
	require.NoError(t, os.MkdirAll(filepath.Dir(jimaku), 0o755))
	require.NoError(t, os.WriteFile(jimaku, []byte(""), 0o755))

	_, err := ResolveBundledEnginePath(jimaku)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bundled whisper engine not found")
}

func TestResolveBundledEnginePathFindsPackagingPathForLocalDev(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	jimaku := filepath.Join(root, "jimaku")
	require.NoError(t, os.WriteFile(jimaku, []byte(""), 0o755))

	targetDir := filepath.Join(root, "packaging", "whisper", fmt.Sprintf("%s_%s", runtime.GOOS, normalizeArch(runtime.GOARCH)))
	require.NoError(t, os.MkdirAll(targetDir, 0o755))
	enginePath := filepath.Join(targetDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(jimaku)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestBundledEngineTranscribeParsesFakeEngineOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine script requires a POSIX shell")
	}
	t.Parallel()

	// A stand-in whisper-cli that writes canned JSON to the -of base path.
	script := `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
	if [ "$prev" = "-of" ]; then out="$arg"; fi
	prev="$arg"
done
cat > "$out.json" <<'EOF'
{
	"result": {"language": "ja"},
	"transcription": [
		{"offsets": {"from": 0, "to": 1230}, "text": " こんにちは"}
	]
}
EOF
`
	enginePath := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(enginePath, []byte(script), 0o755))

	engine := &BundledEngine{Executable: enginePath}
	result, err := engine.Transcribe(context.Background(), TranscriptionRequest{
		AudioPath: "/tmp/sample.wav",
		ModelPath: "/tmp/ggml-base.bin",
		Language:  "ja",
	})
	require.NoError(t, err)
	require.Equal(t, "ja", result.Language)
	require.Equal(t, " こんにちは", result.Text)
	require.Len(t, result.Segments, 1)
	require.Equal(t, int64(1230), result.Segments[0].EndMS)
}

func TestBundledEngineTranscribeRequiresPaths(t *testing.T) {
	t.Parallel()

	engine := &BundledEngine{Executable: "/no/such/engine"}

	_, err := engine.Transcribe(context.Background(), TranscriptionRequest{ModelPath: "m.bin"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio path is required")

	_, err = engine.Transcribe(context.Background(), TranscriptionRequest{AudioPath: "a.wav"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model path is required")
}

func TestIsMissingSharedLibraryError(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1: cannot open shared object file"))
	require.True(t, isMissingSharedLibraryError("dyld: Library not loaded: @rpath/libwhisper.dylib"))
	require.False(t, isMissingSharedLibraryError("some other runtime error"))
}

func TestIsIllegalInstructionError(t *testing.T) {
	t.Parallel()

	require.True(t, isIllegalInstructionError("signal: illegal instruction (core dumped)"))
	require.False(t, isIllegalInstructionError("some other runtime error"))
	require.False(t, isIllegalInstructionError(""))
}
