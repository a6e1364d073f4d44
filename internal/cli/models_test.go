package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelsCommandListsRegistry(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "ggml-tiny.bin"), []byte("weights"), 0o644))

	stdout, _, err := runCommand(t, []string{"models", "--model-dir", modelDir})
	require.NoError(t, err)

	require.Contains(t, stdout, "* base")
	require.Contains(t, stdout, "tiny")
	require.Contains(t, stdout, "ggml-large-v3.bin")
	require.Regexp(t, `tiny\s+ggml-tiny\.bin\s+downloaded`, stdout)
	require.Regexp(t, `base\s+ggml-base\.bin\s+not downloaded`, stdout)
}
