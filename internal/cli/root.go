package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimaku-dev/jimaku/internal/logging"
	"github.com/jimaku-dev/jimaku/internal/platform"
	"github.com/jimaku-dev/jimaku/internal/transcript"
	"github.com/jimaku-dev/jimaku/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// DefaultLanguage is the recognition language when none is given. Language
// auto-detection is deliberately unsupported.
const DefaultLanguage = "ja"

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	model        string
	modelDir     string
	language     string
	autoDownload bool
	words        bool
	silenceGate  bool
	silenceDBFS  float64

	logger *zap.Logger

	transcribeFn func(ctx context.Context, audioPath string) (transcript.Result, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		model:        "base",
		language:     DefaultLanguage,
		autoDownload: true,
		silenceGate:  true,
		silenceDBFS:  -65,
	}
	app.transcribeFn = app.transcribeAudio

	return newRootCmd(app)
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jimaku <audio-file> [model]",
		Short:         "Transcribe an audio file to subtitle JSON with a bundled whisper engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		Args:          validateTranscribeArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			language, err := sanitizeLanguage(app.language)
			if err != nil {
				return err
			}
			app.language = language
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				app.model = args[1]
			}

			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			result, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if isBlankResult(result) {
				app.log().Warn(noSpeechHint())
			}

			return transcript.Encode(cmd.OutOrStdout(), result)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindSilenceFlags(cmd, app)
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	cmd.Flags().BoolVar(&app.words, "words", false, "Also emit per-word timestamps")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func validateTranscribeArgs(_ *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("audio file path is required")
	}
	if len(args) > 2 {
		return fmt.Errorf("accepts at most 2 arg(s), received %d", len(args))
	}
	return nil
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json-logs", app.jsonLogs, "Enable JSON logging on stderr")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model name or model file path")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (ja|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent WAV audio and skip the engine")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

func sanitizeLanguage(input string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return DefaultLanguage, nil
	}
	if trimmed == "auto" {
		return "", errors.New("language auto-detection is not supported; pass an explicit language code")
	}
	return trimmed, nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) isWAV(audioPath string) bool {
	return strings.EqualFold(filepath.Ext(audioPath), ".wav")
}
