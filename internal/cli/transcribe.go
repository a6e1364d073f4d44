package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jimaku-dev/jimaku/internal/audio"
	"github.com/jimaku-dev/jimaku/internal/download"
	"github.com/jimaku-dev/jimaku/internal/transcript"
	"github.com/jimaku-dev/jimaku/internal/whisper"
	"go.uber.org/zap"
)

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (transcript.Result, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return transcript.Result{}, fmt.Errorf("audio file not found: %w", err)
	}

	if skipped, err := a.silentInput(audioPath); err != nil {
		return transcript.Result{}, err
	} else if skipped {
		return transcript.Empty(a.words), nil
	}

	model, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return transcript.Result{}, err
	}

	engine, err := whisper.NewBundledEngine(a.log())
	if err != nil {
		return transcript.Result{}, err
	}

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("model", model.Path),
		zap.String("language", a.language),
		zap.Bool("words", a.words),
	)
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	recognized, err := engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath:      audioPath,
		ModelPath:      model.Path,
		Language:       a.language,
		WordTimestamps: a.words,
	})
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return transcript.Result{}, err
	}
	a.log().Info("transcription finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("segments", len(recognized.Segments)),
	)

	return transcript.Build(recognized, a.words), nil
}

// silentInput reports whether the gate decided the clip has no speech. Gate
// failures fall through to a normal engine pass.
func (a *appState) silentInput(audioPath string) (bool, error) {
	if !a.silenceGate || !a.isWAV(audioPath) {
		return false, nil
	}

	silent, levels, err := audio.IsSilentWAV(audioPath, a.silenceDBFS)
	if err != nil {
		a.log().Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", audioPath))
		return false, nil
	}

	if !silent {
		return false, nil
	}

	a.log().Info(
		"audio considered silent; skipping transcription",
		zap.String("audio", audioPath),
		zap.Float64("rms_dbfs", levels.RMSdBFS),
		zap.Float64("peak_dbfs", levels.PeakdBFS),
		zap.Float64("threshold_dbfs", a.silenceDBFS),
	)

	return true, nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `jimaku setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

func isBlankResult(result transcript.Result) bool {
	if len(result.Subtitles) > 0 {
		return false
	}
	return isBlankText(result.Text)
}

func noSpeechHint() string {
	return "No speech detected in the input audio."
}
