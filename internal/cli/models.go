package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jimaku-dev/jimaku/internal/whisper"
	"github.com/spf13/cobra"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known model size identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range whisper.ModelNames() {
				model, _ := whisper.LookupModel(name)

				status := "not downloaded"
				if _, statErr := os.Stat(filepath.Join(modelDir, model.FileName)); statErr == nil {
					status = "downloaded"
				} else if !errors.Is(statErr, os.ErrNotExist) {
					return fmt.Errorf("stat model %s: %w", name, statErr)
				}

				marker := " "
				if name == whisper.DefaultModel {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-10s %-20s %s\n", marker, name, model.FileName, status)
			}
			fmt.Fprintf(out, "\n* default model; weights stored in %s\n", modelDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")

	return cmd
}
