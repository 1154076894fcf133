package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vidgrab/internal/selection"
	"vidgrab/internal/ui"
	"vidgrab/internal/util"
)

// BatchEntry is one video in a batch file. Quality overrides --quality.
type BatchEntry struct {
	Video   string `yaml:"video"`
	Quality int    `yaml:"quality,omitempty"`
}

type BatchFile struct {
	Videos []BatchEntry `yaml:"videos"`
}

func parseBatch(data []byte) ([]BatchEntry, error) {
	var bf BatchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	var out []BatchEntry
	for i, e := range bf.Videos {
		if e.Video == "" {
			return nil, fmt.Errorf("batch entry %d: video is required", i+1)
		}
		if e.Quality < 0 {
			return nil, fmt.Errorf("batch entry %d: quality must be >= 1", i+1)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errors.New("no videos in batch file")
	}
	return out, nil
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE.yaml",
		Short: "Download several videos listed in a YAML file, one after another",
		Long: `The batch file lists videos by id or URL:

videos:
  - video: dQw4w9WgXcQ
    quality: 2
  - video: https://youtu.be/9bZkp7q19f0
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settingsFrom(cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("read batch file: %w", err)}
			}
			entries, err := parseBatch(data)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			// one prompter so buffered stdin survives across videos
			prompt := chooserFor(cmd, s, console)

			var failed int
			var firstErr error
			for i, e := range entries {
				console.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(entries), e.Video))
				chooser := prompt
				if e.Quality > 0 {
					chooser = selection.Fixed{Ordinal: e.Quality}
				}
				id, err := util.ExtractVideoID(e.Video)
				if err == nil {
					_, err = newService(cmd, s, console, chooser).RunJob(cmd.Context(), id)
				}
				if err != nil {
					console.Error(err)
					failed++
					if firstErr == nil {
						firstErr = err
					}
					if cmd.Context().Err() != nil {
						break
					}
				}
			}
			if failed > 0 {
				return &ExitError{
					Code: exitCode(firstErr),
					Err:  fmt.Errorf("%d of %d downloads failed", failed, len(entries)),
				}
			}
			return nil
		},
	}
}
