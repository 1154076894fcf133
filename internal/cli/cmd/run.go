package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidgrab/internal/catalog"
	"vidgrab/internal/config"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/selection"
	"vidgrab/internal/ui"
	"vidgrab/internal/util"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "get ID|URL",
		Short:         "Choose a stream and download it (default command)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE:          runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	s := settingsFrom(cmd)
	id, err := util.ExtractVideoID(args[0])
	if err != nil {
		return asExit(err)
	}
	console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
	svc := newService(cmd, s, console, chooserFor(cmd, s, console))
	_, err = svc.RunJob(cmd.Context(), id)
	return asExit(err)
}

func newService(cmd *cobra.Command, s config.Settings, console *ui.Console, chooser selection.Chooser) *pipeline.Service {
	errw := cmd.ErrOrStderr()
	return pipeline.NewService(
		pipeline.WithClient(newClient(s)),
		pipeline.WithHost(s.Host),
		pipeline.WithChooser(chooser),
		pipeline.WithReporter(console),
		pipeline.WithSink(ui.NewProgressWriter(errw, isTerminal(errw))),
		pipeline.WithChunkSize(s.ChunkSize),
	)
}

// chooserFor uses --quality when set and otherwise prints the menu and
// prompts on stdin.
func chooserFor(cmd *cobra.Command, s config.Settings, console *ui.Console) selection.Chooser {
	if s.Quality > 0 {
		return selection.Fixed{Ordinal: s.Quality}
	}
	return &menuChooser{
		console: console,
		prompter: &selection.Prompter{
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
			MaxAttempts: s.PromptAttempts,
			OnInvalid:   func(err error) { console.Warn(fmt.Sprintf("%v, try again", err)) },
		},
	}
}

type menuChooser struct {
	console  *ui.Console
	prompter *selection.Prompter
}

func (m *menuChooser) Choose(cat catalog.Catalog) (catalog.Entry, error) {
	m.console.Menu("Available streams:", cat)
	return m.prompter.Choose(cat)
}
