package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidgrab/internal/ui"
	"vidgrab/internal/util"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "info ID|URL",
		Short:         "List the title and available streams without downloading",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settingsFrom(cmd)
			id, err := util.ExtractVideoID(args[0])
			if err != nil {
				return asExit(err)
			}
			console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			info, err := newService(cmd, s, console, nil).Info(cmd.Context(), id)
			if err != nil {
				return asExit(err)
			}
			console.Menu(fmt.Sprintf("%s (%s)", info.Metadata.Title(), info.VideoID), info.Catalog)
			return nil
		},
	}
}
