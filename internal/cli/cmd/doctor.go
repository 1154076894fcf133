package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidgrab/internal/httpclient"
	"vidgrab/internal/util/format"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Show the effective configuration and check the metadata host is reachable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := settingsFrom(cmd)
			out := cmd.OutOrStdout()

			cfgFile := s.ConfigFile
			if cfgFile == "" {
				cfgFile = "(none)"
			}
			limit := "unlimited"
			if s.LimitRate > 0 {
				limit = format.HumanizeRate(float64(s.LimitRate))
			}
			attempts := "unlimited"
			if s.PromptAttempts > 0 {
				attempts = fmt.Sprint(s.PromptAttempts)
			}
			fmt.Fprintf(out, "Config file:     %s\n", cfgFile)
			fmt.Fprintf(out, "Host:            %s\n", s.Host)
			fmt.Fprintf(out, "Timeout:         %s\n", s.Timeout)
			fmt.Fprintf(out, "Read timeout:    %s\n", s.ReadTimeout)
			fmt.Fprintf(out, "User-Agent:      %s\n", s.UserAgent)
			if len(s.Headers) > 0 {
				fmt.Fprintf(out, "Headers:         %s\n", strings.Join(s.Headers, "; "))
			}
			fmt.Fprintf(out, "Chunk size:      %s\n", format.HumanizeBytes(int64(s.ChunkSize)))
			fmt.Fprintf(out, "Rate limit:      %s\n", limit)
			fmt.Fprintf(out, "Prompt attempts: %s\n", attempts)

			target := "https://" + s.Host + "/"
			resp, err := newClient(s).Get(cmd.Context(), target)
			switch {
			case err == nil:
				resp.Body.Close()
				fmt.Fprintf(out, "Reachable:       yes (%s)\n", resp.Status)
			case errors.Is(err, httpclient.ErrUnexpectedStatus):
				// TLS and HTTP worked; the root path just isn't served.
				fmt.Fprintf(out, "Reachable:       yes (%v)\n", err)
			default:
				fmt.Fprintln(out, "Reachable:       no")
				return &ExitError{Code: ExitNetworkError, Err: err}
			}
			return nil
		},
	}
}
