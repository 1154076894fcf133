package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vidgrab/internal/catalog"
	"vidgrab/internal/config"
	"vidgrab/internal/httpclient"
	"vidgrab/internal/logging"
	"vidgrab/internal/query"
	"vidgrab/internal/selection"
	"vidgrab/internal/transfer"
	"vidgrab/internal/util"
)

const (
	ExitOK               = 0
	ExitCLIError         = 1
	ExitUnavailable      = 2
	ExitNetworkError     = 3
	ExitTransferError    = 4
	ExitInvalidSelection = 5
	ExitMalformed        = 6
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode classifies a pipeline error. Transfer failures are checked before
// network errors because a stalled body read is both.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, util.ErrInvalidVideoID):
		return ExitCLIError
	case errors.Is(err, catalog.ErrVideoUnavailable):
		return ExitUnavailable
	case errors.Is(err, transfer.ErrTransferFailed):
		return ExitTransferError
	case errors.Is(err, httpclient.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, selection.ErrInvalidSelection):
		return ExitInvalidSelection
	case errors.Is(err, query.ErrMalformedInput),
		errors.Is(err, catalog.ErrNoStreams),
		errors.Is(err, catalog.ErrMalformedStream),
		errors.Is(err, catalog.ErrUnrecognizedMimeType):
		return ExitMalformed
	default:
		return ExitCLIError
	}
}

// asExit wraps err with its exit code, leaving existing ExitErrors alone.
func asExit(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExitError{Code: exitCode(err), Err: err}
}

// Seams replaced in tests.
var (
	newClient = func(s config.Settings) httpclient.Getter {
		return httpclient.New(s.ClientConfig())
	}
	isTerminal = func(w io.Writer) bool {
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
)

type ctxKey string

const settingsKey ctxKey = "settings"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vidgrab [ID|URL]",
		Short: "Download a video stream in the quality you pick",
		Long: "vidgrab fetches a video's info document, lists the available streams " +
			"and downloads the one you choose into the current directory.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: loadSettings,
		RunE:              runGet,
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newGetCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(cmd.Flags())
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	logging.Init(cmd.ErrOrStderr(), s.Verbose)
	cmd.SetContext(context.WithValue(cmd.Context(), settingsKey, s))
	return nil
}

func settingsFrom(cmd *cobra.Command) config.Settings {
	if v, ok := cmd.Context().Value(settingsKey).(config.Settings); ok {
		return v
	}
	s, _ := config.Load(cmd.Flags())
	return s
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
