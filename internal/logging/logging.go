package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global console logger. Only warnings and errors are
// shown unless verbose is set.
func Init(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
