package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production output is JSON so log shippers
// can parse it; everything else gets the colored console writer.
func New(environment, component string) zerolog.Logger {
	var logger zerolog.Logger
	if environment == "production" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	logger = logger.With().
		Timestamp().
		Str("env", environment).
		Str("component", component).
		Logger()

	if environment != "production" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
