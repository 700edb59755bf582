package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a component-tagged logger writing JSON lines to stdout.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()
}
