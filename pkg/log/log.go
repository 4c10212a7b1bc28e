package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. It starts as a console
// logger at info level so faults during flag parsing and config
// loading are visible before Init runs.
var Logger = console(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Config selects the root logger's level and output format.
type Config struct {
	Level  string    // debug, info, warn, error (or any name zerolog.ParseLevel accepts); empty or unknown means info
	JSON   bool      // JSON lines when true, human-readable console otherwise
	Output io.Writer // defaults to os.Stdout
}

// Init replaces the root logger. Child loggers created before Init
// keep the old configuration, so call it before starting anything
// that logs.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	base := zerolog.New(out)
	if !cfg.JSON {
		base = console(out)
	}
	Logger = base.Level(level).With().Timestamp().Logger()
}

func console(out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
}

// Child-logger constructors below encode the field conventions the
// rest of the tree relies on when filtering logs: every line names its
// emitting component, subarray-scoped lines carry product_id, and
// node-scoped lines carry host.

// WithComponent returns a child logger naming the emitting component
// ("coordinator", "metadata", "reconciler", ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithProductID returns a child logger scoped to one subarray.
func WithProductID(productID string) zerolog.Logger {
	return Logger.With().Str("product_id", productID).Logger()
}

// WithHost returns a child logger scoped to one processing node.
func WithHost(host string) zerolog.Logger {
	return Logger.With().Str("host", host).Logger()
}
