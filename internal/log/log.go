// Package log provides structured, colored logging for the service.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers for the money-handling parts of the system, where
// a stable component field matters most for auditing.
var (
	Ledger zerolog.Logger
	Escrow zerolog.Logger
	Chain  zerolog.Logger
)

func init() {
	Logger = newConsoleLogger(os.Stdout, "info")
	rebindComponents()
}

// Init configures the global logger. When file is non-empty, logs go
// to both the console (colored or JSON depending on jsonOutput) and
// the file, which is always JSON for machine parsing.
func Init(level string, jsonOutput bool, file string) error {
	lvl := parseLevel(level)

	var console io.Writer = os.Stdout
	if !jsonOutput {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	out := console
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	rebindComponents()
	return nil
}

func newConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// rebindComponents rebuilds the component loggers off the current
// global, so Init changes apply to them too.
func rebindComponents() {
	Ledger = WithComponent("ledger")
	Escrow = WithComponent("escrow")
	Chain = WithComponent("chain")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
