package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// ComponentContext, DBContext, UnitContext and ProviderContext each add
// one more field onto an existing logger, so a caller that already
// holds a DB- or unit-scoped logger can narrow it further (e.g. a
// provider-record warning logged from inside a unit import keeps the
// unit field instead of starting over from the package Logger).
func ComponentContext(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

func DBContext(base zerolog.Logger, path string) zerolog.Logger {
	return base.With().Str("db", path).Logger()
}

func UnitContext(base zerolog.Logger, unitName string) zerolog.Logger {
	return base.With().Str("unit", unitName).Logger()
}

func ProviderContext(base zerolog.Logger, providerName string) zerolog.Logger {
	return base.With().Str("provider", providerName).Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return ComponentContext(Logger, component)
}

// WithDB creates a child logger tagged with the database root path.
func WithDB(path string) zerolog.Logger {
	return DBContext(Logger, path)
}

// WithUnit creates a child logger tagged with a unit name.
func WithUnit(unitName string) zerolog.Logger {
	return UnitContext(Logger, unitName)
}

// WithProvider creates a child logger tagged with a provider (record) name.
func WithProvider(providerName string) zerolog.Logger {
	return ProviderContext(Logger, providerName)
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
