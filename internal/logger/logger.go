package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New creates a logger based on the ENV environment variable. Anything other
// than "production"/"prod" gets the human-readable console writer.
func New() zerolog.Logger {
	switch strings.ToLower(os.Getenv("ENV")) {
	case "production", "prod":
		return NewProduction()
	default:
		return NewDevelopment()
	}
}

// NewDevelopment creates a console logger for local runs.
func NewDevelopment() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewProduction creates a JSON logger with UNIX timestamps.
func NewProduction() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// TokenPreview returns a sanitized form of a bearer token safe for logs.
func TokenPreview(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:6] + "…" + token[len(token)-6:]
}
