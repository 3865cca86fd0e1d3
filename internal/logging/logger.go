package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds the JSON slog logger every service in the ledger shares. An
// unparseable level string falls back to info rather than failing startup.
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// Discard returns a logger that drops everything. Tests hand it to services
// that log duplicate-event and notification noise.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
