package log

import (
	"log/slog"
	"os"
)

// NewWithLevel constructs the process-wide JSON logger at the given level.
// Every record carries the service name, deployment environment, and
// version so aggregated logs can be sliced per deployment
func NewWithLevel(service, env, version string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
		slog.String("version", version))
}
