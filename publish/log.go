package publish

import (
	"context"
	"log/slog"
)

// LogProvider logs messages instead of delivering them. Used for local development.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider creates a new log-only provider.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{
		logger: logger,
	}
}

// Send logs the message instead of sending it.
func (l *LogProvider) Send(_ context.Context, target, subject, body string) error {
	l.logger.Info("MOCK NOTIFICATION",
		"target", target,
		"subject", subject,
		"body", body)
	return nil
}
