package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger creates the service logger from LOG_LEVEL / LOG_FORMAT values and
// installs it as the slog default.
func NewLogger(level, format string) *slog.Logger {
	logger := sharedobs.NewLogger(level, format).With("service", "air-quality-classifier")
	slog.SetDefault(logger)
	return logger
}
