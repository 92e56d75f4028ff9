package engine

import (
	"context"
	"log/slog"
)

// LoggingObserver is a simple observer that logs all events using structured logging
type LoggingObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingObserver creates a new logging observer. A nil logger uses
// slog.Default(). Lifecycle events are logged at Debug, failures at Warn.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{
		logger: logger,
		level:  slog.LevelDebug,
	}
}

// OnEvent implements the Observer interface
// It logs each event with structured fields for easy filtering and analysis
func (lo *LoggingObserver) OnEvent(event Event) {
	switch data := event.Data.(type) {
	case ExecSummary:
		lo.logger.Log(context.Background(), lo.level, "query_lifecycle",
			"event", event.Type,
			"tx_id", event.TxID,
			"kind", data.Kind,
			"table", data.Table,
			"rows_affected", data.RowsAffected,
			"rows_returned", data.RowsReturned,
			"duration", data.Duration,
		)
	case ExecFailure:
		lo.logger.Warn("query_failed",
			"event", event.Type,
			"tx_id", event.TxID,
			"kind", data.Kind,
			"error", data.Err,
			"duration", data.Duration,
		)
	default:
		lo.logger.Log(context.Background(), lo.level, "query_lifecycle",
			"event", event.Type,
			"tx_id", event.TxID,
			"timestamp", event.Timestamp,
			"data", event.Data,
		)
	}
}
