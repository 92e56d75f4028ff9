package engine

import "time"

// EventType represents different lifecycle phases in query execution
type EventType string

const (
	EventParseStart EventType = "parse_start"
	EventParseEnd   EventType = "parse_end"
	EventExecStart  EventType = "exec_start"
	EventExecEnd    EventType = "exec_end"
	EventExecError  EventType = "exec_error"
)

// Event represents a lifecycle event in query execution
type Event struct {
	Type      EventType // Type of event
	TxID      string    // Transaction ID for tracing
	Timestamp time.Time // When the event occurred
	Data      any       // Phase-specific data, see below
}

// Event data by type:
//   parse_start: the query text (string)
//   parse_end:   the statement kind (ast.Kind)
//   exec_start:  the target table (string)
//   exec_end:    ExecSummary
//   exec_error:  ExecFailure

// ExecSummary is the data of an exec_end event
type ExecSummary struct {
	Kind         string
	Table        string
	RowsAffected int
	RowsReturned int
	Duration     time.Duration
}

// ExecFailure is the data of an exec_error event. Kind is empty when the
// query failed to parse.
type ExecFailure struct {
	Kind     string
	Err      error
	Duration time.Duration
}

// Observer interface for event subscribers
// Observers receive events at major execution phases
type Observer interface {
	OnEvent(event Event)
}
