package integration

import (
	"testing"

	"github.com/leengari/jsondb/internal/engine"
)

// TestQueryLifecycleEvents verifies that all expected events are emitted during query execution
func TestQueryLifecycleEvents(t *testing.T) {
	db, eng := setupTestDB(t)
	defer teardownTestDB(t, db)

	observer := &MockObserver{}
	eng.AddObserver(observer)

	sql := "SELECT * FROM users"
	if _, err := eng.Execute(sql); err != nil {
		t.Fatalf("Query execution failed: %v", err)
	}

	expectedEventTypes := []engine.EventType{
		engine.EventParseStart,
		engine.EventParseEnd,
		engine.EventExecStart,
		engine.EventExecEnd,
	}

	if len(observer.Events) != len(expectedEventTypes) {
		t.Errorf("Expected %d events, got %d", len(expectedEventTypes), len(observer.Events))
		for i, event := range observer.Events {
			t.Logf("Event %d: %s", i, event.Type)
		}
		return
	}

	// Verify event order and types
	for i, expectedType := range expectedEventTypes {
		if observer.Events[i].Type != expectedType {
			t.Errorf("Event %d: Expected %s, got %s", i, expectedType, observer.Events[i].Type)
		}
	}

	// Verify all events have the same TxID
	txID := observer.Events[0].TxID
	for i, event := range observer.Events {
		if event.TxID != txID {
			t.Errorf("Event %d: TxID mismatch. Expected %s, got %s", i, txID, event.TxID)
		}
	}

	// Verify timestamps are in chronological order
	for i := 1; i < len(observer.Events); i++ {
		if observer.Events[i].Timestamp.Before(observer.Events[i-1].Timestamp) {
			t.Errorf("Event %d timestamp is before event %d", i, i-1)
		}
	}
}

// TestEventDataContent verifies that event data contains expected values
func TestEventDataContent(t *testing.T) {
	db, eng := setupTestDB(t)
	defer teardownTestDB(t, db)

	observer := &MockObserver{}
	eng.AddObserver(observer)

	sql := "UPDATE users SET age = 99 WHERE age < 29"
	if _, err := eng.Execute(sql); err != nil {
		t.Fatalf("Query execution failed: %v", err)
	}

	// ParseStart carries the raw query
	if observer.Events[0].Data != sql {
		t.Errorf("EventParseStart data should contain the query. Got: %v", observer.Events[0].Data)
	}

	execEndEvent := observer.Events[len(observer.Events)-1]
	if execEndEvent.Type != engine.EventExecEnd {
		t.Fatalf("Last event should be EventExecEnd")
	}
	summary, ok := execEndEvent.Data.(engine.ExecSummary)
	if !ok {
		t.Fatalf("EventExecEnd data should be an ExecSummary. Got: %T", execEndEvent.Data)
	}
	if summary.Kind != "UPDATE" || summary.Table != "users" {
		t.Errorf("Unexpected summary target: %+v", summary)
	}
	if summary.RowsAffected != 2 {
		t.Errorf("Expected 2 rows affected, got %d", summary.RowsAffected)
	}
}

// TestMultipleQueries verifies that each query gets its own TxID
func TestMultipleQueries(t *testing.T) {
	db, eng := setupTestDB(t)
	defer teardownTestDB(t, db)

	observer := &MockObserver{}
	eng.AddObserver(observer)

	if _, err := eng.Execute("SELECT * FROM users"); err != nil {
		t.Fatalf("First query failed: %v", err)
	}

	firstQueryEventCount := len(observer.Events)
	firstTxID := observer.Events[0].TxID

	if _, err := eng.Execute("SELECT id FROM users"); err != nil {
		t.Fatalf("Second query failed: %v", err)
	}

	if len(observer.Events) != firstQueryEventCount*2 {
		t.Errorf("Expected %d total events, got %d", firstQueryEventCount*2, len(observer.Events))
	}

	secondTxID := observer.Events[firstQueryEventCount].TxID
	if firstTxID == secondTxID {
		t.Error("Different queries should have different TxIDs")
	}
}

// MockObserver for testing
type MockObserver struct {
	Events []engine.Event
}

func (m *MockObserver) OnEvent(event engine.Event) {
	m.Events = append(m.Events, event)
}
