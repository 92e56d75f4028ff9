package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// MockObserver is a test observer that records events
type MockObserver struct {
	Events []Event
}

func (m *MockObserver) OnEvent(event Event) {
	m.Events = append(m.Events, event)
}

func (m *MockObserver) Types() []EventType {
	types := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}

func TestAddObserver(t *testing.T) {
	eng := New(nil)
	observer := &MockObserver{}

	eng.AddObserver(observer)

	if len(eng.observers) != 1 {
		t.Errorf("Expected 1 observer, got %d", len(eng.observers))
	}
}

func TestRemoveObserver(t *testing.T) {
	eng := New(nil)
	observer := &MockObserver{}

	eng.AddObserver(observer)
	eng.RemoveObserver(observer)

	if len(eng.observers) != 0 {
		t.Errorf("Expected 0 observers, got %d", len(eng.observers))
	}
}

func TestNotifyWithNoObservers(t *testing.T) {
	eng := New(nil)

	// Should not panic
	eng.notify(Event{Type: EventParseStart, TxID: "test-tx"})
}

func TestNotifyWithMultipleObservers(t *testing.T) {
	eng := New(nil)
	observer1 := &MockObserver{}
	observer2 := &MockObserver{}

	eng.AddObserver(observer1)
	eng.AddObserver(observer2)

	testEvent := Event{Type: EventParseStart, TxID: "test-tx", Data: "SELECT * FROM users"}
	eng.notify(testEvent)

	if len(observer1.Events) != 1 {
		t.Errorf("Observer1: Expected 1 event, got %d", len(observer1.Events))
	}
	if len(observer2.Events) != 1 {
		t.Errorf("Observer2: Expected 1 event, got %d", len(observer2.Events))
	}

	if observer1.Events[0].Type != EventParseStart {
		t.Errorf("Observer1: Expected EventParseStart, got %v", observer1.Events[0].Type)
	}
	if observer2.Events[0].Type != EventParseStart {
		t.Errorf("Observer2: Expected EventParseStart, got %v", observer2.Events[0].Type)
	}
}

func TestEventTimestamp(t *testing.T) {
	eng := New(nil)
	observer := &MockObserver{}
	eng.AddObserver(observer)

	eng.notify(Event{Type: EventParseStart, TxID: "test-tx"})

	if observer.Events[0].Timestamp.IsZero() {
		t.Error("Expected timestamp to be set, got zero value")
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	observer := NewLoggingObserver(logger)

	observer.OnEvent(Event{Type: EventExecEnd, TxID: "tx-1", Data: ExecSummary{Kind: "SELECT", Table: "users", RowsReturned: 2}})
	observer.OnEvent(Event{Type: EventExecError, TxID: "tx-2", Data: ExecFailure{Kind: "INSERT", Err: errTest}})

	out := buf.String()
	for _, want := range []string{"query_lifecycle", "tx_id=tx-1", "rows_returned=2", "level=WARN", "query_failed", "tx_id=tx-2", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")
