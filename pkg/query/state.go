// Package query implements a debounced, cancellable query controller over a
// paginated fetch client. One controller owns one logical search stream and
// guarantees that at most one in-flight request is authoritative at a time:
// superseded requests are cancelled and their late-arriving results discarded.
package query

import (
	"encoding/json"
)

// State represents the lifecycle of the current query.
type State string

const (
	// StateIdle means no query is active. Entered initially and whenever a
	// query falls below the minimum length.
	StateIdle State = "idle"

	// StatePending means a fetch for the current query is in flight.
	StatePending State = "pending"

	// StateSettled means the current query completed and its results are
	// authoritative.
	StateSettled State = "settled"

	// StateFailed means the current query's fetch failed with a transport
	// error. The result set is cleared; the error message is retained.
	StateFailed State = "failed"

	// StateCancelled means the controller was closed. No further
	// transitions occur.
	StateCancelled State = "cancelled"
)

// InFlight returns true while a fetch for the current query is pending.
func (s State) InFlight() bool {
	return s == StatePending
}

// Terminal returns true once the controller can accept no further queries.
func (s State) Terminal() bool {
	return s == StateCancelled
}

// Snapshot is a read-only view of the controller state for rendering.
// Items are never mutated after publication; consumers may iterate freely.
type Snapshot struct {
	// State is the lifecycle state of the current query.
	State State

	// Query is the most recently accepted query value.
	Query string

	// Loading is true while a fetch is in flight.
	Loading bool

	// Err holds the failure message when State is StateFailed, empty
	// otherwise. Cancellation never populates Err.
	Err string

	// Items is the current result set. Replaced wholesale per query.
	Items []json.RawMessage

	// TotalCount is the total matching item count reported by the
	// endpoint. Zero when unknown.
	TotalCount int
}

// HasResults returns true if the snapshot carries a non-empty result set.
func (s Snapshot) HasResults() bool {
	return len(s.Items) > 0
}
