package inventory

import "fmt"

type Op string

const (
	OpAdd       Op = "add"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
)

// Outcome tells how far a mutation got.
type Outcome int

const (
	// OutcomePending means the local mutation is applied and the remote write has not
	// completed yet.
	OutcomePending Outcome = iota
	// OutcomeApplied means both the local and the remote write succeeded.
	OutcomeApplied
	// OutcomeRemoteFailed means the local mutation stays applied but the remote write failed.
	OutcomeRemoteFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeApplied:
		return "applied"
	case OutcomeRemoteFailed:
		return "remote_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes one mutation. Before and After are the affected entry's state around the
// local mutation; nil means the entry did not exist.
type Result struct {
	Op         Op
	Collection string
	Key        Key
	Before     *Item
	After      *Item
	Outcome    Outcome
	Err        error

	index int
}

// Failed reports whether the remote write failed.
func (r Result) Failed() bool { return r.Outcome == OutcomeRemoteFailed }

// Changed reports whether the local collection was modified.
func (r Result) Changed() bool {
	switch {
	case r.Before == nil && r.After == nil:
		return false
	case r.Before == nil || r.After == nil:
		return true
	default:
		return *r.Before != *r.After
	}
}

func itemPtr(i Item) *Item { return &i }
