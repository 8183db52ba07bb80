package driver

import (
	"fmt"

	"imgsim/internal/pipeline"
	"imgsim/internal/services"
)

// State is the position of a collection in the pipeline.
type State string

const (
	StateDiscovered State = "discovered"
	StateExtracted  State = "extracted"
	StateIndexed    State = "indexed"
	StateRetrieved  State = "retrieved"
	StateMatched    State = "matched"
	StateScored     State = "scored"
	StateRendered   State = "rendered"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

var stateOrder = map[State]int{
	StateDiscovered: 0,
	StateExtracted:  1,
	StateIndexed:    2,
	StateRetrieved:  3,
	StateMatched:    4,
	StateScored:     5,
	StateRendered:   6,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateRendered || s == StateSkipped || s == StateFailed
}

// Tracker enforces forward-only transitions for one collection.
type Tracker struct {
	state  State
	reason string
}

// NewTracker starts a collection in StateDiscovered.
func NewTracker() *Tracker {
	return &Tracker{state: StateDiscovered}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Reason explains a Skipped or Failed state.
func (t *Tracker) Reason() string { return t.reason }

// Advance moves to a later pipeline state. Skipping intermediate states is
// allowed because a run may start at any stage; moving backwards is not.
func (t *Tracker) Advance(next State) error {
	if t.state.Terminal() {
		return fmt.Errorf("collection already %s", t.state)
	}
	to, ok := stateOrder[next]
	if !ok {
		return fmt.Errorf("cannot advance to %s", next)
	}
	if to <= stateOrder[t.state] {
		return fmt.Errorf("invalid transition %s -> %s", t.state, next)
	}
	t.state = next
	return nil
}

// Stop moves to Skipped or Failed from any non-terminal state.
func (t *Tracker) Stop(kind services.Outcome, reason string) {
	if t.state.Terminal() {
		return
	}
	t.state = StateFailed
	if kind == services.OutcomeSkipped {
		t.state = StateSkipped
	}
	t.reason = reason
}

// statesAfter lists the states a completed stage moves a collection through.
func statesAfter(stage pipeline.Stage) []State {
	switch stage {
	case pipeline.StageExtract:
		return []State{StateExtracted}
	case pipeline.StageIndex:
		return []State{StateIndexed}
	case pipeline.StageRetrieve:
		return []State{StateRetrieved}
	case pipeline.StageMatch:
		return []State{StateMatched, StateScored, StateRendered}
	default:
		return nil
	}
}
