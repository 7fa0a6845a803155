package catalog

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition marks status changes that violate the state machine.
var ErrIllegalTransition = errors.New("illegal status transition")

// legalTransitions maps each status to the statuses it may advance to.
// Status only moves forward through the pipeline sequence, to failed from any
// non-terminal status, or through the single failed -> cataloged retry reset.
var legalTransitions = map[Status][]Status{
	StatusCataloged:   {StatusDownloading, StatusFailed},
	StatusDownloading: {StatusArchiving, StatusFailed},
	StatusArchiving:   {StatusCompressing, StatusFailed},
	StatusCompressing: {StatusVerifying, StatusFailed},
	StatusVerifying:   {StatusUploading, StatusFailed},
	StatusUploading:   {StatusCompleted, StatusFailed},
	StatusFailed:      {StatusCataloged},
	StatusCompleted:   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// legalPredecessors returns every status that may legally advance to the
// target. The store uses this set as the WHERE guard so an advance is a
// single compare-and-swap against the current row.
func legalPredecessors(to Status) []Status {
	var from []Status
	for _, status := range allStatuses {
		if CanTransition(status, to) {
			from = append(from, status)
		}
	}
	return from
}

// TransitionError reports an advance that the state machine rejected.
type TransitionError struct {
	ID   int64
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("item %d: %v to %s", e.ID, ErrIllegalTransition, e.To)
	}
	return fmt.Sprintf("item %d: %v: %s to %s", e.ID, ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
