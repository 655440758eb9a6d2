package models

import "fmt"

// Status is the closed job status set. The legacy system stored free-form
// strings; here every mutation goes through Transition.
type Status string

const (
	StatusPending          Status = "pending"
	StatusBooked           Status = "booked"
	StatusAwaitingSupplier Status = "awaiting_supplier"
	StatusAssigned         Status = "assigned"
	StatusDispatched       Status = "dispatched"
	StatusInProgress       Status = "in_progress"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	// StatusClosed appears on historical records only; treated as terminal.
	StatusClosed Status = "closed"
)

// MarshalBinary stores Status as its plain string form. Required so
// go-redis can write whole job structs into hashes; hash reads decode
// string fields by kind, so no unmarshal counterpart is needed.
func (s Status) MarshalBinary() ([]byte, error) {
	return []byte(s), nil
}

// ErrInvalidTransition is returned when a status move is not in the table.
type ErrInvalidTransition struct {
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// allowedTransitions is the directed graph of permitted status moves.
// cancelled is reachable from every non-terminal state.
var allowedTransitions = map[Status][]Status{
	StatusPending:          {StatusBooked, StatusAwaitingSupplier, StatusCancelled},
	StatusBooked:           {StatusAwaitingSupplier, StatusAssigned, StatusDispatched, StatusCancelled},
	StatusAwaitingSupplier: {StatusAssigned, StatusDispatched, StatusCancelled},
	StatusAssigned:         {StatusDispatched, StatusCancelled},
	StatusDispatched:       {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress:       {StatusCompleted, StatusCancelled},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusClosed:           {},
}

// ClosedStatuses is the set the supplier portal treats as closed jobs.
var ClosedStatuses = map[Status]bool{
	StatusClosed:    true,
	StatusCancelled: true,
	StatusCompleted: true,
}

// IsValidStatus reports whether s is a known status value.
func IsValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is allowed. Same-state moves are
// allowed so idempotent re-confirmations do not error.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the job. Moving to
// dispatched requires a supplier on the record.
func Transition(job *JobRecord, to Status) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if !IsValidStatus(to) {
		return fmt.Errorf("unknown status: %s", to)
	}
	if !CanTransition(job.Status, to) {
		return &ErrInvalidTransition{From: job.Status, To: to}
	}
	if to == StatusDispatched && job.SupplierName == "" {
		return fmt.Errorf("cannot dispatch job %s without a supplier", job.BookingID)
	}
	job.Status = to
	return nil
}
