package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusBooked, true},
		{StatusPending, StatusAwaitingSupplier, true},
		{StatusBooked, StatusDispatched, true},
		{StatusAwaitingSupplier, StatusDispatched, true},
		{StatusDispatched, StatusCompleted, true},
		{StatusDispatched, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusBooked, false},
		{StatusBooked, StatusBooked, true}, // idempotent re-confirm
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancellableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusBooked, StatusAwaitingSupplier, StatusAssigned, StatusDispatched, StatusInProgress} {
		assert.True(t, CanTransition(from, StatusCancelled), "cancel from %s", from)
	}
	for _, from := range []Status{StatusCompleted, StatusCancelled, StatusClosed} {
		assert.False(t, CanTransition(from, StatusCancelled) && from != StatusCancelled, "cancel from terminal %s", from)
	}
}

func TestTransitionRequiresSupplierForDispatch(t *testing.T) {
	job := &JobRecord{BookingID: "HT-1", Status: StatusBooked}

	err := Transition(job, StatusDispatched)
	require.Error(t, err)
	assert.Equal(t, StatusBooked, job.Status)

	job.SupplierName = "Joes Towing"
	require.NoError(t, Transition(job, StatusDispatched))
	assert.Equal(t, StatusDispatched, job.Status)
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	job := &JobRecord{BookingID: "HT-2", Status: StatusCompleted}

	err := Transition(job, StatusPending)
	require.Error(t, err)

	var invalid *ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCompleted, invalid.From)
	assert.Equal(t, StatusPending, invalid.To)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	job := &JobRecord{BookingID: "HT-3", Status: StatusPending}
	require.Error(t, Transition(job, Status("towed_to_moon")))
}

func TestHasContact(t *testing.T) {
	assert.False(t, (&JobRecord{}).HasContact())
	assert.True(t, (&JobRecord{CustomerPhone: "021234567"}).HasContact())
	assert.True(t, (&JobRecord{CustomerEmail: "a@b.com"}).HasContact())
}

func TestSupplierSMSNumber(t *testing.T) {
	s := &SupplierRecord{Phone: "093001000", Mobile: "0211111111"}
	assert.Equal(t, "093001000", s.SMSNumber())

	s.PhoneLandline = true
	assert.Equal(t, "0211111111", s.SMSNumber())
}
