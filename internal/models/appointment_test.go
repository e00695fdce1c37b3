package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppointmentStatus(t *testing.T) {
	st, err := ParseAppointmentStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, st)

	st, err = ParseAppointmentStatus(" RESCHEDULED ")
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, st)

	_, err = ParseAppointmentStatus("archived")
	assert.Error(t, err)
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, StatusRescheduled.IsTerminal())
}

func TestAppointmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusPending, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPending, false},
		{StatusConfirmed, StatusRescheduled, true},
		{StatusRescheduled, StatusConfirmed, true},
		{StatusRescheduled, StatusPending, false},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusRescheduled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusRescheduled, false},
		{StatusPending, AppointmentStatus("Archived"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAppointment_Ownership(t *testing.T) {
	owner := "u-1"
	doctor := "d-1"
	a := Appointment{OwnerID: &owner, DoctorID: &doctor}

	assert.True(t, a.IsOwnedBy("u-1"))
	assert.False(t, a.IsOwnedBy("u-2"))
	assert.True(t, a.IsAssignedTo("d-1"))
	assert.False(t, a.IsAssignedTo("u-1"))

	guest := Appointment{}
	assert.False(t, guest.IsOwnedBy(""))
	assert.False(t, guest.IsAssignedTo(""))
}

func TestReportStatus(t *testing.T) {
	st, err := ParseReportStatus(" ready ")
	require.NoError(t, err)
	assert.Equal(t, ReportReady, st)

	_, err = ParseReportStatus("archived")
	assert.Error(t, err)

	assert.True(t, ReportPending.CanTransitionTo(ReportReady))
	assert.True(t, ReportPending.CanTransitionTo(ReportRejected))
	assert.False(t, ReportReady.CanTransitionTo(ReportRejected))
	assert.False(t, ReportRejected.CanTransitionTo(ReportReady))
	assert.False(t, ReportPending.CanTransitionTo(ReportPending))

	assert.True(t, (&Report{Status: ReportReady}).IsAvailable())
	assert.False(t, (&Report{Status: ReportPending}).IsAvailable())
}
