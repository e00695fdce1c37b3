package models

import (
	"fmt"
	"strings"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "Pending"
	StatusConfirmed   AppointmentStatus = "Confirmed"
	StatusCancelled   AppointmentStatus = "Cancelled"
	StatusCompleted   AppointmentStatus = "Completed"
	StatusRescheduled AppointmentStatus = "Rescheduled"
)

// stage orders the non-terminal statuses along the forward path.
var stage = map[AppointmentStatus]int{
	StatusPending:     0,
	StatusRescheduled: 1,
	StatusConfirmed:   2,
	StatusCompleted:   3,
}

// ParseAppointmentStatus accepts any casing of a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	for _, st := range []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRescheduled} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Cancelled and Rescheduled are reachable from any non-terminal status;
// everything else only moves forward.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case StatusCancelled, StatusRescheduled:
		return true
	}
	from, ok := stage[s]
	if !ok {
		return false
	}
	to, ok := stage[next]
	if !ok {
		return false
	}
	return to >= from
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel `bson:",inline"`

	ContactEmail string  `gorm:"size:255;not null;index" bson:"contact_email" json:"contactEmail"`
	OwnerID      *string `gorm:"size:36;index" bson:"owner_id" json:"ownerId"`

	FirstName string `gorm:"size:100" bson:"first_name" json:"firstName"`
	LastName  string `gorm:"size:100" bson:"last_name,omitempty" json:"lastName,omitempty"`
	Phone     string `gorm:"size:50" bson:"phone,omitempty" json:"phone,omitempty"`
	DOB       string `gorm:"size:20" bson:"dob,omitempty" json:"dob,omitempty"`
	Insurance string `gorm:"size:100" bson:"insurance,omitempty" json:"insurance,omitempty"`

	Department string            `gorm:"size:100" bson:"department" json:"department"`
	Doctor     string            `gorm:"size:200" bson:"doctor,omitempty" json:"doctor,omitempty"`
	DoctorID   *string           `gorm:"size:36;index" bson:"doctor_id" json:"doctorId"`
	Date       string            `gorm:"size:20" bson:"date" json:"date"`
	Time       string            `gorm:"size:20" bson:"time" json:"time"`
	Reason     string            `gorm:"size:255" bson:"reason,omitempty" json:"reason,omitempty"`
	Notes      string            `gorm:"type:text" bson:"notes,omitempty" json:"notes,omitempty"`
	Status     AppointmentStatus `gorm:"size:20;default:'Pending';index" bson:"status" json:"status"`
}

// IsOwnedBy reports whether userID owns the appointment.
func (a *Appointment) IsOwnedBy(userID string) bool {
	return a.OwnerID != nil && *a.OwnerID == userID
}

// IsAssignedTo reports whether the resolved doctor is userID.
func (a *Appointment) IsAssignedTo(userID string) bool {
	return a.DoctorID != nil && *a.DoctorID == userID
}
