package services

import (
	"context"
	"fmt"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/metrics"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
)

// Linker attaches guest bookings to the account that owns their contact
// address. It runs after OTP verification and again after every login.
type Linker struct {
	appointments store.AppointmentStore
	log          *logging.Logger
	metrics      *metrics.Metrics
}

// NewLinker creates a Linker.
func NewLinker(appointments store.AppointmentStore, log *logging.Logger, m *metrics.Metrics) *Linker {
	return &Linker{appointments: appointments, log: log.Named("linker"), metrics: m}
}

// Link sets the owner of every unowned appointment booked with email to
// userID and reports how many changed. Appointments that already have an
// owner are never touched, so repeated or concurrent calls are harmless.
func (l *Linker) Link(ctx context.Context, userID, email string) (int64, error) {
	email = models.NormalizeEmail(email)
	if userID == "" || email == "" {
		return 0, nil
	}

	n, err := l.appointments.LinkGuestAppointments(ctx, userID, email)
	if err != nil {
		return 0, fmt.Errorf("link guest appointments for %s: %w", email, err)
	}
	if n > 0 {
		l.log.Info("linked guest appointments", "user_id", userID, "count", n)
		l.metrics.ObserveLinked(n)
	}
	return n, nil
}
