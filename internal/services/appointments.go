package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/mailer"
	"trueheal-portal/internal/metrics"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
	"trueheal-portal/internal/utils"
)

// AppointmentConfig holds booking defaults.
type AppointmentConfig struct {
	DefaultStatus models.AppointmentStatus
	Hospital      string
}

// AppointmentService owns the appointment lifecycle.
type AppointmentService struct {
	appointments store.AppointmentStore
	users        store.UserStore
	mailer       mailer.Mailer
	cfg          AppointmentConfig
	log          *logging.Logger
	metrics      *metrics.Metrics
	sendTimeout  time.Duration
}

// NewAppointmentService creates an AppointmentService.
func NewAppointmentService(appointments store.AppointmentStore, users store.UserStore, m mailer.Mailer, cfg AppointmentConfig, log *logging.Logger, met *metrics.Metrics) *AppointmentService {
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = models.StatusPending
	}
	return &AppointmentService{
		appointments: appointments,
		users:        users,
		mailer:       m,
		cfg:          cfg,
		log:          log.Named("appointments"),
		metrics:      met,
		sendTimeout:  30 * time.Second,
	}
}

// BookingInput is a booking request from the public form.
type BookingInput struct {
	Email      string `validate:"required,email"`
	FirstName  string `validate:"required,max=100"`
	LastName   string `validate:"max=100"`
	Phone      string `validate:"max=50"`
	DOB        string `validate:"max=20"`
	Insurance  string `validate:"max=100"`
	Department string `validate:"required,max=100"`
	Doctor     string `validate:"max=200"`
	Date       string `validate:"required,max=20"`
	Time       string `validate:"required,max=20"`
	Reason     string `validate:"max=255"`
	Notes      string
}

// Book stores a new appointment. caller is nil for a guest booking. The
// requested doctor is resolved on a best effort basis; a miss leaves
// DoctorID empty and the booking goes through.
func (s *AppointmentService) Book(ctx context.Context, in BookingInput, caller *models.Identity) (*models.Appointment, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}

	a := &models.Appointment{
		ContactEmail: in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		DOB:          in.DOB,
		Insurance:    in.Insurance,
		Department:   in.Department,
		Doctor:       strings.TrimSpace(in.Doctor),
		DoctorID:     s.resolveDoctor(ctx, in.Doctor, in.Department),
		Date:         in.Date,
		Time:         in.Time,
		Reason:       in.Reason,
		Notes:        in.Notes,
		Status:       s.cfg.DefaultStatus,
	}
	callerKind := "guest"
	if caller != nil && caller.UserID != "" {
		owner := caller.UserID
		a.OwnerID = &owner
		callerKind = "account"
	}

	if err := s.appointments.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.metrics.ObserveBooking(callerKind)
	s.log.Info("appointment booked", "appointment_id", a.ID, "caller", callerKind, "doctor_resolved", a.DoctorID != nil)

	s.confirm(ctx, a)
	return a, nil
}

func (s *AppointmentService) resolveDoctor(ctx context.Context, requested, department string) *string {
	name := models.DoctorName(requested)
	if name == "" {
		return nil
	}
	doc, err := s.users.FindDoctor(ctx, name, department)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.WithError(err).Warn("doctor lookup failed", "doctor", name, "department", department)
		}
		return nil
	}
	id := doc.ID
	return &id
}

func (s *AppointmentService) confirm(ctx context.Context, a *models.Appointment) {
	msg, err := mailer.BookingConfirmation(a.ContactEmail, mailer.BookingDetails{
		FirstName:  a.FirstName,
		Department: a.Department,
		Doctor:     a.Doctor,
		Date:       a.Date,
		Time:       a.Time,
		Hospital:   s.cfg.Hospital,
	})
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
		err = s.mailer.Send(sendCtx, msg)
	}
	if err != nil {
		s.metrics.ObserveEmailFailure("booking")
		s.log.WithError(err).Error("booking confirmation not sent", "appointment_id", a.ID)
	}
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	a, err := s.appointments.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment %s: %w", id, err)
	}
	return a, nil
}

func (s *AppointmentService) transition(ctx context.Context, a *models.Appointment, upd store.AppointmentUpdate) (*models.Appointment, error) {
	if !a.Status.CanTransitionTo(upd.Status) {
		return nil, ErrInvalidTransition
	}
	out, err := s.appointments.TransitionAppointment(ctx, a.ID, a.Status, upd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrAppointmentNotFound
	case errors.Is(err, store.ErrConflict):
		return nil, ErrInvalidTransition
	case err != nil:
		return nil, fmt.Errorf("update appointment %s: %w", a.ID, err)
	}
	s.metrics.ObserveStatusChange(string(upd.Status))
	s.log.Info("appointment status changed", "appointment_id", a.ID, "from", a.Status, "to", upd.Status)
	return out, nil
}

// ChangeStatus moves an appointment to status. Only an admin or the doctor
// the appointment resolved to may do so.
func (s *AppointmentService) ChangeStatus(ctx context.Context, id, status string, caller models.Identity) (*models.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(models.RoleAdmin) && !(caller.HasRole(models.RoleDoctor) && a.IsAssignedTo(caller.UserID)) {
		return nil, ErrForbidden
	}
	next, err := models.ParseAppointmentStatus(status)
	if err != nil {
		return nil, ValidationError("Invalid status value")
	}
	return s.transition(ctx, a, store.AppointmentUpdate{Status: next})
}

// Reschedule sets a new date and time and moves the appointment to
// Rescheduled. Admins, the assigned doctor and the owner may reschedule.
func (s *AppointmentService) Reschedule(ctx context.Context, id, date, tm string, caller models.Identity) (*models.Appointment, error) {
	date, tm = strings.TrimSpace(date), strings.TrimSpace(tm)
	if date == "" || tm == "" {
		return nil, ValidationError("Date and time are required")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(models.RoleAdmin) && !a.IsAssignedTo(caller.UserID) && !a.IsOwnedBy(caller.UserID) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, a, store.AppointmentUpdate{
		Status: models.StatusRescheduled,
		Date:   &date,
		Time:   &tm,
	})
}

// Cancel cancels an appointment on behalf of its owner.
func (s *AppointmentService) Cancel(ctx context.Context, id string, caller models.Identity) (*models.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsOwnedBy(caller.UserID) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, a, store.AppointmentUpdate{Status: models.StatusCancelled})
}

// Get returns one appointment to its owner, its doctor or an admin.
func (s *AppointmentService) Get(ctx context.Context, id string, caller models.Identity) (*models.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(models.RoleAdmin) && !a.IsAssignedTo(caller.UserID) && !a.IsOwnedBy(caller.UserID) {
		return nil, ErrForbidden
	}
	return a, nil
}

// ListForOwner returns the appointments owned by userID.
func (s *AppointmentService) ListForOwner(ctx context.Context, userID string) ([]*models.Appointment, error) {
	return s.list(ctx, store.AppointmentFilter{OwnerID: userID})
}

// ListForDoctor returns the appointments resolved to doctorID.
func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID string) ([]*models.Appointment, error) {
	return s.list(ctx, store.AppointmentFilter{DoctorID: doctorID})
}

// ListAll returns every appointment, optionally narrowed by status and
// doctor.
func (s *AppointmentService) ListAll(ctx context.Context, status, doctorID string) ([]*models.Appointment, error) {
	filter := store.AppointmentFilter{DoctorID: doctorID}
	if status != "" {
		st, err := models.ParseAppointmentStatus(status)
		if err != nil {
			return nil, ValidationError("Invalid status value")
		}
		filter.Status = st
	}
	return s.list(ctx, filter)
}

func (s *AppointmentService) list(ctx context.Context, filter store.AppointmentFilter) ([]*models.Appointment, error) {
	out, err := s.appointments.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}
