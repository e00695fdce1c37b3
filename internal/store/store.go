// Package store defines the persistence contract of the portal core.
//
// Drivers (gormstore, mongostore, memstore) translate engine errors into the
// sentinel errors below. Every operation whose correctness depends on the
// current state of a record (issuing or consuming an OTP, consuming a reset
// token, moving an appointment or a report, linking guest bookings) is a single
// conditional write, so the store's per-record atomicity is the only
// serialisation the core relies on.
package store

import (
	"context"
	"errors"
	"time"

	"trueheal-portal/internal/models"
)

var (
	// ErrNotFound is returned when no record matches, including when a
	// conditional write matched nothing.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a compare-and-set lost a race.
	ErrConflict = errors.New("conflict: concurrent modification detected")

	// ErrDuplicate is returned on a unique key violation.
	ErrDuplicate = errors.New("duplicate: entity already exists")
)

// PendingRegistration reissues the verification code of an unverified
// account. The account's name, phone and password are never touched by a
// repeat registration.
type PendingRegistration struct {
	Email     string
	OTP       string
	OTPExpiry time.Time
}

// ProfileUpdate is applied by UpdateProfile. Nil fields are left as stored.
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	Specialty  *string
	Department *string
	Bio        *string
	Timing     *string
}

// Fields returns the set fields keyed by column name. The gorm columns and
// the bson keys agree for every profile field.
func (p ProfileUpdate) Fields() map[string]any {
	out := map[string]any{}
	for col, v := range map[string]*string{
		"name":       p.Name,
		"phone":      p.Phone,
		"specialty":  p.Specialty,
		"department": p.Department,
		"bio":        p.Bio,
		"timing":     p.Timing,
	} {
		if v != nil {
			out[col] = *v
		}
	}
	return out
}

// UserFilter narrows ListUsers. Zero fields are ignored.
type UserFilter struct {
	Role       models.Role
	Status     models.AccountStatus
	Department string
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)

	// FindDoctor returns the oldest doctor for which
	// models.User.MatchesDoctor(name, department) holds.
	FindDoctor(ctx context.Context, name, department string) (*models.User, error)

	// RefreshPendingRegistration overwrites only the otp pair of the
	// unverified account with p.Email. ErrNotFound when the account does not
	// exist or is already verified.
	RefreshPendingRegistration(ctx context.Context, p PendingRegistration) (*models.User, error)

	// ConsumeOTP marks the account verified and clears the otp pair when
	// the code matches and has not expired at now. ErrNotFound otherwise.
	ConsumeOTP(ctx context.Context, email, code string, now time.Time) (*models.User, error)

	// SetResetToken stores a reset token pair on the account with email.
	SetResetToken(ctx context.Context, email, token string, expiry time.Time) (*models.User, error)

	// ConsumeResetToken replaces the password hash and clears the reset
	// pair when token exists and has not expired at now. ErrNotFound
	// otherwise.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error)

	SetUserStatus(ctx context.Context, id string, status models.AccountStatus) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AppointmentFilter narrows ListAppointments. Zero fields are ignored.
type AppointmentFilter struct {
	OwnerID  string
	DoctorID string
	Status   models.AppointmentStatus
}

// AppointmentUpdate is applied by TransitionAppointment. Nil Date/Time
// leave the schedule untouched.
type AppointmentUpdate struct {
	Status models.AppointmentStatus
	Date   *string
	Time   *string
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]*models.Appointment, error)

	// TransitionAppointment applies upd only while the stored status still
	// equals from. ErrNotFound when id is unknown, ErrConflict when the
	// status moved underneath the caller.
	TransitionAppointment(ctx context.Context, id string, from models.AppointmentStatus, upd AppointmentUpdate) (*models.Appointment, error)

	// LinkGuestAppointments sets OwnerID = userID on every appointment with
	// ContactEmail == email and no owner, returning how many changed.
	LinkGuestAppointments(ctx context.Context, userID, email string) (int64, error)
}

// ReportFilter narrows ListReports. Zero fields are ignored.
type ReportFilter struct {
	PatientID string
	DoctorID  string
	Status    models.ReportStatus
}

// ReportStore persists medical reports.
type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]*models.Report, error)

	// TransitionReport sets the status to "to" only while it still equals
	// from. ErrNotFound when id is unknown, ErrConflict otherwise.
	TransitionReport(ctx context.Context, id string, from, to models.ReportStatus) (*models.Report, error)
}

// MessageStore persists contact form submissions.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.ContactMessage) error
	// ListMessages returns messages newest first.
	ListMessages(ctx context.Context) ([]*models.ContactMessage, error)
}

// DepartmentStore persists departments. Names are unique.
type DepartmentStore interface {
	CreateDepartment(ctx context.Context, d *models.Department) error
	ListDepartments(ctx context.Context) ([]*models.Department, error)
}

// Store bundles every repository behind one handle.
type Store interface {
	UserStore
	AppointmentStore
	ReportStore
	MessageStore
	DepartmentStore
	Close() error
}
