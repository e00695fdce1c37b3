package services

import (
	"errors"
	"net/http"
)

// Kind classifies service failures for the HTTP edge.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAuth
	KindForbidden
	KindConflict
)

// Error is a caller-facing failure. Status is the HTTP code the handlers
// answer with; Message is safe to show to the client.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Status: status, Message: msg}
}

// ValidationError reports malformed input.
func ValidationError(msg string) *Error {
	return newError(KindValidation, http.StatusBadRequest, msg)
}

var (
	ErrDuplicateAccount = newError(KindValidation, http.StatusBadRequest, "User already exists")

	ErrAccountNotFound     = newError(KindNotFound, http.StatusBadRequest, "User not found")
	ErrUserNotFound        = newError(KindNotFound, http.StatusNotFound, "User not found")
	ErrAppointmentNotFound = newError(KindNotFound, http.StatusNotFound, "Appointment not found")
	ErrReportNotFound      = newError(KindNotFound, http.StatusNotFound, "Report not found")
	ErrPatientNotFound     = newError(KindValidation, http.StatusBadRequest, "Patient not found")

	ErrBadCredentials        = newError(KindAuth, http.StatusUnauthorized, "Invalid credentials")
	ErrNotVerified           = newError(KindAuth, http.StatusForbidden, "Please verify your email first")
	ErrDeactivated           = newError(KindAuth, http.StatusForbidden, "Account is deactivated. Please contact the administrator.")
	ErrInvalidOrExpiredOTP   = newError(KindAuth, http.StatusBadRequest, "Invalid or expired OTP")
	ErrInvalidOrExpiredToken = newError(KindAuth, http.StatusBadRequest, "Invalid or expired reset token")

	ErrMissingToken = newError(KindAuth, http.StatusUnauthorized, "Authorization header required")
	ErrInvalidToken = newError(KindAuth, http.StatusUnauthorized, "Invalid token")
	ErrExpiredToken = newError(KindAuth, http.StatusUnauthorized, "Token has expired")

	ErrForbidden = newError(KindForbidden, http.StatusForbidden, "You do not have permission to access this resource.")

	ErrInvalidTransition   = newError(KindConflict, http.StatusConflict, "Appointment can no longer be changed to that status")
	ErrReportReviewed      = newError(KindConflict, http.StatusConflict, "Report has already been reviewed")
	ErrReportNotReady      = newError(KindConflict, http.StatusConflict, "Report is not available yet")
	ErrDuplicateDepartment = newError(KindConflict, http.StatusConflict, "Department already exists")
)

// AsError extracts the service error from err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
