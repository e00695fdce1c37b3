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

// AuthConfig carries the lifetimes and secrets used by AuthService.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
	ResetTTL  time.Duration
	ClientURL string
}

// AuthService runs registration, OTP verification, login and password
// reset.
type AuthService struct {
	users   store.UserStore
	linker  *Linker
	mailer  mailer.Mailer
	cfg     AuthConfig
	log     *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	sendTimeout time.Duration
}

// NewAuthService creates an AuthService.
func NewAuthService(users store.UserStore, linker *Linker, m mailer.Mailer, cfg AuthConfig, log *logging.Logger, met *metrics.Metrics) *AuthService {
	return &AuthService{
		users:   users,
		linker:  linker,
		mailer:  m,
		cfg:     cfg,
		log:     log.Named("auth"),
		metrics: met,
		now:     time.Now,

		sendTimeout: 30 * time.Second,
	}
}

// RegisterInput is a self-service patient registration.
type RegisterInput struct {
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"omitempty,max=50"`
	Password string `validate:"required,min=8"`
}

// Register creates an unverified patient account and emails it a one-time
// code. Registering again before verification issues a fresh code and
// invalidates the previous one; the stored name, phone and password stay as
// first registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.Validate(in); err != nil {
		return ValidationError(utils.FormatValidationError(err))
	}

	hash, err := models.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, err := generateOTP()
	if err != nil {
		return err
	}
	expiry := s.now().Add(s.cfg.OTPTTL)

	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		Phone:     in.Phone,
		Role:      models.RolePatient,
		Status:    models.AccountActive,
		OTP:       &code,
		OTPExpiry: &expiry,
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		_, err = s.users.RefreshPendingRegistration(ctx, store.PendingRegistration{
			Email:     in.Email,
			OTP:       code,
			OTPExpiry: expiry,
		})
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ObserveRegistration("duplicate")
			return ErrDuplicateAccount
		}
	}
	if err != nil {
		s.metrics.ObserveRegistration("error")
		return fmt.Errorf("register %s: %w", in.Email, err)
	}

	s.metrics.ObserveRegistration("otp_sent")
	s.deliver(ctx, "otp", mailer.OTPMessage(in.Email, code, s.cfg.OTPTTL))
	return nil
}

// VerifyOTP marks the account verified when code matches the outstanding
// code and has not expired, then adopts any guest bookings made with the
// same address.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	email = models.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ValidationError("Email and OTP are required")
	}

	user, err := s.users.ConsumeOTP(ctx, email, code, s.now())
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.ObserveOTP("invalid")
		return ErrInvalidOrExpiredOTP
	}
	if err != nil {
		s.metrics.ObserveOTP("error")
		return fmt.Errorf("verify otp for %s: %w", email, err)
	}
	s.metrics.ObserveOTP("verified")

	if _, err := s.linker.Link(ctx, user.ID, user.Email); err != nil {
		s.log.WithError(err).Error("linking after verification failed", "user_id", user.ID)
	}
	return nil
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

// Login checks credentials and mints a session token. The checks run in a
// fixed order: existence, account status, verification, password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ValidationError("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.ObserveLogin("not_found")
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}

	switch {
	case !user.IsActive():
		s.metrics.ObserveLogin("deactivated")
		return nil, ErrDeactivated
	case !user.Verified:
		s.metrics.ObserveLogin("not_verified")
		return nil, ErrNotVerified
	case !user.CheckPassword(password):
		s.metrics.ObserveLogin("bad_credentials")
		return nil, ErrBadCredentials
	}

	if _, err := s.linker.Link(ctx, user.ID, user.Email); err != nil {
		s.log.WithError(err).Warn("linking on login failed", "user_id", user.ID)
	}

	token, err := utils.GenerateToken(user, s.cfg.JWTSecret, s.cfg.TokenTTL, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLogin("success")
	return &LoginResult{Token: token, User: user.Profile()}, nil
}

// ForgotPassword stores a fresh reset token on the account and emails the
// reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return ValidationError("Email is required")
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	_, err = s.users.SetResetToken(ctx, email, token, s.now().Add(s.cfg.ResetTTL))
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.ObservePasswordReset("request", "not_found")
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("store reset token for %s: %w", email, err)
	}
	s.metrics.ObservePasswordReset("request", "sent")

	link := strings.TrimRight(s.cfg.ClientURL, "/") + "/reset-password/" + token
	s.deliver(ctx, "reset", mailer.ResetMessage(email, link, s.cfg.ResetTTL))
	return nil
}

// ResetPasswordInput is the body of a reset call.
type ResetPasswordInput struct {
	Token       string `validate:"required"`
	NewPassword string `validate:"required,min=8"`
}

// ResetPassword replaces the password of the account holding token. A token
// works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	in := ResetPasswordInput{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := utils.Validate(in); err != nil {
		return ValidationError(utils.FormatValidationError(err))
	}

	hash, err := models.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.ConsumeResetToken(ctx, in.Token, hash, s.now())
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.ObservePasswordReset("reset", "invalid")
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.metrics.ObservePasswordReset("reset", "success")
	return nil
}

func (s *AuthService) deliver(ctx context.Context, kind string, msg mailer.Message) {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.ObserveEmailFailure(kind)
		s.log.WithError(err).Error("email dispatch failed", "kind", kind, "to", msg.To)
	}
}
