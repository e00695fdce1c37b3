package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
	"trueheal-portal/internal/utils"
)

// UserService covers the administrative side of accounts and the public
// doctor directory.
type UserService struct {
	users store.UserStore
	log   *logging.Logger
}

// NewUserService creates a UserService.
func NewUserService(users store.UserStore, log *logging.Logger) *UserService {
	return &UserService{users: users, log: log.Named("users")}
}

// CreateUserInput is an account created by an administrator.
type CreateUserInput struct {
	Name       string `validate:"required,max=200"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=8"`
	Phone      string `validate:"max=50"`
	Role       string `validate:"required,oneof=admin doctor patient"`
	Specialty  string `validate:"max=100"`
	Department string `validate:"max=100"`
	Bio        string
	Timing     string `validate:"max=100"`
}

// CreateUser adds an account that skips email verification.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}
	role := models.Role(in.Role)
	if role == models.RoleDoctor && in.Department == "" {
		return nil, ValidationError("Department is required for doctors")
	}

	u := &models.User{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Role:       role,
		Status:     models.AccountActive,
		Verified:   true,
		Specialty:  in.Specialty,
		Department: in.Department,
		Bio:        in.Bio,
		Timing:     in.Timing,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("account created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// ListUsers returns accounts matching filter.
func (s *UserService) ListUsers(ctx context.Context, role, status string) ([]*models.User, error) {
	filter := store.UserFilter{
		Role:   models.Role(strings.ToLower(role)),
		Status: models.AccountStatus(strings.ToLower(status)),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, ValidationError("Invalid role")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ValidationError("Invalid status")
	}
	users, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListDoctors returns the active doctors, optionally of one department.
func (s *UserService) ListDoctors(ctx context.Context, department string) ([]*models.User, error) {
	users, err := s.users.ListUsers(ctx, store.UserFilter{
		Role:       models.RoleDoctor,
		Status:     models.AccountActive,
		Department: strings.TrimSpace(department),
	})
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return users, nil
}

// GetUser returns one account.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// Profile returns the account behind a session.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.GetUser(ctx, userID)
}

// SetStatus activates or deactivates an account. Admins cannot deactivate
// themselves.
func (s *UserService) SetStatus(ctx context.Context, id, status string, caller models.Identity) (*models.User, error) {
	st := models.AccountStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, ValidationError("Status must be active or inactive")
	}
	if id == caller.UserID && st == models.AccountInactive {
		return nil, ValidationError("You cannot deactivate your own account")
	}
	u, err := s.users.SetUserStatus(ctx, id, st)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set status of %s: %w", id, err)
	}
	s.log.Info("account status changed", "user_id", id, "status", st, "by", caller.UserID)
	return u, nil
}

// ToggleStatus flips an account between active and inactive.
func (s *UserService) ToggleStatus(ctx context.Context, id string, caller models.Identity) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.AccountInactive
	if !u.IsActive() {
		next = models.AccountActive
	}
	return s.SetStatus(ctx, id, string(next), caller)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, id string, caller models.Identity) error {
	if id == caller.UserID {
		return ValidationError("You cannot delete your own account")
	}
	err := s.users.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	s.log.Info("account deleted", "user_id", id, "by", caller.UserID)
	return nil
}

// ProfileInput is a self-service profile edit. Nil fields are left as they
// are. Only doctors and admins may set the directory fields.
type ProfileInput struct {
	Name       *string `validate:"omitempty,max=200"`
	Phone      *string `validate:"omitempty,max=50"`
	Specialty  *string `validate:"omitempty,max=100"`
	Department *string `validate:"omitempty,max=100"`
	Bio        *string `validate:"omitempty,max=5000"`
	Timing     *string `validate:"omitempty,max=100"`
}

// UpdateProfile applies in to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, caller models.Identity, in ProfileInput) (*models.User, error) {
	for _, p := range []*string{in.Name, in.Phone, in.Specialty, in.Department, in.Bio, in.Timing} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}
	if in.Name != nil && *in.Name == "" {
		return nil, ValidationError("Name cannot be empty")
	}
	directory := in.Specialty != nil || in.Department != nil || in.Bio != nil || in.Timing != nil
	if directory && !caller.HasRole(models.RoleDoctor, models.RoleAdmin) {
		return nil, ErrForbidden
	}
	if caller.Role == models.RoleDoctor && in.Department != nil && *in.Department == "" {
		return nil, ValidationError("Department is required for doctors")
	}

	u, err := s.users.UpdateProfile(ctx, caller.UserID, store.ProfileUpdate{
		Name:       in.Name,
		Phone:      in.Phone,
		Specialty:  in.Specialty,
		Department: in.Department,
		Bio:        in.Bio,
		Timing:     in.Timing,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile of %s: %w", caller.UserID, err)
	}
	s.log.Info("profile updated", "user_id", u.ID)
	return u, nil
}
