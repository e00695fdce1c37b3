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

// DefaultDepartmentTiming is shown when a department has no fixed hours.
const DefaultDepartmentTiming = "By Appointment"

// DepartmentService manages the department directory.
type DepartmentService struct {
	departments store.DepartmentStore
	log         *logging.Logger
}

// NewDepartmentService creates a DepartmentService.
func NewDepartmentService(departments store.DepartmentStore, log *logging.Logger) *DepartmentService {
	return &DepartmentService{departments: departments, log: log.Named("departments")}
}

// DepartmentInput creates a department.
type DepartmentInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=5000"`
	Timing      string `validate:"max=100"`
	Icon        string `validate:"max=50"`
	Color       string `validate:"max=30"`
}

// List returns every department by name.
func (s *DepartmentService) List(ctx context.Context) ([]*models.Department, error) {
	out, err := s.departments.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

// Create adds a department. Names are unique.
func (s *DepartmentService) Create(ctx context.Context, in DepartmentInput) (*models.Department, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Timing = strings.TrimSpace(in.Timing)
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}
	if in.Timing == "" {
		in.Timing = DefaultDepartmentTiming
	}

	d := &models.Department{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Timing:      in.Timing,
		Icon:        in.Icon,
		Color:       in.Color,
	}
	err := s.departments.CreateDepartment(ctx, d)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateDepartment
	}
	if err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}
	s.log.Info("department created", "department_id", d.ID, "name", d.Name)
	return d, nil
}
