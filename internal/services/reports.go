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

// ReportService handles reports doctors file for patients and their review
// by administrators.
type ReportService struct {
	reports store.ReportStore
	users   store.UserStore
	log     *logging.Logger
}

// NewReportService creates a ReportService.
func NewReportService(reports store.ReportStore, users store.UserStore, log *logging.Logger) *ReportService {
	return &ReportService{reports: reports, users: users, log: log.Named("reports")}
}

// CreateReportInput is a report filed by a doctor.
type CreateReportInput struct {
	PatientID  string `validate:"required"`
	Title      string `validate:"required,max=255"`
	Department string `validate:"max=100"`
	FileURL    string `validate:"required,http_url,max=1024"`
	Note       string `validate:"max=5000"`
}

// Create files a pending report for a patient.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput, caller models.Identity) (*models.Report, error) {
	if !caller.HasRole(models.RoleDoctor, models.RoleAdmin) {
		return nil, ErrForbidden
	}
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.Title = strings.TrimSpace(in.Title)
	in.FileURL = strings.TrimSpace(in.FileURL)
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}

	patient, err := s.users.GetUserByID(ctx, in.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load patient %s: %w", in.PatientID, err)
	}
	if patient.Role != models.RolePatient {
		return nil, ErrPatientNotFound
	}

	r := &models.Report{
		PatientID:  patient.ID,
		DoctorID:   caller.UserID,
		Title:      in.Title,
		Department: strings.TrimSpace(in.Department),
		FileURL:    in.FileURL,
		Note:       in.Note,
		Status:     models.ReportPending,
	}
	if err := s.reports.CreateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.log.Info("report filed", "report_id", r.ID, "patient_id", r.PatientID, "by", caller.UserID)
	return r, nil
}

// ListForPatient returns the reports filed for the caller.
func (s *ReportService) ListForPatient(ctx context.Context, caller models.Identity) ([]*models.Report, error) {
	return s.list(ctx, store.ReportFilter{PatientID: caller.UserID})
}

// ListForDoctor returns the reports the caller filed.
func (s *ReportService) ListForDoctor(ctx context.Context, caller models.Identity) ([]*models.Report, error) {
	return s.list(ctx, store.ReportFilter{DoctorID: caller.UserID})
}

// ListAll returns every report, optionally of one status.
func (s *ReportService) ListAll(ctx context.Context, status string) ([]*models.Report, error) {
	filter := store.ReportFilter{}
	if status != "" {
		st, err := models.ParseReportStatus(status)
		if err != nil {
			return nil, ValidationError("Invalid status")
		}
		filter.Status = st
	}
	return s.list(ctx, filter)
}

func (s *ReportService) list(ctx context.Context, filter store.ReportFilter) ([]*models.Report, error) {
	out, err := s.reports.ListReports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// Download returns a report the caller may fetch. Reports of other patients
// are reported as missing.
func (s *ReportService) Download(ctx context.Context, id string, caller models.Identity) (*models.Report, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PatientID != caller.UserID {
		return nil, ErrReportNotFound
	}
	if !r.IsAvailable() {
		return nil, ErrReportNotReady
	}
	return r, nil
}

// Approve releases a pending report to its patient.
func (s *ReportService) Approve(ctx context.Context, id string, caller models.Identity) (*models.Report, error) {
	return s.review(ctx, id, models.ReportReady, caller)
}

// Reject withholds a pending report.
func (s *ReportService) Reject(ctx context.Context, id string, caller models.Identity) (*models.Report, error) {
	return s.review(ctx, id, models.ReportRejected, caller)
}

func (s *ReportService) review(ctx context.Context, id string, to models.ReportStatus, caller models.Identity) (*models.Report, error) {
	if !caller.HasRole(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(to) {
		return nil, ErrReportReviewed
	}
	out, err := s.reports.TransitionReport(ctx, r.ID, r.Status, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrReportNotFound
	case errors.Is(err, store.ErrConflict):
		return nil, ErrReportReviewed
	case err != nil:
		return nil, fmt.Errorf("review report %s: %w", id, err)
	}
	s.log.Info("report reviewed", "report_id", id, "status", to, "by", caller.UserID)
	return out, nil
}

func (s *ReportService) load(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.reports.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return r, nil
}
