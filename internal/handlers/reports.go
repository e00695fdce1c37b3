package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// ReportHandler serves medical reports.
type ReportHandler struct {
	reports *services.ReportService
	log     *logging.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *services.ReportService, log *logging.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log.Named("report-handler")}
}

// CreateReportRequest is a report filed by a doctor.
type CreateReportRequest struct {
	PatientID  string `json:"patientId" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Department string `json:"department"`
	FileURL    string `json:"fileUrl" binding:"required"`
	Note       string `json:"note"`
}

// CreateReport files a report for a patient.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	caller, _ := middleware.GetIdentity(c)

	report, err := h.reports.Create(c.Request.Context(), services.CreateReportInput{
		PatientID:  req.PatientID,
		Title:      req.Title,
		Department: req.Department,
		FileURL:    req.FileURL,
		Note:       req.Note,
	}, caller)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Created(c, "Report uploaded successfully", report)
}

// GetMyReports lists the reports filed for the signed-in patient.
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	h.respondList(c, func() ([]*models.Report, error) {
		return h.reports.ListForPatient(c.Request.Context(), caller)
	})
}

// GetDoctorReports lists the reports the signed-in doctor filed.
func (h *ReportHandler) GetDoctorReports(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	h.respondList(c, func() ([]*models.Report, error) {
		return h.reports.ListForDoctor(c.Request.Context(), caller)
	})
}

// GetAllReports lists every report, optionally filtered by ?status.
func (h *ReportHandler) GetAllReports(c *gin.Context) {
	h.respondList(c, func() ([]*models.Report, error) {
		return h.reports.ListAll(c.Request.Context(), c.Query("status"))
	})
}

func (h *ReportHandler) respondList(c *gin.Context, list func() ([]*models.Report, error)) {
	reports, err := list()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Reports retrieved successfully", nonNil(reports))
}

// DownloadReport redirects the owning patient to the report file.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	report, err := h.reports.Download(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, report.FileURL)
}

// ApproveReport releases a report to its patient.
func (h *ReportHandler) ApproveReport(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	report, err := h.reports.Approve(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Report approved", report)
}

// RejectReport withholds a report.
func (h *ReportHandler) RejectReport(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	report, err := h.reports.Reject(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Report rejected", report)
}
