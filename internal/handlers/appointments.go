package handlers

import (
	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	appointments *services.AppointmentService
	log          *logging.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *services.AppointmentService, log *logging.Logger) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, log: log.Named("appointment-handler")}
}

// CreateAppointmentRequest represents the request body for booking. The
// Authorization header is optional; without it the booking is a guest one.
type CreateAppointmentRequest struct {
	Email      string `json:"email" binding:"required,email"`
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	DOB        string `json:"dob"`
	Insurance  string `json:"insurance"`
	Department string `json:"department" binding:"required"`
	Doctor     string `json:"doctor"`
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
}

// CreateAppointment handles booking an appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var caller *models.Identity
	if id, ok := middleware.GetIdentity(c); ok {
		caller = &id
	}

	appt, err := h.appointments.Book(c.Request.Context(), services.BookingInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		DOB:        req.DOB,
		Insurance:  req.Insurance,
		Department: req.Department,
		Doctor:     req.Doctor,
		Date:       req.Date,
		Time:       req.Time,
		Reason:     req.Reason,
		Notes:      req.Notes,
	}, caller)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Created(c, "Appointment booked successfully!", appt)
}

// GetMyAppointments lists the caller's own appointments.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	list, err := h.appointments.ListForOwner(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", nonNil(list))
}

// GetDoctorAppointments lists the appointments resolved to the calling
// doctor.
func (h *AppointmentHandler) GetDoctorAppointments(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	list, err := h.appointments.ListForDoctor(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", nonNil(list))
}

// GetAllAppointments lists every appointment, filtered by the status and
// doctorId query parameters.
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	list, err := h.appointments.ListAll(c.Request.Context(), c.Query("status"), c.Query("doctorId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointments retrieved successfully", nonNil(list))
}

// GetAppointmentByID returns a single appointment.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	appt, err := h.appointments.Get(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", appt)
}

// UpdateAppointmentStatusRequest represents the request body for updating appointment status.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAppointmentStatus handles a status change by a doctor or admin.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	id, _ := middleware.GetIdentity(c)
	appt, err := h.appointments.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appt)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// RescheduleAppointment handles rescheduling.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	id, _ := middleware.GetIdentity(c)
	appt, err := h.appointments.Reschedule(c.Request.Context(), c.Param("id"), req.Date, req.Time, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appt)
}

// CancelAppointment cancels the caller's own appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	appt, err := h.appointments.Cancel(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", gin.H{"id": appt.ID, "status": appt.Status})
}
