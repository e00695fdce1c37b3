package handlers

import (
	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// DepartmentHandler serves the department directory.
type DepartmentHandler struct {
	departments *services.DepartmentService
	log         *logging.Logger
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(departments *services.DepartmentService, log *logging.Logger) *DepartmentHandler {
	return &DepartmentHandler{departments: departments, log: log.Named("department-handler")}
}

// CreateDepartmentRequest creates a department.
type CreateDepartmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Timing      string `json:"timing"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// GetDepartments lists every department.
func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	list, err := h.departments.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Departments retrieved successfully", nonNil(list))
}

// CreateDepartment adds a department.
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req CreateDepartmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	d, err := h.departments.Create(c.Request.Context(), services.DepartmentInput{
		Name:        req.Name,
		Description: req.Description,
		Timing:      req.Timing,
		Icon:        req.Icon,
		Color:       req.Color,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Created(c, "Department created successfully", d)
}
