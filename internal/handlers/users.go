package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	users *services.UserService
	log   *logging.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService, log *logging.Logger) *UserHandler {
	return &UserHandler{users: users, log: log.Named("user-handler")}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Phone      string `json:"phone"`
	Role       string `json:"role" binding:"required"`
	Specialty  string `json:"specialty"`
	Department string `json:"department"`
	Bio        string `json:"bio"`
	Timing     string `json:"timing"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), services.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Role:       req.Role,
		Specialty:  req.Specialty,
		Department: req.Department,
		Bio:        req.Bio,
		Timing:     req.Timing,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists accounts, filtered by the role and status query parameters.
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), c.Query("role"), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Users retrieved successfully", sanitizeAll(users))
}

// GetUserByID returns one account.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "User retrieved successfully", user.Sanitize())
}

// UpdateUserStatusRequest sets an explicit status. An empty body toggles.
type UpdateUserStatusRequest struct {
	Status string `json:"status"`
}

// UpdateUserStatus activates, deactivates or toggles an account.
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	caller, _ := middleware.GetIdentity(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		user *models.User
		err  error
	)
	if req.Status == "" {
		user, err = h.users.ToggleStatus(ctx, id, caller)
	} else {
		user, err = h.users.SetStatus(ctx, id, req.Status, caller)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "User status updated successfully", user.Sanitize())
}

// DeleteUser removes an account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, _ := middleware.GetIdentity(c)
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("id"), caller); err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

// GetDoctors lists active doctors, optionally filtered by department.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.users.ListDoctors(c.Request.Context(), c.Query("department"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Doctors retrieved successfully", sanitizeAll(doctors))
}
