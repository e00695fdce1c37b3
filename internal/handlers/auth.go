package handlers

import (
	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
	log   *logging.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, log *logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, log: log.Named("auth-handler")}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return // Error response handled by BindAndValidate
	}

	err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "OTP sent to email", nil)
}

// VerifyOTPRequest represents the request body for OTP verification.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTP handles email verification.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Email verified successfully", nil)
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Login successful", res)
}

// ForgotPasswordRequest represents the request body for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword emails a password reset link.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Password reset link sent to your email", nil)
}

// ResetPasswordRequest represents the request body for a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ResetPassword sets a new password using a reset token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Password has been reset successfully", nil)
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User ID not found in token")
		return
	}

	user, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Profile retrieved successfully", user.Sanitize())
}

// UpdateProfileRequest is a partial profile edit. Omitted fields are kept.
type UpdateProfileRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Specialty  *string `json:"specialty"`
	Department *string `json:"department"`
	Bio        *string `json:"bio"`
	Timing     *string `json:"timing"`
}

// UpdateProfile edits the authenticated user's own profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	caller, _ := middleware.GetIdentity(c)

	user, err := h.users.UpdateProfile(c.Request.Context(), caller, services.ProfileInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Specialty:  req.Specialty,
		Department: req.Department,
		Bio:        req.Bio,
		Timing:     req.Timing,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
