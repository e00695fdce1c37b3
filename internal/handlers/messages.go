package handlers

import (
	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// MessageHandler serves the contact form.
type MessageHandler struct {
	messages *services.MessageService
	log      *logging.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *services.MessageService, log *logging.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, log: log.Named("message-handler")}
}

// ContactRequest is the body of the public contact form.
type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// SubmitMessage stores a contact message.
func (h *MessageHandler) SubmitMessage(c *gin.Context) {
	var req ContactRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	msg, err := h.messages.Submit(c.Request.Context(), services.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}

// GetMessages lists contact messages, newest first.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	utils.Success(c, "Messages retrieved successfully", nonNil(msgs))
}
