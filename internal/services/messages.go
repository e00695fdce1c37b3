package services

import (
	"context"
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

// MessageService stores contact form submissions and acknowledges them by
// email.
type MessageService struct {
	messages    store.MessageStore
	mailer      mailer.Mailer
	hospital    string
	log         *logging.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
}

// NewMessageService creates a MessageService.
func NewMessageService(messages store.MessageStore, m mailer.Mailer, hospital string, log *logging.Logger, met *metrics.Metrics) *MessageService {
	return &MessageService{
		messages:    messages,
		mailer:      m,
		hospital:    hospital,
		log:         log.Named("messages"),
		metrics:     met,
		sendTimeout: 30 * time.Second,
	}
}

// ContactInput is a submission of the public contact form.
type ContactInput struct {
	Name    string `validate:"required,max=200"`
	Email   string `validate:"required,email"`
	Phone   string `validate:"max=50"`
	Subject string `validate:"max=255"`
	Message string `validate:"required,max=5000"`
}

// Submit stores a message, then sends the acknowledgement. A failed email
// does not fail the submission.
func (s *MessageService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := utils.Validate(in); err != nil {
		return nil, ValidationError(utils.FormatValidationError(err))
	}

	m := &models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   strings.TrimSpace(in.Phone),
		Subject: in.Subject,
		Body:    in.Message,
	}
	if err := s.messages.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.log.Info("contact message stored", "message_id", m.ID)

	msg, err := mailer.ContactConfirmation(m.Email, mailer.ContactDetails{
		Name: m.Name, Subject: m.SubjectOrDefault(), Hospital: s.hospital,
	})
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
		err = s.mailer.Send(sendCtx, msg)
	}
	if err != nil {
		s.metrics.ObserveEmailFailure("contact")
		s.log.WithError(err).Error("contact acknowledgement not sent", "message_id", m.ID)
	}
	return m, nil
}

// List returns every message, newest first.
func (s *MessageService) List(ctx context.Context) ([]*models.ContactMessage, error) {
	out, err := s.messages.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}
