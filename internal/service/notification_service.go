package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/notify"
	"fieldops/internal/phone"
)

// NotificationService sends ad-hoc SMS messages.
type NotificationService interface {
	// SendSMS returns the provider's response text.
	SendSMS(ctx context.Context, to, message string) (string, error)
}

type notificationService struct {
	sender notify.SMSSender
}

// NewNotificationService creates a new notification service.
func NewNotificationService(sender notify.SMSSender) NotificationService {
	return &notificationService{sender: sender}
}

func (s *notificationService) SendSMS(ctx context.Context, to, message string) (string, error) {
	message = strings.TrimSpace(message)
	if to == "" || message == "" {
		return "", apperrors.Validation("MISSING_FIELDS", "phone and message are required")
	}
	if !phone.Valid(to) {
		return "", apperrors.ErrInvalidPhone
	}
	to = phone.Normalize(to)

	resp, err := s.sender.Send(ctx, to, message)
	if err != nil {
		log.Warn().Err(err).Str("phone", to).Msg("sms delivery failed")
		return "", apperrors.Unavailable(apperrors.ErrNotificationFailed.Code, apperrors.ErrNotificationFailed.Message, err)
	}
	return resp, nil
}
