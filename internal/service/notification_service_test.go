package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "fieldops/internal/errors"
)

func TestNotificationService_SendSMS(t *testing.T) {
	sender := new(MockSMSSender)
	svc := NewNotificationService(sender)

	sender.On("Send", mock.Anything, "+254712345678", "Job assigned").Return("OK: 1 sent", nil).Once()
	resp, err := svc.SendSMS(context.Background(), "0712345678", " Job assigned ")
	require.NoError(t, err)
	assert.Equal(t, "OK: 1 sent", resp)
	sender.AssertExpectations(t)
}

func TestNotificationService_SendSMS_Errors(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		message string
		sendErr error
		want    error
	}{
		{name: "missing message", phone: "0712345678", want: apperrors.Validation("MISSING_FIELDS", "")},
		{name: "invalid phone", phone: "12345", message: "hi", want: apperrors.ErrInvalidPhone},
		{name: "provider failure", phone: "+254712345678", message: "hi", sendErr: errors.New("timeout"), want: apperrors.ErrNotificationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(MockSMSSender)
			if tt.sendErr != nil {
				sender.On("Send", mock.Anything, tt.phone, tt.message).Return("", tt.sendErr)
			}

			_, err := NewNotificationService(sender).SendSMS(context.Background(), tt.phone, tt.message)
			assert.ErrorIs(t, err, tt.want)
			sender.AssertExpectations(t)
		})
	}
}
