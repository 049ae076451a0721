package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fieldops/internal/service"
)

// NotificationHandler handles outbound notifications.
type NotificationHandler struct {
	svc service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// SMSRequest represents an SMS to send.
type SMSRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required,max=918"`
}

// SMSResponse carries the provider's reply.
type SMSResponse struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

// SendSMS godoc
// @Summary Send an SMS
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SMSRequest true "Recipient and text"
// @Success 200 {object} SMSResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /notifications/sms [post]
func (h *NotificationHandler) SendSMS(c echo.Context) error {
	var req SMSRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.svc.SendSMS(c.Request().Context(), req.Phone, req.Message)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, SMSResponse{Message: "sms sent", Provider: resp})
}
