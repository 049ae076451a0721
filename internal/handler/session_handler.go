package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fieldops/internal/service"
)

// SessionHandler handles session endpoints outside the auth flow.
type SessionHandler struct {
	svc service.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// SessionRequest carries the device position.
type SessionRequest struct {
	CoordinatesRequest
}

// LogoutResponse reports how many sessions were closed.
type LogoutResponse struct {
	Message string `json:"message"`
	Closed  int64  `json:"closed"`
}

// StaffLogin godoc
// @Summary Open a staff or admin session
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SessionRequest false "Device position"
// @Success 201 {object} model.Session
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /sessions/login [post]
func (h *SessionHandler) StaffLogin(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req SessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.svc.StaffLogin(c.Request().Context(), claims.UserID, req.Coords())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

// TechnicianLogout godoc
// @Summary Close a technician's sessions and check them out
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SessionRequest false "Device position"
// @Success 200 {object} LogoutResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /sessions/logout [post]
func (h *SessionHandler) TechnicianLogout(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req SessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	closed, err := h.svc.TechnicianLogout(c.Request().Context(), claims.UserID, req.Coords())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, LogoutResponse{Message: "logged out", Closed: closed})
}

// Online godoc
// @Summary List online users
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Router /sessions/online [get]
func (h *SessionHandler) Online(c echo.Context) error {
	users, err := h.svc.OnlineUsers(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}
