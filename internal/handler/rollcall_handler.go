package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fieldops/internal/repository"
	"fieldops/internal/service"
)

// RollCallHandler handles attendance endpoints.
type RollCallHandler struct {
	svc service.RollCallService
}

// NewRollCallHandler creates a new roll-call handler.
func NewRollCallHandler(svc service.RollCallService) *RollCallHandler {
	return &RollCallHandler{svc: svc}
}

// AttendanceRequest carries the device position.
type AttendanceRequest struct {
	CoordinatesRequest
}

// SnapshotRequest selects the region to take a roll call for.
type SnapshotRequest struct {
	Region string `json:"region" validate:"required"`
}

// CheckIn godoc
// @Summary Check in to today's roll call
// @Tags rollcall
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttendanceRequest false "Device position"
// @Success 200 {object} model.RollCallEntry
// @Failure 403 {object} errors.ErrorResponse
// @Router /rollcall/checkin [post]
func (h *RollCallHandler) CheckIn(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req AttendanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.svc.CheckIn(c.Request().Context(), claims.UserID, req.Coords())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// CheckOut godoc
// @Summary Check out of today's roll call
// @Tags rollcall
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttendanceRequest false "Device position"
// @Success 200 {object} model.RollCallEntry
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /rollcall/checkout [post]
func (h *RollCallHandler) CheckOut(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req AttendanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.svc.CheckOut(c.Request().Context(), claims.UserID, req.Coords())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// Snapshot godoc
// @Summary Add every online user of a region to today's roll call
// @Tags rollcall
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SnapshotRequest true "Region"
// @Success 201 {object} model.RollCall
// @Failure 400 {object} errors.ErrorResponse
// @Router /rollcall [post]
func (h *RollCallHandler) Snapshot(c echo.Context) error {
	var req SnapshotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rollCall, err := h.svc.Snapshot(c.Request().Context(), req.Region)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, rollCall)
}

// History godoc
// @Summary Roll-call history
// @Tags rollcall
// @Produce json
// @Security BearerAuth
// @Param region query string false "Region"
// @Param startDate query string false "First day (YYYY-MM-DD)"
// @Param endDate query string false "Last day (YYYY-MM-DD)"
// @Success 200 {array} model.RollCall
// @Failure 400 {object} errors.ErrorResponse
// @Router /rollcall [get]
func (h *RollCallHandler) History(c echo.Context) error {
	rollCalls, err := h.svc.History(c.Request().Context(), repository.RollCallFilter{
		Region:  c.QueryParam("region"),
		FromDay: c.QueryParam("startDate"),
		ToDay:   c.QueryParam("endDate"),
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, rollCalls)
}
