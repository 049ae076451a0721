package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"fieldops/internal/auth"
	"fieldops/internal/errors"
	"fieldops/internal/model"
)

const dateLayout = "2006-01-02"

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// CoordinatesRequest is the optional GPS reading most write endpoints accept.
type CoordinatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// Coords converts the request fields to model coordinates.
func (r CoordinatesRequest) Coords() model.Coordinates {
	return model.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

// ClaimsContextKey is where the JWT middleware stores the validated claims.
const ClaimsContextKey = "user"

// CurrentClaims returns the claims the JWT middleware stored for the request.
func CurrentClaims(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func currentClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := CurrentClaims(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: errors.ErrInvalidToken.Message,
			Code:  errors.ErrInvalidToken.Code,
		})
	}
	return claims, nil
}

// respondError maps a service error to an echo error with an ErrorResponse body.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(code, message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func invalidBody() error {
	return badRequest("INVALID_REQUEST", "invalid request body")
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(req); err != nil {
		return badRequest("VALIDATION_FAILED", err.Error())
	}
	return nil
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("INVALID_ID", "invalid "+name)
	}
	return uint(id), nil
}

func parseOptionalID(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, badRequest("INVALID_ID", "invalid id "+raw)
	}
	v := uint(id)
	return &v, nil
}

// parseTime accepts YYYY-MM-DD (midnight in loc) or RFC 3339.
func parseTime(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, badRequest("INVALID_DATE", "dates must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

// parseDayRange parses an inclusive from/to pair. A plain date as the upper
// bound covers the whole day.
func parseDayRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	start, err := parseTime(from, loc)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseTime(to, loc)
	if err != nil {
		return nil, nil, err
	}
	if end != nil && len(strings.TrimSpace(to)) == len(dateLayout) {
		e := end.Add(24*time.Hour - time.Nanosecond)
		end = &e
	}
	return start, end, nil
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, badRequest("INVALID_COORDINATES", "latitude and longitude must be numbers")
	}
	return &v, nil
}
