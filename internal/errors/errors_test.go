package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", Validation("VEHICLE_REG_REQUIRED", "vehicleReg is required"), http.StatusBadRequest, "VEHICLE_REG_REQUIRED"},
		{"not found", ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("start job: %w", ErrJobNotFound), http.StatusNotFound, "JOB_NOT_FOUND"},
		{"conflict", ErrUserExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{"auth", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"forbidden", ErrAdminOnly, http.StatusForbidden, "ADMIN_ONLY"},
		{"proximity far", &ProximityError{Distance: 812, MaxMeters: 500}, http.StatusForbidden, "TOO_FAR_FROM_SITE"},
		{"proximity missing", &ProximityError{Missing: true}, http.StatusBadRequest, "GPS_REQUIRED"},
		{"duplicate job", &DuplicateJobError{VehicleReg: "KDA 123A"}, http.StatusConflict, "DUPLICATE_JOB"},
		{"transition", &TransitionError{From: "DONE", To: "PENDING"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"notification", ErrNotificationFailed, http.StatusBadGateway, "NOTIFICATION_FAILED"},
		{"unknown", errors.New("dial tcp 10.0.0.3:3306: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_DoesNotLeakInternalDetail(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("Error 1062: Duplicate entry 'x' for key 'users.email'"))
	assert.Equal(t, "internal server error", httpErr.Message)
}

func TestError_IsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("login: %w", Unauthorized("INVALID_CREDENTIALS", "bad password"))
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.False(t, errors.Is(err, ErrInvalidToken))
}

func TestDuplicateJobError_NamesVehicle(t *testing.T) {
	err := &DuplicateJobError{VehicleReg: "KCB 456Z"}
	assert.Equal(t, "an open job already exists for vehicle KCB 456Z", err.Error())

	err = &DuplicateJobError{VehicleReg: "KCB 456Z", JobID: 3, Status: "IN_PROGRESS"}
	assert.Equal(t, "an open job (IN_PROGRESS) already exists for vehicle KCB 456Z", err.Error())
}
