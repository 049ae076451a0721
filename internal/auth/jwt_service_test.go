package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, claims, err := svc.GenerateToken(42, "TECHNICIAN")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, "TECHNICIAN", parsed.Role)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestJWTService_TokenIDsAreUnique(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	_, a, err := svc.GenerateToken(1, "ADMIN")
	require.NoError(t, err)
	_, b, err := svc.GenerateToken(1, "ADMIN")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	token, _, err := NewJWTService("secret-a", time.Hour).GenerateToken(1, "ADMIN")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateToken(1, "ADMIN")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_DefaultTTLAndRemaining(t *testing.T) {
	svc := NewJWTService("test-secret", 0)
	assert.Equal(t, DefaultTokenExpiry, svc.TTL())

	_, claims, err := svc.GenerateToken(1, "ADMIN")
	require.NoError(t, err)
	remaining := svc.Remaining(claims)
	assert.True(t, remaining > 23*time.Hour && remaining <= 24*time.Hour)
	assert.Equal(t, time.Duration(0), svc.Remaining(nil))
}
