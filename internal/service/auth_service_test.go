package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fieldops/internal/auth"
	apperrors "fieldops/internal/errors"
	"fieldops/internal/geo"
	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/repository/memstore"
)

const (
	siteLat = -1.2921
	siteLng = 36.8219
	// roughly 50 m north of the site
	nearLat = siteLat + 0.00045
)

type authFixture struct {
	store      *memstore.Store
	tokenStore *MockTokenStore
	jwt        *auth.JWTService
	svc        AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	st := newTestStore()
	tokenStore := new(MockTokenStore)
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	attendance := NewAttendance(eat, false, fixedNow)
	sessions := NewSessions(fixedNow)
	return &authFixture{
		store:      st,
		tokenStore: tokenStore,
		jwt:        jwtService,
		svc:        NewAuthService(st, attendance, sessions, jwtService, tokenStore, geo.DefaultRegions(), 500),
	}
}

func TestAuthService_LoginAndLogout_TracksAttendance(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tech := createUser(t, f.store, "wanjiru", model.RoleTechnician, "Nairobi")
	createJob(t, f.store, &model.Job{
		VehicleReg:    "KDA 123A",
		TechnicianID:  uintPtr(tech.ID),
		SiteLatitude:  floatPtr(siteLat),
		SiteLongitude: floatPtr(siteLng),
	})

	result, err := f.svc.Login(ctx, LoginInput{
		Identifier: "wanjiru@example.com",
		Password:   testPassword,
		Coords:     model.NewCoordinates(nearLat, siteLng),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.User.Online)
	require.NotNil(t, result.Entry)
	assert.Equal(t, model.EntryStatusPresent, result.Entry.Status)

	claims, err := f.jwt.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, claims.UserID)
	assert.Equal(t, string(model.RoleTechnician), claims.Role)

	active, err := f.store.Sessions().ListActive(ctx, tech.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	f.tokenStore.On("Revoke", mock.Anything, claims.ID, mock.AnythingOfType("time.Duration")).Return(nil)
	require.NoError(t, f.svc.Logout(ctx, claims, model.NewCoordinates(nearLat, siteLng)))

	rollCall, err := f.store.RollCalls().FindByDay(ctx, "2026-03-10", "Nairobi")
	require.NoError(t, err)
	entry, err := f.store.RollCalls().FindEntry(ctx, rollCall.ID, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryStatusCheckedOut, entry.Status)
	assert.NotNil(t, entry.CheckOut)

	history, err := f.store.RollCalls().List(ctx, repository.RollCallFilter{FromDay: "2026-03-10", ToDay: "2026-03-10"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Entries, 1)

	assert.False(t, reload(t, f.store, tech.ID).Online)
	active, err = f.store.Sessions().ListActive(ctx, tech.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	f.tokenStore.AssertExpectations(t)
}

func TestAuthService_Login_SecondLoginSameDayKeepsOneEntry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	tech := createUser(t, f.store, "otieno", model.RoleTechnician, "Nairobi")

	in := LoginInput{Identifier: "otieno@example.com", Password: testPassword, Coords: model.NewCoordinates(siteLat, siteLng)}
	first, err := f.svc.Login(ctx, in)
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	active, err := f.store.Sessions().ListActive(ctx, tech.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestAuthService_Login_Proximity(t *testing.T) {
	tests := []struct {
		name        string
		job         *model.Job
		coords      model.Coordinates
		wantMissing bool
		wantErr     bool
	}{
		{
			name:        "technician without coordinates and no job",
			coords:      model.Coordinates{},
			wantMissing: true,
			wantErr:     true,
		},
		{
			name:    "two kilometres from explicit site",
			job:     &model.Job{VehicleReg: "KCB 001X", SiteLatitude: floatPtr(siteLat), SiteLongitude: floatPtr(siteLng)},
			coords:  model.NewCoordinates(siteLat+0.018, siteLng),
			wantErr: true,
		},
		{
			name:    "site from region table",
			job:     &model.Job{VehicleReg: "KCB 002X", Location: "Mombasa"},
			coords:  model.NewCoordinates(siteLat, siteLng),
			wantErr: true,
		},
		{
			name:   "unknown location skips the check",
			job:    &model.Job{VehicleReg: "KCB 003X", Location: "Atlantis"},
			coords: model.NewCoordinates(siteLat, siteLng),
		},
		{
			name:   "no current job skips the check",
			coords: model.NewCoordinates(0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tech := createUser(t, f.store, "tech", model.RoleTechnician, "Nairobi")
			if tt.job != nil {
				tt.job.TechnicianID = uintPtr(tech.ID)
				createJob(t, f.store, tt.job)
			}

			_, err := f.svc.Login(context.Background(), LoginInput{
				Identifier: "tech@example.com",
				Password:   testPassword,
				Coords:     tt.coords,
			})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var proximity *apperrors.ProximityError
			require.ErrorAs(t, err, &proximity)
			assert.Equal(t, tt.wantMissing, proximity.Missing)
			assert.False(t, reload(t, f.store, tech.ID).Online)
		})
	}
}

func TestAuthService_Login_StaffNeedsNoCoordinates(t *testing.T) {
	f := newAuthFixture(t)
	createUser(t, f.store, "admin", model.RoleAdmin, "")

	result, err := f.svc.Login(context.Background(), LoginInput{Identifier: "admin@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Nil(t, result.Entry)
	assert.True(t, result.User.Online)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	createUser(t, f.store, "staff", model.RoleStaff, "")

	_, err := f.svc.Login(context.Background(), LoginInput{Identifier: "staff@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginInput{Identifier: "nobody@example.com", Password: testPassword})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_Login_ByLocalPhone(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Staff", Email: "staff@example.com", Phone: "0712345678", Password: testPassword, Role: model.RoleStaff,
	})
	require.NoError(t, err)

	result, err := f.svc.Login(context.Background(), LoginInput{Identifier: "0712345678", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", *result.User.Phone)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name: "defaults role to technician",
			in:   RegisterInput{Name: "New Tech", Email: "NEW@example.com", Phone: "0798765432", Password: "pass123", Region: "Nairobi"},
		},
		{
			name:    "missing password",
			in:      RegisterInput{Name: "x", Email: "x@example.com", Phone: "0798765432"},
			wantErr: apperrors.Validation("MISSING_FIELDS", ""),
		},
		{
			name:    "bad phone",
			in:      RegisterInput{Name: "x", Email: "x@example.com", Phone: "12345", Password: "pass123"},
			wantErr: apperrors.ErrInvalidPhone,
		},
		{
			name:    "unknown role",
			in:      RegisterInput{Name: "x", Email: "x@example.com", Phone: "0798765432", Password: "pass123", Role: "OWNER"},
			wantErr: apperrors.Validation("INVALID_ROLE", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			user, err := f.svc.Register(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.RoleTechnician, user.Role)
			assert.Equal(t, "new@example.com", *user.Email)
			assert.Equal(t, "+254798765432", *user.Phone)
			assert.NotEqual(t, tt.in.Password, user.PasswordHash)
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	in := RegisterInput{Name: "A", Email: "a@example.com", Phone: "0711111111", Password: "pass123"}
	_, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	in.Email = "other@example.com"
	in.Phone = "+254711111111"
	_, err = f.svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrUserExists)
}

func floatPtr(v float64) *float64 { return &v }
