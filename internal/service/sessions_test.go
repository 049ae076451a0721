package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
)

func TestSessions_OpenClosesPreviousSession(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	s := NewSessions(fixedNow)
	user := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")

	first, err := s.Open(ctx, st, user.ID, model.Coordinates{})
	require.NoError(t, err)
	second, err := s.Open(ctx, st, user.ID, model.NewCoordinates(siteLat, siteLng))
	require.NoError(t, err)

	active, err := st.Sessions().ListActive(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.NotEqual(t, first.ID, second.ID)

	u := reload(t, st, user.ID)
	assert.True(t, u.Online)
	require.NotNil(t, u.LastLogin)
	assert.True(t, u.LastLogin.Equal(fixedNow()))
}

func TestSessions_CloseEndsEveryActiveSession(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	s := NewSessions(fixedNow)
	user := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")

	// Two active rows, as left behind by older clients.
	for i := 0; i < 2; i++ {
		require.NoError(t, st.Sessions().Create(ctx, &model.Session{UserID: user.ID, Active: true, LoginTime: fixedNow()}))
	}
	require.NoError(t, st.Users().MarkOnline(ctx, user.ID, fixedNow()))

	closed, err := s.Close(ctx, st, reload(t, st, user.ID), model.NewCoordinates(siteLat, siteLng))
	require.NoError(t, err)
	assert.Equal(t, int64(2), closed)

	active, err := st.Sessions().ListActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	latest, err := st.Sessions().Latest(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, latest.LogoutTime)
	assert.Equal(t, siteLat, *latest.LogoutLatitude)

	u := reload(t, st, user.ID)
	assert.False(t, u.Online)
	assert.NotNil(t, u.LastLogout)
}

func TestSessions_CloseWithoutActiveSessionIsNoop(t *testing.T) {
	st := newTestStore()
	s := NewSessions(fixedNow)
	user := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")

	closed, err := s.Close(context.Background(), st, user, model.Coordinates{})
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Nil(t, reload(t, st, user.ID).LastLogout)
}

func TestSessions_PingOpensOrUpdates(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	s := NewSessions(fixedNow)
	user := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")

	require.NoError(t, s.Ping(ctx, st, user.ID, model.NewCoordinates(1, 2)))
	require.NoError(t, s.Ping(ctx, st, user.ID, model.NewCoordinates(3, 4)))
	require.NoError(t, s.Ping(ctx, st, user.ID, model.Coordinates{}))

	active, err := st.Sessions().ListActive(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 3.0, *active[0].Latitude)
	assert.Equal(t, 4.0, *active[0].Longitude)
}

func TestSessionService(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	attendance := NewAttendance(eat, false, fixedNow)
	svc := NewSessionService(st, NewSessions(fixedNow), attendance)

	tech := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")
	staff := createUser(t, st, "staff", model.RoleStaff, "Nairobi")

	_, err := svc.StaffLogin(ctx, tech.ID, model.Coordinates{})
	assert.ErrorIs(t, err, apperrors.Forbidden("USE_TECHNICIAN_LOGIN", ""))

	session, err := svc.StaffLogin(ctx, staff.ID, model.NewCoordinates(siteLat, siteLng))
	require.NoError(t, err)
	assert.True(t, session.Active)

	online, err := svc.OnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, staff.ID, online[0].ID)

	_, err = svc.TechnicianLogout(ctx, staff.ID, model.Coordinates{})
	assert.ErrorIs(t, err, apperrors.Forbidden("USE_STAFF_LOGOUT", ""))

	_, err = attendance.RecordArrival(ctx, st, tech, model.Coordinates{})
	require.NoError(t, err)
	_, err = NewSessions(fixedNow).Open(ctx, st, tech.ID, model.Coordinates{})
	require.NoError(t, err)

	closed, err := svc.TechnicianLogout(ctx, tech.ID, model.Coordinates{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	rollCall, err := st.RollCalls().FindByDay(ctx, attendance.Today(), "Nairobi")
	require.NoError(t, err)
	entry, err := st.RollCalls().FindEntry(ctx, rollCall.ID, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryStatusCheckedOut, entry.Status)
}
