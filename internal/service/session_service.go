package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// SessionService exposes session operations outside the auth login flow.
type SessionService interface {
	// StaffLogin opens a session for an admin or staff user. Technicians must
	// log in through AuthService so attendance is recorded.
	StaffLogin(ctx context.Context, userID uint, coords model.Coordinates) (*model.Session, error)
	// TechnicianLogout closes a technician's sessions and checks them out.
	TechnicianLogout(ctx context.Context, userID uint, coords model.Coordinates) (int64, error)
	OnlineUsers(ctx context.Context) ([]model.User, error)
}

type sessionService struct {
	store      repository.Store
	sessions   *Sessions
	attendance *Attendance
}

// NewSessionService creates a new session service.
func NewSessionService(store repository.Store, sessions *Sessions, attendance *Attendance) SessionService {
	return &sessionService{store: store, sessions: sessions, attendance: attendance}
}

func (s *sessionService) findUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *sessionService) StaffLogin(ctx context.Context, userID uint, coords model.Coordinates) (*model.Session, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role.TracksAttendance() {
		return nil, apperrors.Forbidden("USE_TECHNICIAN_LOGIN", "technicians must use the auth login endpoint")
	}

	var session *model.Session
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		session, err = s.sessions.Open(ctx, tx, user.ID, coords)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) TechnicianLogout(ctx context.Context, userID uint, coords model.Coordinates) (int64, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !user.Role.TracksAttendance() {
		return 0, apperrors.Forbidden("USE_STAFF_LOGOUT", "only technicians can use this endpoint")
	}

	var closed int64
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if closed, err = s.sessions.Close(ctx, tx, user, coords); err != nil {
			return err
		}
		_, err = s.attendance.RecordDeparture(ctx, tx, user, coords)
		return err
	})
	if err != nil {
		return 0, err
	}
	return closed, nil
}

func (s *sessionService) OnlineUsers(ctx context.Context) ([]model.User, error) {
	online := true
	users, err := s.store.Users().List(ctx, repository.UserFilter{Online: &online})
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return users, nil
}
