package service

import (
	"context"
	"fmt"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// Sessions keeps at most one active session per user and mirrors that state
// in User.Online. Like Attendance it runs against the store it is given.
type Sessions struct {
	now func() time.Time
}

// NewSessions builds the tracker.
func NewSessions(now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{now: now}
}

// Open closes any session still active for the user, then opens a new one
// and marks the user online.
func (s *Sessions) Open(ctx context.Context, st repository.Store, userID uint, coords model.Coordinates) (*model.Session, error) {
	now := s.now()
	if _, err := st.Sessions().CloseActive(ctx, userID, now, model.Coordinates{}); err != nil {
		return nil, fmt.Errorf("close previous sessions: %w", err)
	}

	session := &model.Session{
		UserID:    userID,
		Active:    true,
		LoginTime: now,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}
	if err := st.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := st.Users().MarkOnline(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("mark online: %w", err)
	}
	return session, nil
}

// Close ends every active session of the user, stamping logout time and
// coordinates, and marks the user offline. It returns how many sessions were
// closed; with none active and the user already offline it changes nothing.
func (s *Sessions) Close(ctx context.Context, st repository.Store, user *model.User, coords model.Coordinates) (int64, error) {
	now := s.now()
	closed, err := st.Sessions().CloseActive(ctx, user.ID, now, coords)
	if err != nil {
		return 0, fmt.Errorf("close sessions: %w", err)
	}
	if closed == 0 && !user.Online {
		return 0, nil
	}
	if err := st.Users().MarkOffline(ctx, user.ID, now); err != nil {
		return 0, fmt.Errorf("mark offline: %w", err)
	}
	return closed, nil
}

// Ping records the user's position on the active session, opening one when
// none is active.
func (s *Sessions) Ping(ctx context.Context, st repository.Store, userID uint, coords model.Coordinates) error {
	active, err := st.Sessions().ListActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	if len(active) == 0 {
		_, err := s.Open(ctx, st, userID, coords)
		return err
	}
	return s.UpdateLocation(ctx, st, userID, coords)
}

// UpdateLocation refreshes the coordinates of the user's active session. A
// reading without coordinates is ignored.
func (s *Sessions) UpdateLocation(ctx context.Context, st repository.Store, userID uint, coords model.Coordinates) error {
	if !coords.Present() {
		return nil
	}
	if _, err := st.Sessions().UpdateActiveLocation(ctx, userID, coords); err != nil {
		return fmt.Errorf("update session location: %w", err)
	}
	return nil
}
