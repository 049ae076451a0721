package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// RollCallService exposes explicit attendance actions and roll-call history.
type RollCallService interface {
	CheckIn(ctx context.Context, userID uint, coords model.Coordinates) (*model.RollCallEntry, error)
	CheckOut(ctx context.Context, userID uint, coords model.Coordinates) (*model.RollCallEntry, error)
	// Snapshot adds every online user of region to today's roll call.
	Snapshot(ctx context.Context, region string) (*model.RollCall, error)
	History(ctx context.Context, filter repository.RollCallFilter) ([]model.RollCall, error)
}

type rollCallService struct {
	store      repository.Store
	attendance *Attendance
}

// NewRollCallService creates a new roll-call service.
func NewRollCallService(store repository.Store, attendance *Attendance) RollCallService {
	return &rollCallService{store: store, attendance: attendance}
}

func (s *rollCallService) technician(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.Role.TracksAttendance() {
		return nil, apperrors.Forbidden("NOT_ON_ROLL_CALL", "only technicians take part in roll call")
	}
	return user, nil
}

func (s *rollCallService) CheckIn(ctx context.Context, userID uint, coords model.Coordinates) (*model.RollCallEntry, error) {
	user, err := s.technician(ctx, userID)
	if err != nil {
		return nil, err
	}
	var entry *model.RollCallEntry
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		entry, err = s.attendance.RecordArrival(ctx, tx, user, coords)
		return err
	})
	return entry, err
}

func (s *rollCallService) CheckOut(ctx context.Context, userID uint, coords model.Coordinates) (*model.RollCallEntry, error) {
	user, err := s.technician(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry, err := s.attendance.RecordDeparture(ctx, s.store, user, coords)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NotFound("NOT_CHECKED_IN", "no check-in recorded today")
	}
	return entry, nil
}

func (s *rollCallService) Snapshot(ctx context.Context, region string) (*model.RollCall, error) {
	if region == "" {
		return nil, apperrors.Validation("REGION_REQUIRED", "region is required")
	}
	scope := region
	if s.attendance.globalScope {
		scope = model.GlobalRegion
	}
	day := s.attendance.Today()

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		online := true
		users, err := tx.Users().List(ctx, repository.UserFilter{Region: region, Online: &online})
		if err != nil {
			return fmt.Errorf("list online users: %w", err)
		}
		rollCall, err := s.attendance.ensureRollCall(ctx, tx, day, scope)
		if err != nil {
			return err
		}
		for _, u := range users {
			coords := model.Coordinates{}
			if latest, err := tx.Sessions().Latest(ctx, u.ID); err == nil && latest.Active {
				coords = model.Coordinates{Latitude: latest.Latitude, Longitude: latest.Longitude}
			}
			if _, err := s.attendance.ensureEntry(ctx, tx, rollCall.ID, u.ID, coords); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rollCalls, err := s.store.RollCalls().List(ctx, repository.RollCallFilter{Region: scope, FromDay: day, ToDay: day})
	if err != nil {
		return nil, fmt.Errorf("load roll call: %w", err)
	}
	if len(rollCalls) == 0 {
		return nil, fmt.Errorf("roll call %s/%s vanished after snapshot", day, scope)
	}
	return &rollCalls[0], nil
}

func (s *rollCallService) History(ctx context.Context, filter repository.RollCallFilter) ([]model.RollCall, error) {
	for _, day := range []string{filter.FromDay, filter.ToDay} {
		if day == "" {
			continue
		}
		if _, err := time.Parse(dayLayout, day); err != nil {
			return nil, apperrors.Validation("INVALID_DATE", "dates must be YYYY-MM-DD")
		}
	}
	rollCalls, err := s.store.RollCalls().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list roll calls: %w", err)
	}
	if rollCalls == nil {
		rollCalls = []model.RollCall{}
	}
	return rollCalls, nil
}
