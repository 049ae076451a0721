package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/geo"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

const dayLayout = "2006-01-02"

// Attendance keeps the daily roll call. It holds no state of its own; every
// operation runs against the store it is given so callers can compose it
// inside their transactions.
type Attendance struct {
	loc         *time.Location
	globalScope bool
	now         func() time.Time
}

// NewAttendance builds the tracker. Days are computed in loc; with
// globalScope every user shares one roll call per day.
func NewAttendance(loc *time.Location, globalScope bool, now func() time.Time) *Attendance {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Attendance{loc: loc, globalScope: globalScope, now: now}
}

// Today returns the current calendar day as YYYY-MM-DD.
func (a *Attendance) Today() string {
	return a.now().In(a.loc).Format(dayLayout)
}

// StartOfToday returns local midnight of the current day.
func (a *Attendance) StartOfToday() time.Time {
	y, m, d := a.now().In(a.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
}

// Scope returns the roll-call region a user is counted under.
func (a *Attendance) Scope(user *model.User) string {
	if a.globalScope || user.Region == "" {
		return model.GlobalRegion
	}
	return user.Region
}

// RecordArrival puts the user on today's roll call. A second call on the same
// day returns the existing entry unchanged. Users whose role does not track
// attendance get (nil, nil).
func (a *Attendance) RecordArrival(ctx context.Context, st repository.Store, user *model.User, coords model.Coordinates) (*model.RollCallEntry, error) {
	if !user.Role.TracksAttendance() {
		return nil, nil
	}

	rollCall, err := a.ensureRollCall(ctx, st, a.Today(), a.Scope(user))
	if err != nil {
		return nil, err
	}
	return a.ensureEntry(ctx, st, rollCall.ID, user.ID, coords)
}

// RecordDeparture checks the user out of today's roll call. Without an entry,
// or with one already checked out, nothing changes.
func (a *Attendance) RecordDeparture(ctx context.Context, st repository.Store, user *model.User, coords model.Coordinates) (*model.RollCallEntry, error) {
	if !user.Role.TracksAttendance() {
		return nil, nil
	}

	rollCall, err := st.RollCalls().FindByDay(ctx, a.Today(), a.Scope(user))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find roll call: %w", err)
	}

	entry, err := st.RollCalls().FindEntry(ctx, rollCall.ID, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find roll call entry: %w", err)
	}
	if entry.CheckOut != nil {
		return entry, nil
	}

	now := a.now()
	entry.CheckOut = &now
	entry.Status = model.EntryStatusCheckedOut
	entry.CheckOutLatitude = coords.Latitude
	entry.CheckOutLongitude = coords.Longitude
	if err := st.RollCalls().UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("check out: %w", err)
	}
	return entry, nil
}

// ValidateProximity checks a reading against a job site. A nil site skips the
// check. Roles that track attendance must send coordinates; others pass
// without them. A distance equal to maxMeters passes.
func (a *Attendance) ValidateProximity(user *model.User, coords model.Coordinates, site *geo.Point, maxMeters float64) error {
	point, ok := coords.Point()
	if !ok {
		if user.Role.TracksAttendance() {
			return &apperrors.ProximityError{Missing: true, MaxMeters: maxMeters}
		}
		return nil
	}
	if site == nil {
		return nil
	}

	distance := geo.Distance(point, *site)
	if distance > maxMeters {
		log.Debug().Uint("user_id", user.ID).Float64("distance_m", distance).
			Float64("max_m", maxMeters).Msg("check-in rejected: too far from site")
		return &apperrors.ProximityError{Distance: distance, MaxMeters: maxMeters}
	}
	return nil
}

// ensureRollCall finds or creates the roll call for day and region. A racing
// insert by another request is resolved by reading the winner's row.
func (a *Attendance) ensureRollCall(ctx context.Context, st repository.Store, day, region string) (*model.RollCall, error) {
	rollCall, err := st.RollCalls().FindByDay(ctx, day, region)
	if err == nil {
		return rollCall, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find roll call: %w", err)
	}

	rollCall = &model.RollCall{Day: day, Region: region}
	if err := st.RollCalls().Create(ctx, rollCall); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("create roll call: %w", err)
		}
		if rollCall, err = st.RollCalls().FindByDay(ctx, day, region); err != nil {
			return nil, fmt.Errorf("reload roll call: %w", err)
		}
	}
	return rollCall, nil
}

func (a *Attendance) ensureEntry(ctx context.Context, st repository.Store, rollCallID, userID uint, coords model.Coordinates) (*model.RollCallEntry, error) {
	entry, err := st.RollCalls().FindEntry(ctx, rollCallID, userID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find roll call entry: %w", err)
	}

	entry = &model.RollCallEntry{
		RollCallID: rollCallID,
		UserID:     userID,
		Status:     model.EntryStatusPresent,
		CheckIn:    a.now(),
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
	}
	if err := st.RollCalls().CreateEntry(ctx, entry); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("create roll call entry: %w", err)
		}
		if entry, err = st.RollCalls().FindEntry(ctx, rollCallID, userID); err != nil {
			return nil, fmt.Errorf("reload roll call entry: %w", err)
		}
	}
	return entry, nil
}
