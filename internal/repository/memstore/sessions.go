package memstore

import (
	"context"
	"sort"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

type sessionRepo struct{ view }

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.do(func(d *data) error {
		session.ID = d.id()
		now := r.now()
		session.CreatedAt, session.UpdatedAt = now, now
		stored := *session
		stored.User = nil
		d.sessions[session.ID] = stored
		return nil
	})
}

func (r *sessionRepo) ListActive(ctx context.Context, userID uint) ([]model.Session, error) {
	var out []model.Session
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.sessions) {
			s := d.sessions[id]
			if s.UserID == userID && s.Active {
				out = append(out, s)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].LoginTime.Before(out[j].LoginTime) })
		return nil
	})
	return out, err
}

func (r *sessionRepo) CloseActive(ctx context.Context, userID uint, at time.Time, coords model.Coordinates) (int64, error) {
	var n int64
	err := r.do(func(d *data) error {
		for id, s := range d.sessions {
			if s.UserID != userID || !s.Active {
				continue
			}
			s.Active = false
			logout := at
			s.LogoutTime = &logout
			s.LogoutLatitude = coords.Latitude
			s.LogoutLongitude = coords.Longitude
			s.UpdatedAt = r.now()
			d.sessions[id] = s
			n++
		}
		return nil
	})
	return n, err
}

func (r *sessionRepo) UpdateActiveLocation(ctx context.Context, userID uint, coords model.Coordinates) (int64, error) {
	var n int64
	err := r.do(func(d *data) error {
		for id, s := range d.sessions {
			if s.UserID != userID || !s.Active {
				continue
			}
			s.Latitude = coords.Latitude
			s.Longitude = coords.Longitude
			s.UpdatedAt = r.now()
			d.sessions[id] = s
			n++
		}
		return nil
	})
	return n, err
}

func (r *sessionRepo) Latest(ctx context.Context, userID uint) (*model.Session, error) {
	var out *model.Session
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.sessions) {
			s := d.sessions[id]
			if s.UserID != userID {
				continue
			}
			if out == nil || !s.LoginTime.Before(out.LoginTime) {
				found := s
				out = &found
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}
