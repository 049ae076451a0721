package memstore

import (
	"context"
	"sort"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

type userRepo struct{ view }

func sameString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (r *userRepo) unique(d *data, u *model.User) error {
	for id, other := range d.users {
		if id == u.ID {
			continue
		}
		if sameString(other.Email, u.Email) || sameString(other.Phone, u.Phone) {
			return repository.ErrDuplicateKey
		}
	}
	return nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.do(func(d *data) error {
		if err := r.unique(d, user); err != nil {
			return err
		}
		user.ID = d.id()
		now := r.now()
		user.CreatedAt, user.UpdatedAt = now, now
		stored := *user
		stored.Sessions, stored.Entries = nil, nil
		d.users[user.ID] = stored
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.do(func(d *data) error {
		if _, ok := d.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := r.unique(d, user); err != nil {
			return err
		}
		user.UpdatedAt = r.now()
		stored := *user
		stored.Sessions, stored.Entries = nil, nil
		d.users[user.ID] = stored
		return nil
	})
}

func (r *userRepo) Delete(ctx context.Context, id uint) error {
	return r.do(func(d *data) error {
		if _, ok := d.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.users, id)
		for sid, s := range d.sessions {
			if s.UserID == id {
				delete(d.sessions, sid)
			}
		}
		for eid, e := range d.entries {
			if e.UserID == id {
				delete(d.entries, eid)
			}
		}
		for jid, j := range d.jobs {
			if j.TechnicianID != nil && *j.TechnicianID == id {
				j.TechnicianID = nil
				d.jobs[jid] = j
			}
		}
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var out *model.User
	err := r.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var out *model.User
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.users) {
			u := d.users[id]
			if sameString(u.Email, &identifier) || sameString(u.Phone, &identifier) {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone *string) (bool, error) {
	var exists bool
	err := r.do(func(d *data) error {
		for _, u := range d.users {
			if sameString(u.Email, email) || sameString(u.Phone, phone) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	var out []model.User
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.users) {
			u := d.users[id]
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if filter.Region != "" && u.Region != filter.Region {
				continue
			}
			if filter.Online != nil && u.Online != *filter.Online {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	return out, err
}

func (r *userRepo) MarkOnline(ctx context.Context, id uint, at time.Time) error {
	return r.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return nil
		}
		u.Online = true
		u.LastLogin = &at
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) MarkOffline(ctx context.Context, id uint, at time.Time) error {
	return r.do(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return nil
		}
		u.Online = false
		u.LastLogout = &at
		d.users[id] = u
		return nil
	})
}

func sortedIDs[V any](m map[uint]V) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
