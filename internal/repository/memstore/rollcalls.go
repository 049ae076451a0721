package memstore

import (
	"context"
	"sort"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

type rollCallRepo struct{ view }

func (r *rollCallRepo) FindByDay(ctx context.Context, day, region string) (*model.RollCall, error) {
	var out *model.RollCall
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.rollCalls) {
			rc := d.rollCalls[id]
			if rc.Day == day && rc.Region == region {
				out = &rc
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *rollCallRepo) Create(ctx context.Context, rollCall *model.RollCall) error {
	return r.do(func(d *data) error {
		for _, rc := range d.rollCalls {
			if rc.Day == rollCall.Day && rc.Region == rollCall.Region {
				return repository.ErrDuplicateKey
			}
		}
		rollCall.ID = d.id()
		rollCall.CreatedAt = r.now()
		stored := *rollCall
		stored.Entries = nil
		d.rollCalls[rollCall.ID] = stored
		return nil
	})
}

func (r *rollCallRepo) FindEntry(ctx context.Context, rollCallID, userID uint) (*model.RollCallEntry, error) {
	var out *model.RollCallEntry
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.entries) {
			e := d.entries[id]
			if e.RollCallID == rollCallID && e.UserID == userID {
				out = &e
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *rollCallRepo) CreateEntry(ctx context.Context, entry *model.RollCallEntry) error {
	return r.do(func(d *data) error {
		for _, e := range d.entries {
			if e.RollCallID == entry.RollCallID && e.UserID == entry.UserID {
				return repository.ErrDuplicateKey
			}
		}
		entry.ID = d.id()
		now := r.now()
		entry.CreatedAt, entry.UpdatedAt = now, now
		stored := *entry
		stored.User = nil
		d.entries[entry.ID] = stored
		return nil
	})
}

func (r *rollCallRepo) UpdateEntry(ctx context.Context, entry *model.RollCallEntry) error {
	return r.do(func(d *data) error {
		if _, ok := d.entries[entry.ID]; !ok {
			return repository.ErrNotFound
		}
		entry.UpdatedAt = r.now()
		stored := *entry
		stored.User = nil
		d.entries[entry.ID] = stored
		return nil
	})
}

func (r *rollCallRepo) List(ctx context.Context, filter repository.RollCallFilter) ([]model.RollCall, error) {
	var out []model.RollCall
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.rollCalls) {
			rc := d.rollCalls[id]
			if filter.Region != "" && rc.Region != filter.Region {
				continue
			}
			if filter.FromDay != "" && rc.Day < filter.FromDay {
				continue
			}
			if filter.ToDay != "" && rc.Day > filter.ToDay {
				continue
			}
			rc.Entries = nil
			for _, eid := range sortedIDs(d.entries) {
				e := d.entries[eid]
				if e.RollCallID != rc.ID {
					continue
				}
				if u, ok := d.users[e.UserID]; ok {
					e.User = &u
				}
				rc.Entries = append(rc.Entries, e)
			}
			sort.SliceStable(rc.Entries, func(i, j int) bool {
				return rc.Entries[i].CheckIn.Before(rc.Entries[j].CheckIn)
			})
			out = append(out, rc)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Day != out[j].Day {
				return out[i].Day > out[j].Day
			}
			return out[i].Region < out[j].Region
		})
		return nil
	})
	return out, err
}
