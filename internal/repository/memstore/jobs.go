package memstore

import (
	"context"
	"sort"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

type jobRepo struct{ view }

func stripJob(j model.Job) model.Job {
	j.Technician, j.Photos, j.History = nil, nil, nil
	return j
}

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	return r.do(func(d *data) error {
		job.ID = d.id()
		now := r.now()
		if job.CreatedAt.IsZero() {
			job.CreatedAt = now
		}
		job.UpdatedAt = now
		if job.Status == "" {
			job.Status = model.JobStatusPending
		}
		d.jobs[job.ID] = stripJob(*job)
		return nil
	})
}

func (r *jobRepo) Update(ctx context.Context, job *model.Job) error {
	return r.do(func(d *data) error {
		if _, ok := d.jobs[job.ID]; !ok {
			return repository.ErrNotFound
		}
		job.UpdatedAt = r.now()
		d.jobs[job.ID] = stripJob(*job)
		return nil
	})
}

func (r *jobRepo) FindByID(ctx context.Context, id uint) (*model.Job, error) {
	var out *model.Job
	err := r.do(func(d *data) error {
		j, ok := d.jobs[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &j
		return nil
	})
	return out, err
}

// FindByIDForUpdate is FindByID; transactions here are already exclusive.
func (r *jobRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Job, error) {
	return r.FindByID(ctx, id)
}

func (r *jobRepo) FindDetailed(ctx context.Context, id uint) (*model.Job, error) {
	var out *model.Job
	err := r.do(func(d *data) error {
		j, ok := d.jobs[id]
		if !ok {
			return repository.ErrNotFound
		}
		j = detail(d, j)
		out = &j
		return nil
	})
	return out, err
}

func (r *jobRepo) LatestByVehicleForUpdate(ctx context.Context, vehicleReg string) (*model.Job, error) {
	var out *model.Job
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.jobs) {
			j := d.jobs[id]
			if j.VehicleReg != vehicleReg {
				continue
			}
			if out == nil || !j.CreatedAt.Before(out.CreatedAt) {
				found := j
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

func (r *jobRepo) FindCurrentForTechnician(ctx context.Context, technicianID uint, since time.Time) (*model.Job, error) {
	var out *model.Job
	err := r.do(func(d *data) error {
		for _, id := range sortedIDs(d.jobs) {
			j := d.jobs[id]
			if j.TechnicianID == nil || *j.TechnicianID != technicianID {
				continue
			}
			if j.ScheduledDate.Before(since) {
				continue
			}
			if j.Status != model.JobStatusPending && j.Status != model.JobStatusInProgress {
				continue
			}
			if out == nil || j.ScheduledDate.Before(out.ScheduledDate) {
				found := j
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

func (r *jobRepo) List(ctx context.Context, filter repository.JobFilter) ([]model.Job, int64, error) {
	var out []model.Job
	var total int64
	err := r.do(func(d *data) error {
		var matched []model.Job
		for _, id := range sortedIDs(d.jobs) {
			j := d.jobs[id]
			if filter.TechnicianID != nil && (j.TechnicianID == nil || *j.TechnicianID != *filter.TechnicianID) {
				continue
			}
			if filter.Region != "" {
				if j.TechnicianID == nil {
					continue
				}
				if u, ok := d.users[*j.TechnicianID]; !ok || u.Region != filter.Region {
					continue
				}
			}
			if filter.Status != "" && j.Status != filter.Status {
				continue
			}
			if filter.From != nil && j.ScheduledDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && j.ScheduledDate.After(*filter.To) {
				continue
			}
			matched = append(matched, j)
		}
		total = int64(len(matched))

		sort.SliceStable(matched, func(a, b int) bool {
			if !matched[a].ScheduledDate.Equal(matched[b].ScheduledDate) {
				return matched[a].ScheduledDate.After(matched[b].ScheduledDate)
			}
			return matched[a].ID > matched[b].ID
		})
		if filter.Limit > 0 {
			start := filter.Offset
			if start > len(matched) {
				start = len(matched)
			}
			end := start + filter.Limit
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[start:end]
		}
		for _, j := range matched {
			out = append(out, detail(d, j))
		}
		return nil
	})
	return out, total, err
}

func (r *jobRepo) AddHistory(ctx context.Context, entry *model.JobHistory) error {
	return r.do(func(d *data) error {
		if _, ok := d.jobs[entry.JobID]; !ok {
			return repository.ErrNotFound
		}
		entry.ID = d.id()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = r.now()
		}
		d.history[entry.ID] = *entry
		return nil
	})
}

func (r *jobRepo) ListHistory(ctx context.Context, jobID uint) ([]model.JobHistory, error) {
	var out []model.JobHistory
	err := r.do(func(d *data) error {
		out = historyOf(d, jobID)
		return nil
	})
	return out, err
}

func (r *jobRepo) AddPhotos(ctx context.Context, photos []model.Photo) error {
	return r.do(func(d *data) error {
		for i := range photos {
			if _, ok := d.jobs[photos[i].JobID]; !ok {
				return repository.ErrNotFound
			}
		}
		for i := range photos {
			photos[i].ID = d.id()
			if photos[i].UploadedAt.IsZero() {
				photos[i].UploadedAt = r.now()
			}
			d.photos[photos[i].ID] = photos[i]
		}
		return nil
	})
}

func detail(d *data, j model.Job) model.Job {
	if j.TechnicianID != nil {
		if u, ok := d.users[*j.TechnicianID]; ok {
			j.Technician = &u
		}
	}
	j.Photos = nil
	for _, id := range sortedIDs(d.photos) {
		if p := d.photos[id]; p.JobID == j.ID {
			j.Photos = append(j.Photos, p)
		}
	}
	sort.SliceStable(j.Photos, func(a, b int) bool { return j.Photos[a].UploadedAt.Before(j.Photos[b].UploadedAt) })
	j.History = historyOf(d, j.ID)
	return j
}

func historyOf(d *data, jobID uint) []model.JobHistory {
	var out []model.JobHistory
	for _, id := range sortedIDs(d.history) {
		if h := d.history[id]; h.JobID == jobID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}
