package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// JobFields are the optional job attributes shared by create and update.
// Empty values leave the current value untouched when merging.
type JobFields struct {
	JobType        string
	ScheduledDate  *time.Time
	Location       string
	Site           model.Coordinates
	TechnicianID   *uint
	ClientName     string
	ClientPhone    string
	GovernorSerial string
	GovernorStatus string
	Notes          string
	Remarks        string
}

// JobInput is a create-or-merge request.
type JobInput struct {
	VehicleReg string
	Status     model.JobStatus
	JobFields
}

// JobUpdate is an update request. A nil Status keeps the current one.
type JobUpdate struct {
	Status *model.JobStatus
	JobFields
	Coords model.Coordinates
}

// Dispatch guards "one open job per vehicle" and records every status change
// in the job history.
type Dispatch struct {
	sessions *Sessions
	now      func() time.Time
}

// NewDispatch builds the gate. Job starts ping the actor's session through sessions.
func NewDispatch(sessions *Sessions, now func() time.Time) *Dispatch {
	if now == nil {
		now = time.Now
	}
	return &Dispatch{sessions: sessions, now: now}
}

// NormalizeVehicleReg upper-cases a registration and collapses inner spaces.
func NormalizeVehicleReg(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), " "))
}

// CreateOrMerge creates a job unless the vehicle's latest job is still open.
// An open job plus a PENDING request is a duplicate; any other requested
// status is merged into the open job. The read and the write share one
// transaction holding a lock on the latest row. created reports whether a
// new row was inserted.
func (d *Dispatch) CreateOrMerge(ctx context.Context, st repository.Store, actorID uint, in JobInput) (job *model.Job, created bool, err error) {
	in.VehicleReg = NormalizeVehicleReg(in.VehicleReg)
	if in.VehicleReg == "" {
		return nil, false, apperrors.Validation("VEHICLE_REG_REQUIRED", "vehicleReg is required")
	}
	if in.Status == "" {
		in.Status = model.JobStatusPending
	}
	if !in.Status.Valid() {
		return nil, false, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("unknown job status %q", in.Status))
	}

	err = st.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := checkTechnician(ctx, tx, in.TechnicianID); err != nil {
			return err
		}

		latest, err := tx.Jobs().LatestByVehicleForUpdate(ctx, in.VehicleReg)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find latest job: %w", err)
		}

		if latest != nil && latest.Status.Open() {
			if in.Status == model.JobStatusPending {
				log.Debug().Str("vehicle_reg", in.VehicleReg).Uint("job_id", latest.ID).Msg("duplicate job blocked")
				return &apperrors.DuplicateJobError{VehicleReg: in.VehicleReg, JobID: latest.ID, Status: string(latest.Status)}
			}
			job, err = d.merge(ctx, tx, latest, actorID, &in.Status, in.JobFields, model.Coordinates{}, "Merged into open job")
			return err
		}

		job, err = d.create(ctx, tx, actorID, in)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return job, created, nil
}

func (d *Dispatch) create(ctx context.Context, tx repository.Store, actorID uint, in JobInput) (*model.Job, error) {
	if strings.TrimSpace(in.JobType) == "" {
		return nil, apperrors.Validation("JOB_TYPE_REQUIRED", "jobType is required")
	}
	if in.ScheduledDate == nil || in.ScheduledDate.IsZero() {
		return nil, apperrors.Validation("SCHEDULED_DATE_REQUIRED", "scheduledDate is required")
	}

	job := &model.Job{VehicleReg: in.VehicleReg, Status: in.Status}
	applyFields(job, in.JobFields)
	if err := tx.Jobs().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := d.appendHistory(ctx, tx, job, actorID, "Job created", model.Coordinates{}); err != nil {
		return nil, err
	}
	return job, nil
}

// Start moves the job to IN_PROGRESS, logs "Job started" and records the
// actor's position on their session.
func (d *Dispatch) Start(ctx context.Context, st repository.Store, jobID, actorID uint, coords model.Coordinates) (*model.Job, error) {
	var job *model.Job
	err := st.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if err := checkTransition(current.Status, model.JobStatusInProgress); err != nil {
			return err
		}

		current.Status = model.JobStatusInProgress
		if err := tx.Jobs().Update(ctx, current); err != nil {
			return fmt.Errorf("start job: %w", err)
		}
		if err := d.appendHistory(ctx, tx, current, actorID, "Job started", coords); err != nil {
			return err
		}
		if err := d.sessions.Ping(ctx, tx, actorID, coords); err != nil {
			return err
		}
		job = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Update merges the request into the job, logs the resulting status with the
// actor's coordinates, attaches photo references and refreshes the actor's
// session position. It also returns the status the job had before.
func (d *Dispatch) Update(ctx context.Context, st repository.Store, jobID, actorID uint, in JobUpdate, photoRefs []string) (*model.Job, model.JobStatus, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, "", apperrors.Validation("INVALID_STATUS", fmt.Sprintf("unknown job status %q", *in.Status))
	}

	var (
		job      *model.Job
		previous model.JobStatus
	)
	err := st.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := checkTechnician(ctx, tx, in.TechnicianID); err != nil {
			return err
		}
		current, err := lockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		previous = current.Status

		job, err = d.merge(ctx, tx, current, actorID, in.Status, in.JobFields, in.Coords, in.Remarks)
		if err != nil {
			return err
		}

		if len(photoRefs) > 0 {
			now := d.now()
			photos := make([]model.Photo, 0, len(photoRefs))
			for _, ref := range photoRefs {
				photos = append(photos, model.Photo{JobID: job.ID, URL: ref, UploadedAt: now})
			}
			if err := tx.Jobs().AddPhotos(ctx, photos); err != nil {
				return fmt.Errorf("attach photos: %w", err)
			}
		}

		return d.sessions.UpdateLocation(ctx, tx, actorID, in.Coords)
	})
	if err != nil {
		return nil, "", err
	}
	return job, previous, nil
}

// merge applies fields and an optional status change to job and appends a
// history entry carrying the resulting status.
func (d *Dispatch) merge(ctx context.Context, tx repository.Store, job *model.Job, actorID uint, status *model.JobStatus, fields JobFields, coords model.Coordinates, remarks string) (*model.Job, error) {
	if status != nil && *status != "" {
		if err := checkTransition(job.Status, *status); err != nil {
			return nil, err
		}
		job.Status = *status
	}
	applyFields(job, fields)

	if err := tx.Jobs().Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := d.appendHistory(ctx, tx, job, actorID, remarks, coords); err != nil {
		return nil, err
	}
	return job, nil
}

func (d *Dispatch) appendHistory(ctx context.Context, tx repository.Store, job *model.Job, actorID uint, remarks string, coords model.Coordinates) error {
	entry := &model.JobHistory{
		JobID:     job.ID,
		Status:    job.Status,
		Remarks:   remarks,
		UpdatedBy: actorID,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		CreatedAt: d.now(),
	}
	if err := tx.Jobs().AddHistory(ctx, entry); err != nil {
		return fmt.Errorf("append job history: %w", err)
	}
	return nil
}

func applyFields(job *model.Job, f JobFields) {
	if f.JobType != "" {
		job.JobType = strings.TrimSpace(f.JobType)
	}
	if f.ScheduledDate != nil && !f.ScheduledDate.IsZero() {
		job.ScheduledDate = *f.ScheduledDate
	}
	if f.Location != "" {
		job.Location = f.Location
	}
	if f.Site.Present() {
		job.SiteLatitude = f.Site.Latitude
		job.SiteLongitude = f.Site.Longitude
	}
	if f.TechnicianID != nil {
		job.TechnicianID = f.TechnicianID
	}
	if f.ClientName != "" {
		job.ClientName = f.ClientName
	}
	if f.ClientPhone != "" {
		job.ClientPhone = f.ClientPhone
	}
	if f.GovernorSerial != "" {
		job.GovernorSerial = f.GovernorSerial
	}
	if f.GovernorStatus != "" {
		job.GovernorStatus = f.GovernorStatus
	}
	if f.Notes != "" {
		job.Notes = f.Notes
	}
	if f.Remarks != "" {
		job.Remarks = f.Remarks
	}
}

func checkTransition(from, to model.JobStatus) error {
	if !from.CanTransitionTo(to) {
		return &apperrors.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

func checkTechnician(ctx context.Context, tx repository.Store, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := tx.Users().FindByID(ctx, *id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("TECHNICIAN_NOT_FOUND", "assigned technician not found")
		}
		return fmt.Errorf("find technician: %w", err)
	}
	return nil
}

func lockJob(ctx context.Context, tx repository.Store, id uint) (*model.Job, error) {
	job, err := tx.Jobs().FindByIDForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return job, nil
}
