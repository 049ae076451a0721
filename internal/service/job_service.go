package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/notify"
	"fieldops/internal/repository"
	"fieldops/internal/storage"
)

const (
	// MaxPhotosPerUpdate caps the photos attached in a single job update.
	MaxPhotosPerUpdate = 5
	defaultPageSize    = 20
	maxPageSize        = 100
)

// PhotoUpload is one uploaded file read into memory.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// JobQuery filters and paginates job listings. Page starts at 1.
type JobQuery struct {
	TechnicianID *uint
	Region       string
	Status       model.JobStatus
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// JobPage is one page of jobs.
type JobPage struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
	Jobs       []model.Job `json:"jobs"`
}

// JobService exposes job dispatch operations.
type JobService interface {
	Create(ctx context.Context, actorID uint, in JobInput) (job *model.Job, created bool, err error)
	List(ctx context.Context, q JobQuery) (*JobPage, error)
	Get(ctx context.Context, id uint) (*model.Job, error)
	Start(ctx context.Context, id, actorID uint, coords model.Coordinates) (*model.Job, error)
	Update(ctx context.Context, id, actorID uint, in JobUpdate, photos []PhotoUpload) (*model.Job, error)
}

type jobService struct {
	store         repository.Store
	dispatch      *Dispatch
	files         storage.FileStore
	notifier      notify.EscalationNotifier
	maxPhotoWidth int
	now           func() time.Time
}

// NewJobService builds a JobService. notifier may be nil.
func NewJobService(store repository.Store, dispatch *Dispatch, files storage.FileStore, notifier notify.EscalationNotifier, maxPhotoWidth int, now func() time.Time) JobService {
	if now == nil {
		now = time.Now
	}
	return &jobService{
		store:         store,
		dispatch:      dispatch,
		files:         files,
		notifier:      notifier,
		maxPhotoWidth: maxPhotoWidth,
		now:           now,
	}
}

func (s *jobService) Create(ctx context.Context, actorID uint, in JobInput) (*model.Job, bool, error) {
	return s.dispatch.CreateOrMerge(ctx, s.store, actorID, in)
}

func (s *jobService) List(ctx context.Context, q JobQuery) (*JobPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("unknown job status %q", q.Status))
	}

	jobs, total, err := s.store.Jobs().List(ctx, repository.JobFilter{
		TechnicianID: q.TechnicianID,
		Region:       q.Region,
		Status:       q.Status,
		From:         q.From,
		To:           q.To,
		Offset:       (page - 1) * limit,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []model.Job{}
	}

	return &JobPage{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		Jobs:       jobs,
	}, nil
}

func (s *jobService) Get(ctx context.Context, id uint) (*model.Job, error) {
	job, err := s.store.Jobs().FindDetailed(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *jobService) Start(ctx context.Context, id, actorID uint, coords model.Coordinates) (*model.Job, error) {
	return s.dispatch.Start(ctx, s.store, id, actorID, coords)
}

// Update stores the photos first, then applies the update. When the update
// fails, every stored photo is deleted again.
func (s *jobService) Update(ctx context.Context, id, actorID uint, in JobUpdate, photos []PhotoUpload) (*model.Job, error) {
	if len(photos) > MaxPhotosPerUpdate {
		return nil, apperrors.Validation("TOO_MANY_PHOTOS", fmt.Sprintf("at most %d photos per update", MaxPhotosPerUpdate))
	}
	for _, p := range photos {
		if _, ok := storage.PhotoContentType(p.Filename); !ok {
			return nil, apperrors.Validation("INVALID_PHOTO_TYPE", "only jpg, jpeg and png photos are accepted")
		}
	}

	refs, err := s.storePhotos(ctx, id, photos)
	if err != nil {
		return nil, err
	}

	job, previous, err := s.dispatch.Update(ctx, s.store, id, actorID, in, refs)
	if err != nil {
		s.discard(refs)
		return nil, err
	}

	if job.Status == model.JobStatusEscalated && previous != model.JobStatusEscalated {
		s.notifyEscalation(ctx, job.ID, in.Remarks)
	}

	return s.Get(ctx, job.ID)
}

func (s *jobService) storePhotos(ctx context.Context, jobID uint, photos []PhotoUpload) ([]string, error) {
	refs := make([]string, 0, len(photos))
	for _, p := range photos {
		contentType, _ := storage.PhotoContentType(p.Filename)
		data, err := storage.Downscale(p.Data, p.Filename, s.maxPhotoWidth)
		if err != nil {
			s.discard(refs)
			return nil, apperrors.Validation("INVALID_PHOTO", fmt.Sprintf("cannot read photo %q", p.Filename))
		}

		ref, err := s.files.Save(ctx, storage.UploadInput{
			Key:         storage.UniqueFilename(fmt.Sprintf("jobs/%d", jobID), p.Filename, s.now()),
			Body:        data,
			ContentType: contentType,
		})
		if err != nil {
			s.discard(refs)
			return nil, apperrors.Unavailable("PHOTO_STORAGE_FAILED", "photo upload failed", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// discard deletes stored photos on a detached context so a cancelled request
// still cleans up.
func (s *jobService) discard(refs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ref := range refs {
		if err := s.files.Delete(ctx, ref); err != nil {
			log.Warn().Err(err).Str("ref", ref).Msg("failed to delete orphaned photo")
		}
	}
}

func (s *jobService) notifyEscalation(ctx context.Context, jobID uint, remarks string) {
	if s.notifier == nil {
		return
	}
	job, err := s.store.Jobs().FindDetailed(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Uint("job_id", jobID).Msg("escalation notice skipped")
		return
	}
	if err := s.notifier.JobEscalated(ctx, job, remarks); err != nil {
		log.Warn().Err(err).Uint("job_id", jobID).Msg("escalation notice failed")
	}
}
