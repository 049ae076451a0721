package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldops/internal/model"
)

// JobFilter narrows job listings. Zero values are ignored; Limit 0 returns every match.
type JobFilter struct {
	TechnicianID *uint
	Region       string
	Status       model.JobStatus
	From         *time.Time
	To           *time.Time
	Offset       int
	Limit        int
}

// JobRepository defines job persistence operations, including history and photos.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	Update(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id uint) (*model.Job, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Job, error)
	FindDetailed(ctx context.Context, id uint) (*model.Job, error)
	LatestByVehicleForUpdate(ctx context.Context, vehicleReg string) (*model.Job, error)
	FindCurrentForTechnician(ctx context.Context, technicianID uint, since time.Time) (*model.Job, error)
	List(ctx context.Context, filter JobFilter) ([]model.Job, int64, error)
	AddHistory(ctx context.Context, entry *model.JobHistory) error
	ListHistory(ctx context.Context, jobID uint) ([]model.JobHistory, error)
	AddPhotos(ctx context.Context, photos []model.Photo) error
}

type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error
}

func (r *jobRepository) Update(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(job).Error
}

func (r *jobRepository) FindByID(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByIDForUpdate finds a job by ID with a row-level lock.
func (r *jobRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindDetailed loads a job with technician, photos and ordered history.
func (r *jobRepository) FindDetailed(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).
		Preload("Technician").
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// LatestByVehicleForUpdate returns the newest job for the vehicle and locks it
// until the surrounding transaction ends.
func (r *jobRepository) LatestByVehicleForUpdate(ctx context.Context, vehicleReg string) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vehicle_reg = ?", vehicleReg).
		Order("created_at DESC, id DESC").
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindCurrentForTechnician returns the earliest open job scheduled at or after since.
func (r *jobRepository) FindCurrentForTechnician(ctx context.Context, technicianID uint, since time.Time) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).
		Where("technician_id = ? AND scheduled_date >= ?", technicianID, since).
		Where("status IN ?", []model.JobStatus{model.JobStatusPending, model.JobStatusInProgress}).
		Order("scheduled_date ASC, id ASC").
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) List(ctx context.Context, filter JobFilter) ([]model.Job, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Job{})
	if filter.TechnicianID != nil {
		q = q.Where("jobs.technician_id = ?", *filter.TechnicianID)
	}
	if filter.Region != "" {
		q = q.Joins("JOIN users ON users.id = jobs.technician_id").Where("users.region = ?", filter.Region)
	}
	if filter.Status != "" {
		q = q.Where("jobs.status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("jobs.scheduled_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("jobs.scheduled_date <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Preload("Technician").Preload("Photos").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("jobs.scheduled_date DESC, jobs.id DESC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}

	var jobs []model.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *jobRepository) AddHistory(ctx context.Context, entry *model.JobHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *jobRepository) ListHistory(ctx context.Context, jobID uint) ([]model.JobHistory, error) {
	var history []model.JobHistory
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (r *jobRepository) AddPhotos(ctx context.Context, photos []model.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&photos).Error
}
