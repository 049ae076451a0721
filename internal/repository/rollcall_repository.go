package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldops/internal/model"
)

// RollCallFilter narrows roll-call history. Days are YYYY-MM-DD and inclusive.
type RollCallFilter struct {
	Region  string
	FromDay string
	ToDay   string
}

// RollCallRepository defines roll-call persistence operations.
type RollCallRepository interface {
	FindByDay(ctx context.Context, day, region string) (*model.RollCall, error)
	Create(ctx context.Context, rollCall *model.RollCall) error
	FindEntry(ctx context.Context, rollCallID, userID uint) (*model.RollCallEntry, error)
	CreateEntry(ctx context.Context, entry *model.RollCallEntry) error
	UpdateEntry(ctx context.Context, entry *model.RollCallEntry) error
	List(ctx context.Context, filter RollCallFilter) ([]model.RollCall, error)
}

type rollCallRepository struct {
	db *gorm.DB
}

// NewRollCallRepository creates a new roll-call repository.
func NewRollCallRepository(db *gorm.DB) RollCallRepository {
	return &rollCallRepository{db: db}
}

func (r *rollCallRepository) FindByDay(ctx context.Context, day, region string) (*model.RollCall, error) {
	var rollCall model.RollCall
	if err := r.db.WithContext(ctx).
		Where("day = ? AND region = ?", day, region).
		First(&rollCall).Error; err != nil {
		return nil, err
	}
	return &rollCall, nil
}

// Create inserts the roll call, or returns ErrDuplicateKey when one already
// exists for the day and region. The conflict does not abort an open transaction.
func (r *rollCallRepository) Create(ctx context.Context, rollCall *model.RollCall) error {
	return insertOrConflict(r.db.WithContext(ctx), rollCall)
}

func (r *rollCallRepository) FindEntry(ctx context.Context, rollCallID, userID uint) (*model.RollCallEntry, error) {
	var entry model.RollCallEntry
	if err := r.db.WithContext(ctx).
		Where("roll_call_id = ? AND user_id = ?", rollCallID, userID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateEntry inserts the entry, or returns ErrDuplicateKey when the user is
// already on the roll call.
func (r *rollCallRepository) CreateEntry(ctx context.Context, entry *model.RollCallEntry) error {
	return insertOrConflict(r.db.WithContext(ctx).Omit(clause.Associations), entry)
}

func insertOrConflict(db *gorm.DB, value interface{}) error {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (r *rollCallRepository) UpdateEntry(ctx context.Context, entry *model.RollCallEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(entry).Error
}

func (r *rollCallRepository) List(ctx context.Context, filter RollCallFilter) ([]model.RollCall, error) {
	q := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("check_in ASC") }).
		Preload("Entries.User").
		Order("day DESC, region ASC")
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	if filter.FromDay != "" {
		q = q.Where("day >= ?", filter.FromDay)
	}
	if filter.ToDay != "" {
		q = q.Where("day <= ?", filter.ToDay)
	}
	var rollCalls []model.RollCall
	if err := q.Find(&rollCalls).Error; err != nil {
		return nil, err
	}
	return rollCalls, nil
}
