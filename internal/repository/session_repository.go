package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fieldops/internal/model"
)

// SessionRepository defines session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	ListActive(ctx context.Context, userID uint) ([]model.Session, error)
	CloseActive(ctx context.Context, userID uint, at time.Time, coords model.Coordinates) (int64, error)
	UpdateActiveLocation(ctx context.Context, userID uint, coords model.Coordinates) (int64, error)
	Latest(ctx context.Context, userID uint) (*model.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) ListActive(ctx context.Context, userID uint) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("login_time ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseActive deactivates every active session of the user and returns how many were closed.
func (r *sessionRepository) CloseActive(ctx context.Context, userID uint, at time.Time, coords model.Coordinates) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]interface{}{
			"active":           false,
			"logout_time":      at,
			"logout_latitude":  coords.Latitude,
			"logout_longitude": coords.Longitude,
		})
	return res.RowsAffected, res.Error
}

// UpdateActiveLocation stores the latest GPS reading on the user's active sessions.
func (r *sessionRepository) UpdateActiveLocation(ctx context.Context, userID uint, coords model.Coordinates) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]interface{}{
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
		})
	return res.RowsAffected, res.Error
}

// Latest returns the most recent session of the user.
func (r *sessionRepository) Latest(ctx context.Context, userID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_time DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
