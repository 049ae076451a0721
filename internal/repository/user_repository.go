package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fieldops/internal/model"
)

// UserFilter narrows List results. Zero values are ignored.
type UserFilter struct {
	Role   model.Role
	Region string
	Online *bool
}

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone *string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	MarkOnline(ctx context.Context, id uint, at time.Time) error
	MarkOffline(ctx context.Context, id uint, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete removes the user; sessions and roll-call entries cascade.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier looks a user up by email or phone.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("email = ? OR phone = ?", identifier, identifier).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone *string) (bool, error) {
	if email == nil && phone == nil {
		return false, nil
	}
	q := r.db.WithContext(ctx).Model(&model.User{})
	switch {
	case email != nil && phone != nil:
		q = q.Where("email = ? OR phone = ?", *email, *phone)
	case email != nil:
		q = q.Where("email = ?", *email)
	default:
		q = q.Where("phone = ?", *phone)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	if filter.Online != nil {
		q = q.Where("online = ?", *filter.Online)
	}
	var users []model.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) MarkOnline(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"online": true, "last_login": at}).Error
}

func (r *userRepository) MarkOffline(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"online": false, "last_logout": at}).Error
}
