package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops/internal/cache"
	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/phone"
	"fieldops/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UpdateUserInput holds the editable user fields; nil leaves a field unchanged.
type UpdateUserInput struct {
	Name   *string
	Phone  *string
	Role   *model.Role
	Region *string
}

// UserService exposes user administration.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("NAME_REQUIRED", "name cannot be empty")
		}
		user.Name = name
	}
	if in.Phone != nil {
		if !phone.Valid(*in.Phone) {
			return nil, apperrors.ErrInvalidPhone
		}
		normalized := phone.Normalize(*in.Phone)
		user.Phone = &normalized
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.Validation("INVALID_ROLE", fmt.Sprintf("unknown role %q", *in.Role))
		}
		user.Role = *in.Role
	}
	if in.Region != nil {
		user.Region = strings.TrimSpace(*in.Region)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return user, nil
}

// DeleteUser removes the user; sessions and roll-call entries go with it.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}
