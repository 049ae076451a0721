package repository

import (
	"context"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = gorm.ErrDuplicatedKey
)

// Store is the persistence port used by the services. Repositories obtained
// from a Store passed to a WithTransaction callback share that transaction.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	RollCalls() RollCallRepository
	Jobs() JobRepository
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository         { return NewUserRepository(s.db) }
func (s *gormStore) Sessions() SessionRepository   { return NewSessionRepository(s.db) }
func (s *gormStore) RollCalls() RollCallRepository { return NewRollCallRepository(s.db) }
func (s *gormStore) Jobs() JobRepository           { return NewJobRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
