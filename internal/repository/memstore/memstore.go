// Package memstore is an in-memory repository.Store. It enforces the same
// unique indexes as the SQL schema and runs transactions serially with
// rollback on error, which makes it a drop-in fake for service tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

type data struct {
	nextID    uint
	users     map[uint]model.User
	sessions  map[uint]model.Session
	rollCalls map[uint]model.RollCall
	entries   map[uint]model.RollCallEntry
	jobs      map[uint]model.Job
	history   map[uint]model.JobHistory
	photos    map[uint]model.Photo
}

func newData() *data {
	return &data{
		users:     map[uint]model.User{},
		sessions:  map[uint]model.Session{},
		rollCalls: map[uint]model.RollCall{},
		entries:   map[uint]model.RollCallEntry{},
		jobs:      map[uint]model.Job{},
		history:   map[uint]model.JobHistory{},
		photos:    map[uint]model.Photo{},
	}
}

func (d *data) clone() *data {
	c := &data{
		nextID:    d.nextID,
		users:     make(map[uint]model.User, len(d.users)),
		sessions:  make(map[uint]model.Session, len(d.sessions)),
		rollCalls: make(map[uint]model.RollCall, len(d.rollCalls)),
		entries:   make(map[uint]model.RollCallEntry, len(d.entries)),
		jobs:      make(map[uint]model.Job, len(d.jobs)),
		history:   make(map[uint]model.JobHistory, len(d.history)),
		photos:    make(map[uint]model.Photo, len(d.photos)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.rollCalls {
		c.rollCalls[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	for k, v := range d.history {
		c.history[k] = v
	}
	for k, v := range d.photos {
		c.photos[k] = v
	}
	return c
}

func (d *data) id() uint {
	d.nextID++
	return d.nextID
}

// Store is an in-memory repository.Store.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    *data

	// Now stamps CreatedAt/UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{d: newData(), Now: time.Now}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{view{s: s, outer: true}}
}

func (s *Store) Sessions() repository.SessionRepository {
	return &sessionRepo{view{s: s, outer: true}}
}

func (s *Store) RollCalls() repository.RollCallRepository {
	return &rollCallRepo{view{s: s, outer: true}}
}

func (s *Store) Jobs() repository.JobRepository {
	return &jobRepo{view{s: s, outer: true}}
}

// WithTransaction runs fn with exclusive access; every write made through the
// transaction store is discarded when fn returns an error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(ctx, &txStore{s: s}); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type txStore struct {
	s *Store
}

func (t *txStore) Users() repository.UserRepository         { return &userRepo{view{s: t.s}} }
func (t *txStore) Sessions() repository.SessionRepository   { return &sessionRepo{view{s: t.s}} }
func (t *txStore) RollCalls() repository.RollCallRepository { return &rollCallRepo{view{s: t.s}} }
func (t *txStore) Jobs() repository.JobRepository           { return &jobRepo{view{s: t.s}} }

// WithTransaction nests into the already open transaction.
func (t *txStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return fn(ctx, t)
}

// view serialises a single operation. Outer views also wait for any running transaction.
type view struct {
	s     *Store
	outer bool
}

func (v view) do(fn func(d *data) error) error {
	if v.outer {
		v.s.txMu.Lock()
		defer v.s.txMu.Unlock()
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.d)
}

func (v view) now() time.Time {
	if v.s.Now == nil {
		return time.Now()
	}
	return v.s.Now()
}
