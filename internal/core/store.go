package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"motoriz/pkg/domain"
)

// createdStamper is implemented by records that carry a creation timestamp.
// Stores stamp it on create and carry it over on update.
type createdStamper[T any] interface {
	Created() time.Time
	WithCreated(time.Time) T
}

// StoreConfig carries the collaborators shared by every store of a service.
type StoreConfig struct {
	IDs     IDGenerator
	Clock   Clock
	Feed    *ChangeFeed
	Metrics *Metrics
	Logger  Logger
}

// Store is the in-memory ordered collection for one record type. Every
// mutation goes through the backend first; local state changes only after the
// backend accepted it.
type Store[T domain.Record[T]] struct {
	entity  domain.EntityType
	backend domain.Backend[T]
	cfg     StoreConfig

	mu        sync.RWMutex
	records   []T
	index     map[domain.ID]int
	highWater domain.ID
	version   uint64
}

// NewStore constructs an empty store over backend. Call Load to hydrate it.
func NewStore[T domain.Record[T]](entity domain.EntityType, backend domain.Backend[T], cfg StoreConfig) *Store[T] {
	if cfg.IDs == nil {
		cfg.IDs = SequenceIDs{}
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	return &Store[T]{
		entity:  entity,
		backend: backend,
		cfg:     cfg,
		index:   make(map[domain.ID]int),
	}
}

// Entity returns the collection name.
func (s *Store[T]) Entity() domain.EntityType { return s.entity }

// Load replaces local state with the backend's records. On error the
// previous state is kept.
func (s *Store[T]) Load(ctx context.Context) error {
	start := time.Now()
	recs, highWater, err := s.backend.Load(ctx)
	s.observe("load", err, start)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.entity, err)
	}
	records := make([]T, 0, len(recs))
	index := make(map[domain.ID]int, len(recs))
	for _, rec := range recs {
		id := rec.RecordID()
		if _, dup := index[id]; dup {
			return fmt.Errorf("load %s: duplicate id %d: %w", s.entity, id, domain.ErrConflict)
		}
		index[id] = len(records)
		records = append(records, clone(rec))
		highWater = max(highWater, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.index = index
	s.highWater = max(s.highWater, highWater)
	s.version++
	return nil
}

// Seed persists recs when the collection is empty. Seed ids are kept; records
// without an id get a fresh one. It reports whether anything was written.
func (s *Store[T]) Seed(ctx context.Context, recs []T) (bool, error) {
	if s.Len() > 0 || len(recs) == 0 {
		return false, nil
	}
	for _, rec := range recs {
		if _, err := s.insert(ctx, rec, rec.RecordID()); err != nil {
			return false, fmt.Errorf("seed %s: %w", s.entity, err)
		}
	}
	s.cfg.Logger.Info("collection seeded", "entity", s.entity, "records", len(recs))
	return true, nil
}

// List returns the collection in insertion order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.records))
	for i, rec := range s.records {
		out[i] = clone(rec)
	}
	return out
}

// Get returns the record with id.
func (s *Store[T]) Get(id domain.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(s.records[i]), true
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases on every committed mutation. Views use it to detect a
// changed collection.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Create assigns a fresh id to fields and appends the record.
func (s *Store[T]) Create(ctx context.Context, fields T) (T, error) {
	return s.insert(ctx, fields, 0)
}

func (s *Store[T]) insert(ctx context.Context, fields T, id domain.ID) (T, error) {
	var zero T
	start := time.Now()
	s.mu.Lock()
	if id == 0 {
		id = s.cfg.IDs.Next(s.highWater)
	}
	if _, dup := s.index[id]; dup {
		s.mu.Unlock()
		return zero, fmt.Errorf("create %s %d: %w", s.entity, id, domain.ErrConflict)
	}
	rec := fields.WithID(id)
	if st, ok := any(rec).(createdStamper[T]); ok && st.Created().IsZero() {
		rec = st.WithCreated(s.cfg.Clock.Now())
	}
	stored, err := s.backend.Create(ctx, rec)
	if err != nil {
		s.mu.Unlock()
		s.observe("create", err, start)
		return zero, fmt.Errorf("create %s: %w", s.entity, err)
	}
	if stored.RecordID() == 0 {
		stored = stored.WithID(id)
	}
	id = stored.RecordID()
	if _, dup := s.index[id]; dup {
		s.mu.Unlock()
		s.observe("create", domain.ErrConflict, start)
		return zero, fmt.Errorf("create %s: backend returned existing id %d: %w", s.entity, id, domain.ErrConflict)
	}
	s.index[id] = len(s.records)
	s.records = append(s.records, stored)
	s.highWater = max(s.highWater, id)
	s.version++
	s.mu.Unlock()

	s.observe("create", nil, start)
	s.publish(domain.ActionCreate, id, nil, &stored)
	s.cfg.Logger.Debug("record created", "entity", s.entity, "id", id)
	return clone(stored), nil
}

// Update replaces the record with id by fields, keeping its position and
// creation time.
func (s *Store[T]) Update(ctx context.Context, id domain.ID, fields T) (T, error) {
	var zero T
	start := time.Now()
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		err := domain.NotFoundError{Entity: s.entity, ID: id}
		s.observe("update", err, start)
		return zero, err
	}
	before := s.records[i]
	rec := fields.WithID(id)
	if prev, ok := any(before).(createdStamper[T]); ok {
		rec = any(rec).(createdStamper[T]).WithCreated(prev.Created())
	}
	stored, err := s.backend.Update(ctx, rec)
	if err != nil {
		s.mu.Unlock()
		s.observe("update", err, start)
		return zero, fmt.Errorf("update %s %d: %w", s.entity, id, err)
	}
	stored = stored.WithID(id)
	s.records[i] = stored
	s.version++
	s.mu.Unlock()

	s.observe("update", nil, start)
	s.publish(domain.ActionUpdate, id, &before, &stored)
	s.cfg.Logger.Debug("record updated", "entity", s.entity, "id", id)
	return clone(stored), nil
}

// Delete removes the record with id.
func (s *Store[T]) Delete(ctx context.Context, id domain.ID) error {
	start := time.Now()
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		err := domain.NotFoundError{Entity: s.entity, ID: id}
		s.observe("delete", err, start)
		return err
	}
	if err := s.backend.Delete(ctx, id); err != nil {
		s.mu.Unlock()
		s.observe("delete", err, start)
		return fmt.Errorf("delete %s %d: %w", s.entity, id, err)
	}
	before := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].RecordID()] = j
	}
	s.version++
	s.mu.Unlock()

	s.observe("delete", nil, start)
	s.publish(domain.ActionDelete, id, &before, nil)
	s.cfg.Logger.Debug("record deleted", "entity", s.entity, "id", id)
	return nil
}

func (s *Store[T]) publish(action domain.Action, id domain.ID, before, after *T) {
	if s.cfg.Feed == nil {
		return
	}
	c := domain.Change{Entity: s.entity, Action: action, ID: id, At: s.cfg.Clock.Now()}
	var err error
	if before != nil {
		if c.Before, err = domain.SnapshotOf(*before); err != nil {
			s.cfg.Logger.Warn("change snapshot failed", "entity", s.entity, "id", id, "error", err)
		}
	}
	if after != nil {
		if c.After, err = domain.SnapshotOf(*after); err != nil {
			s.cfg.Logger.Warn("change snapshot failed", "entity", s.entity, "id", id, "error", err)
		}
	}
	s.cfg.Feed.Publish(c)
}

func (s *Store[T]) observe(op string, err error, start time.Time) {
	s.cfg.Metrics.ObserveStore(s.entity, op, err, time.Since(start))
}

func clone[T domain.Record[T]](rec T) T { return rec.WithID(rec.RecordID()) }
