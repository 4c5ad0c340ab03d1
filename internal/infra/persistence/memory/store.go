// Package memory implements a process-local domain.Backend. It keeps records
// only for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"motoriz/pkg/domain"
)

// Backend stores records in insertion order behind a mutex.
type Backend[T domain.Record[T]] struct {
	mu        sync.RWMutex
	records   []T
	highWater domain.ID
	failNext  error
}

// New returns a backend preloaded with recs.
func New[T domain.Record[T]](recs ...T) *Backend[T] {
	b := &Backend[T]{}
	for _, rec := range recs {
		b.records = append(b.records, rec.WithID(rec.RecordID()))
		b.highWater = max(b.highWater, rec.RecordID())
	}
	return b
}

// FailNext makes the next mutating call return err. Used to exercise the
// store's failure path.
func (b *Backend[T]) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

func (b *Backend[T]) takeFailure() error {
	err := b.failNext
	b.failNext = nil
	return err
}

// Load returns a copy of the stored records.
func (b *Backend[T]) Load(context.Context) ([]T, domain.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.records))
	for i, rec := range b.records {
		out[i] = rec.WithID(rec.RecordID())
	}
	return out, b.highWater, nil
}

// Create appends rec.
func (b *Backend[T]) Create(_ context.Context, rec T) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure(); err != nil {
		var zero T
		return zero, err
	}
	b.records = append(b.records, rec.WithID(rec.RecordID()))
	b.highWater = max(b.highWater, rec.RecordID())
	return rec, nil
}

// Update replaces the record with rec's id.
func (b *Backend[T]) Update(_ context.Context, rec T) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure(); err != nil {
		var zero T
		return zero, err
	}
	for i := range b.records {
		if b.records[i].RecordID() == rec.RecordID() {
			b.records[i] = rec.WithID(rec.RecordID())
			return rec, nil
		}
	}
	var zero T
	return zero, domain.NotFoundError{ID: rec.RecordID()}
}

// Delete removes the record with id.
func (b *Backend[T]) Delete(_ context.Context, id domain.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure(); err != nil {
		return err
	}
	for i := range b.records {
		if b.records[i].RecordID() == id {
			b.records = append(b.records[:i], b.records[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{ID: id}
}

// Len returns the number of stored records.
func (b *Backend[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}
