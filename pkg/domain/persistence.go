package domain

import (
	"context"
	"time"
)

// Backend persists one collection. Stores call the backend before touching
// their own state so a failed call never shows up as a local success.
type Backend[T Record[T]] interface {
	// Load returns the persisted records in insertion order together with the
	// highest id ever issued for the collection (which may exceed every
	// surviving id after deletions).
	Load(ctx context.Context) ([]T, ID, error)
	// Create persists a new record. Backends may assign their own id; a zero
	// id in the returned record means the caller's id is kept.
	Create(ctx context.Context, rec T) (T, error)
	// Update replaces the record with the same id. NotFoundError if absent.
	Update(ctx context.Context, rec T) (T, error)
	// Delete removes the record. NotFoundError if absent.
	Delete(ctx context.Context, id ID) error
}

// Action describes the kind of mutation recorded in a Change.
type Action string

// Supported mutation actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures a committed mutation. Before is zero for creates and After
// is zero for deletes.
type Change struct {
	Entity EntityType    `json:"entity"`
	Action Action        `json:"action"`
	ID     ID            `json:"id"`
	Before ChangePayload `json:"before,omitzero"`
	After  ChangePayload `json:"after,omitzero"`
	At     time.Time     `json:"at"`
}
