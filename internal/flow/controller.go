// Package flow implements the add/edit/delete dialog state machine that sits
// between a form and an entity store.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"motoriz/internal/form"
	"motoriz/pkg/domain"
)

// ErrAlreadyOpen is returned when a dialog is opened while another is active.
var ErrAlreadyOpen = errors.New("flow: dialog already open")

// ErrClosed is returned by operations that need an open dialog.
var ErrClosed = errors.New("flow: no dialog open")

// Mode is the dialog state.
type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "create"
	case Editing:
		return "edit"
	default:
		return "closed"
	}
}

// State is a snapshot of the controller. ID is set while Editing.
type State struct {
	Mode Mode
	ID   domain.ID
}

// Repository is the store surface the controller drives.
type Repository[T any] interface {
	Get(id domain.ID) (T, bool)
	Create(ctx context.Context, fields T) (T, error)
	Update(ctx context.Context, id domain.ID, fields T) (T, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Controller runs one dialog at a time for a single collection.
type Controller[T any] struct {
	entity  domain.EntityType
	repo    Repository[T]
	adapter form.Adapter[T]
	confirm Confirmer
	notify  Notifier

	mu      sync.Mutex
	state   State
	draft   form.Draft
	lastErr error
}

// New returns a closed controller. A nil confirmer declines every delete and
// a nil notifier discards notices.
func New[T any](repo Repository[T], adapter form.Adapter[T], confirm Confirmer, notify Notifier) *Controller[T] {
	if confirm == nil {
		confirm = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	}
	if notify == nil {
		notify = discard{}
	}
	return &Controller[T]{entity: adapter.Entity(), repo: repo, adapter: adapter, confirm: confirm, notify: notify}
}

// State returns the current dialog state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the active draft, or nil when closed.
func (c *Controller[T]) Draft() form.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode == Closed {
		return nil
	}
	return c.draft.Clone()
}

// Err returns the error surfaced by the last failed operation.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Fields lists the form inputs.
func (c *Controller[T]) Fields() []form.Field { return c.adapter.Fields() }

// OpenForCreate opens an empty dialog seeded with the form defaults.
func (c *Controller[T]) OpenForCreate() (form.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Closed {
		return nil, ErrAlreadyOpen
	}
	c.state = State{Mode: Creating}
	c.draft = c.adapter.ToDraft(nil)
	c.lastErr = nil
	return c.draft.Clone(), nil
}

// OpenForEdit opens the dialog for record id. A stale id surfaces a
// NotFoundError and leaves the controller closed.
func (c *Controller[T]) OpenForEdit(id domain.ID) (form.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Closed {
		return nil, ErrAlreadyOpen
	}
	rec, ok := c.repo.Get(id)
	if !ok {
		err := domain.NotFoundError{Entity: c.entity, ID: id}
		c.lastErr = err
		c.notify.Notify(noticeFor(c.entity, err))
		return nil, err
	}
	c.state = State{Mode: Editing, ID: id}
	c.draft = c.adapter.ToDraft(&rec)
	c.lastErr = nil
	return c.draft.Clone(), nil
}

// Set changes one value of the active draft.
func (c *Controller[T]) Set(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode == Closed {
		return ErrClosed
	}
	if !form.HasField(c.adapter, field) {
		return domain.NewValidationError(field, "unknown field")
	}
	c.draft.Set(field, value)
	return nil
}

// Cancel closes the dialog and discards the draft.
func (c *Controller[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
	c.draft = nil
	c.lastErr = nil
}

// Submit validates draft and writes it to the repository. A nil draft submits
// the active one. On validation or backend failure the dialog stays open
// holding the submitted values. An edit whose record no longer exists closes
// the dialog.
func (c *Controller[T]) Submit(ctx context.Context, draft form.Draft) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if c.state.Mode == Closed {
		return zero, ErrClosed
	}
	if draft != nil {
		c.draft = draft.Clone()
	}
	fields, err := c.adapter.FromDraft(c.draft)
	if err != nil {
		return zero, c.fail(err)
	}
	var saved T
	switch c.state.Mode {
	case Creating:
		saved, err = c.repo.Create(ctx, fields)
	case Editing:
		saved, err = c.repo.Update(ctx, c.state.ID, fields)
	}
	if err != nil {
		if c.state.Mode == Editing && errors.Is(err, domain.ErrNotFound) {
			c.state = State{}
			c.draft = nil
		}
		return zero, c.fail(err)
	}
	verb := "created"
	if c.state.Mode == Editing {
		verb = "updated"
	}
	c.state = State{}
	c.draft = nil
	c.lastErr = nil
	c.notify.Notify(Notice{Level: Success, Entity: c.entity, Message: fmt.Sprintf("%s %s", c.entity, verb)})
	return saved, nil
}

func (c *Controller[T]) fail(err error) error {
	c.lastErr = err
	c.notify.Notify(noticeFor(c.entity, err))
	return err
}

// Delete removes record id after the confirmer approves. It reports whether a
// record was deleted; a declined prompt returns false and no error.
func (c *Controller[T]) Delete(ctx context.Context, id domain.ID) (bool, error) {
	ok, err := c.confirm.Confirm(ctx, fmt.Sprintf("Hapus %s %d?", c.entity, id))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		c.notify.Notify(noticeFor(c.entity, err))
		return false, err
	}
	c.notify.Notify(Notice{Level: Success, Entity: c.entity, Message: fmt.Sprintf("%s %d deleted", c.entity, id)})
	return true, nil
}
