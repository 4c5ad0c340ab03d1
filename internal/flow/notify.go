package flow

import (
	"errors"
	"sync/atomic"

	"motoriz/pkg/domain"
)

// Level classifies a notice.
type Level string

const (
	Success Level = "success"
	Invalid Level = "validation"
	Missing Level = "not_found"
	Offline Level = "network"
	Failure Level = "error"
)

// Notice is a user facing message raised by the controller.
type Notice struct {
	Level   Level
	Entity  domain.EntityType
	Message string
	Err     error
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

type discard struct{}

func (discard) Notify(Notice) {}

// ChannelNotifier delivers notices to a buffered channel and drops them when
// the reader falls behind.
type ChannelNotifier struct {
	ch      chan Notice
	dropped atomic.Int64
}

// NewChannelNotifier returns a notifier buffering up to size notices.
func NewChannelNotifier(size int) *ChannelNotifier {
	if size <= 0 {
		size = 1
	}
	return &ChannelNotifier{ch: make(chan Notice, size)}
}

// Notify implements Notifier.
func (n *ChannelNotifier) Notify(msg Notice) {
	select {
	case n.ch <- msg:
	default:
		n.dropped.Add(1)
	}
}

// C returns the receive side.
func (n *ChannelNotifier) C() <-chan Notice { return n.ch }

// Dropped returns how many notices were discarded.
func (n *ChannelNotifier) Dropped() int64 { return n.dropped.Load() }

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(Notice)

// Notify implements Notifier.
func (f NotifyFunc) Notify(n Notice) { f(n) }

func noticeFor(entity domain.EntityType, err error) Notice {
	n := Notice{Entity: entity, Message: err.Error(), Err: err}
	switch {
	case errors.Is(err, domain.ErrValidation):
		n.Level = Invalid
		if ve, ok := domain.FirstValidation(err); ok {
			n.Message = ve.Error()
		}
	case errors.Is(err, domain.ErrNotFound):
		n.Level = Missing
	case errors.Is(err, domain.ErrNetwork):
		n.Level = Offline
	default:
		n.Level = Failure
	}
	return n
}
