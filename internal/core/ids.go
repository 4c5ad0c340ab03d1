package core

import (
	"fmt"
	"time"

	"motoriz/pkg/domain"
)

// IDStrategy selects how stores issue identifiers.
type IDStrategy string

const (
	IDSequence IDStrategy = "sequence" // 1, 2, 3, ... (default)
	IDClock    IDStrategy = "clock"    // unix milliseconds, bumped to stay strictly increasing
)

// IDGenerator issues the next identifier given the highest one issued so far.
// Implementations must return a value strictly greater than highWater.
type IDGenerator interface {
	Next(highWater domain.ID) domain.ID
}

// SequenceIDs issues highWater+1.
type SequenceIDs struct{}

// Next implements IDGenerator.
func (SequenceIDs) Next(highWater domain.ID) domain.ID { return highWater + 1 }

// ClockIDs issues millisecond timestamps. Two creates within the same
// millisecond still get distinct ids.
type ClockIDs struct {
	Now func() time.Time
}

// Next implements IDGenerator.
func (c ClockIDs) Next(highWater domain.ID) domain.ID {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	id := domain.ID(now().UnixMilli())
	if id <= highWater {
		id = highWater + 1
	}
	return id
}

// NewIDGenerator resolves a strategy name. An empty name selects IDSequence.
func NewIDGenerator(strategy IDStrategy, clock Clock) (IDGenerator, error) {
	switch strategy {
	case "", IDSequence:
		return SequenceIDs{}, nil
	case IDClock:
		if clock == nil {
			clock = systemClock{}
		}
		return ClockIDs{Now: clock.Now}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %s", strategy)
	}
}
