package core

import (
	"slices"
	"strings"
	"sync"

	"motoriz/pkg/domain"
)

// FieldsFunc returns the searchable text fields of a record.
type FieldsFunc[T any] func(T) []string

// Filter returns the records any of whose fields contains query, compared
// case-insensitively. Order is preserved and items is never modified. An
// empty query matches everything.
func Filter[T any](items []T, query string, fields FieldsFunc[T]) []T {
	if query == "" {
		return slices.Clone(items)
	}
	q := strings.ToLower(query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(fields(item), q) {
			out = append(out, item)
		}
	}
	return out
}

func matches(fields []string, lowered string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), lowered) {
			return true
		}
	}
	return false
}

// Where returns the items for which keep reports true, preserving order.
func Where[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Versioned reports a counter that changes on every mutation.
type Versioned interface {
	Version() uint64
}

// source is the read side of a Store used by View.
type source[T any] interface {
	List() []T
	Versioned
}

// View is a memoized filtered list over a store. The cached result is reused
// only while the query and the versions of the store and of every dependency
// are unchanged.
type View[T domain.Record[T]] struct {
	src    source[T]
	deps   []Versioned
	fields FieldsFunc[T]

	mu          sync.Mutex
	query       string
	cachedQuery string
	versions    []uint64
	cached      []T
	computed    bool
	computes    int
}

// NewView returns a view over src searching the given fields. deps are the
// other stores the fields read from, such as categories for product search.
func NewView[T domain.Record[T]](src source[T], fields FieldsFunc[T], deps ...Versioned) *View[T] {
	return &View[T]{src: src, fields: fields, deps: deps}
}

// SetQuery changes the search text.
func (v *View[T]) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

// Query returns the current search text.
func (v *View[T]) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Items returns the filtered records for the current query.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	versions := v.stamp()
	if !v.computed || !slices.Equal(versions, v.versions) || v.cachedQuery != v.query {
		v.recompute(versions)
	}
	out := make([]T, len(v.cached))
	for i, rec := range v.cached {
		out[i] = clone(rec)
	}
	return out
}

func (v *View[T]) stamp() []uint64 {
	out := make([]uint64, 0, len(v.deps)+1)
	out = append(out, v.src.Version())
	for _, d := range v.deps {
		out = append(out, d.Version())
	}
	return out
}

func (v *View[T]) recompute(versions []uint64) {
	v.cached = Filter(v.src.List(), v.query, v.fields)
	v.versions = versions
	v.cachedQuery = v.query
	v.computed = true
	v.computes++
}
