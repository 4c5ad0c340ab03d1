// Package form converts records to and from editable drafts and validates
// submitted values before they reach a store.
//
// A Draft keeps every value as entered text so an in-progress edit survives a
// failed submit untouched. Keys are the JSON field names of the record.
package form

import (
	"errors"
	"maps"
	"strconv"
	"strings"

	"motoriz/pkg/domain"
)

// Draft holds the editable values of one record.
type Draft map[string]string

// Get returns the trimmed value for key.
func (d Draft) Get(key string) string { return strings.TrimSpace(d[key]) }

// Set stores value under key.
func (d Draft) Set(key, value string) { d[key] = value }

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	if d == nil {
		return Draft{}
	}
	return maps.Clone(d)
}

// Field describes one editable input.
type Field struct {
	Name     string
	Label    string
	Required bool
}

// Adapter maps a record type to its form.
type Adapter[T any] interface {
	Entity() domain.EntityType
	Fields() []Field
	// ToDraft returns the defaults for a new record when rec is nil and a
	// verbatim copy of rec otherwise.
	ToDraft(rec *T) Draft
	// FromDraft parses and validates d.
	FromDraft(d Draft) (T, error)
	// Validate checks a record decoded from another source.
	Validate(rec T) error
}

// HasField reports whether name is one of the adapter's fields.
func HasField[T any](a Adapter[T], name string) bool {
	for _, f := range a.Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// problems accumulates validation errors in field order.
type problems []error

func (p *problems) add(field, msg string) {
	*p = append(*p, domain.NewValidationError(field, msg))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.Join(p...)
}

// merge appends the problems in other whose field is not already reported.
func (p problems) merge(other problems) problems {
	seen := map[string]bool{}
	for _, err := range p {
		if ve, ok := domain.FirstValidation(err); ok {
			seen[ve.Field] = true
		}
	}
	for _, err := range other {
		if ve, ok := domain.FirstValidation(err); ok && seen[ve.Field] {
			continue
		}
		p = append(p, err)
	}
	return p
}

func (p *problems) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		p.add(field, "is required")
	}
}

func (p *problems) nonNegative(field string, v int64) {
	if v < 0 {
		p.add(field, "must not be negative")
	}
}

// amount parses a whole, non-negative number. Empty input counts as zero when
// optional is set.
func (p *problems) amount(d Draft, field string, optional bool) int64 {
	raw := d.Get(field)
	if raw == "" {
		if !optional {
			p.add(field, "is required")
		}
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.add(field, "must be a whole number")
		return 0
	}
	p.nonNegative(field, n)
	return n
}

func (p *problems) id(d Draft, field string) domain.ID {
	raw := d.Get(field)
	if raw == "" {
		return 0
	}
	id, err := domain.ParseID(raw)
	if err != nil {
		p.add(field, "must be a positive id")
		return 0
	}
	return id
}

func (p *problems) boolean(d Draft, field string, def bool) bool {
	raw := d.Get(field)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.add(field, "must be true or false")
		return def
	}
	return b
}

func idText(id domain.ID) string {
	if id == 0 {
		return ""
	}
	return id.String()
}

func amountText(n int64) string { return strconv.FormatInt(n, 10) }

// List fields hold one entry per line, so entries may contain commas.
func joinList(items []string) string { return strings.Join(items, "\n") }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
