package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChangePayload is an immutable JSON snapshot of a record carried by a
// Change. The zero value means "no snapshot" (Before of a create, After of a
// delete).
type ChangePayload struct {
	raw json.RawMessage
}

// SnapshotOf marshals rec into a payload.
func SnapshotOf[T any](rec T) (ChangePayload, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return ChangePayload{}, fmt.Errorf("snapshot: %w", err)
	}
	return ChangePayload{raw: raw}, nil
}

// IsZero reports whether the payload holds no snapshot.
func (p ChangePayload) IsZero() bool { return len(p.raw) == 0 }

// Raw returns a copy of the JSON bytes, nil for the zero payload.
func (p ChangePayload) Raw() json.RawMessage {
	if p.IsZero() {
		return nil
	}
	return bytes.Clone(p.raw)
}

// Decode unmarshals the snapshot into dst.
func (p ChangePayload) Decode(dst any) error {
	if p.IsZero() {
		return fmt.Errorf("snapshot: empty payload")
	}
	return json.Unmarshal(p.raw, dst)
}

// MarshalJSON emits the snapshot verbatim, or null.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return bytes.Clone(p.raw), nil
}

// UnmarshalJSON keeps a copy of data. null yields the zero payload.
func (p *ChangePayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.raw = nil
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("snapshot: invalid JSON")
	}
	p.raw = bytes.Clone(data)
	return nil
}
