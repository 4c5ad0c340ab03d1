// Package sqlstore implements domain.Backend on top of database/sql. Every
// collection shares two tables: records holds one JSON payload per record and
// sequences holds the highest id ever issued per collection, so deleted ids
// survive restarts as used.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"motoriz/pkg/domain"
)

// Dialect captures the few places where SQL engines differ.
type Dialect struct {
	Name string
	// PayloadType is the column type holding the JSON document.
	PayloadType string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses ? placeholders and a BLOB payload.
var SQLite = Dialect{Name: "sqlite", PayloadType: "BLOB", Placeholder: func(int) string { return "?" }}

// Postgres uses $n placeholders and JSONB payloads.
var Postgres = Dialect{Name: "postgres", PayloadType: "JSONB", Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}

// DB is a database handle with its dialect.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*DB, error) {
	d := &DB{db: db, dialect: dialect}
	if err := d.migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// SQL exposes the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS records (
		entity TEXT NOT NULL,
		id BIGINT NOT NULL,
		position BIGINT NOT NULL,
		payload %s NOT NULL,
		PRIMARY KEY (entity, id)
	)`, d.dialect.PayloadType),
		`CREATE TABLE IF NOT EXISTS sequences (
		entity TEXT PRIMARY KEY,
		high_water BIGINT NOT NULL
	)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d.dialect.Name, err)
		}
	}
	return nil
}

// q rewrites ? placeholders for the dialect.
func (d *DB) q(query string) string {
	if d.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Backend persists one collection.
type Backend[T domain.Record[T]] struct {
	db     *DB
	entity domain.EntityType
}

// For returns the backend for entity.
func For[T domain.Record[T]](db *DB, entity domain.EntityType) *Backend[T] {
	return &Backend[T]{db: db, entity: entity}
}

// Load reads the collection ordered by insertion position.
func (b *Backend[T]) Load(ctx context.Context) ([]T, domain.ID, error) {
	rows, err := b.db.db.QueryContext(ctx, b.db.q(`SELECT payload FROM records WHERE entity = ? ORDER BY position`), string(b.entity))
	if err != nil {
		return nil, 0, fmt.Errorf("select %s: %w", b.entity, err)
	}
	defer func() { _ = rows.Close() }()
	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", b.entity, err)
		}
		var rec T
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", b.entity, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", b.entity, err)
	}
	var highWater int64
	err = b.db.db.QueryRowContext(ctx, b.db.q(`SELECT high_water FROM sequences WHERE entity = ?`), string(b.entity)).Scan(&highWater)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("select %s sequence: %w", b.entity, err)
	}
	return out, domain.ID(highWater), nil
}

// Create inserts rec at the end of the collection and raises the sequence.
func (b *Backend[T]) Create(ctx context.Context, rec T) (_ T, retErr error) {
	var zero T
	payload, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", b.entity, err)
	}
	tx, err := b.db.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	var position int64
	if err := tx.QueryRowContext(ctx, b.db.q(`SELECT COALESCE(MAX(position), 0) + 1 FROM records WHERE entity = ?`), string(b.entity)).Scan(&position); err != nil {
		return zero, fmt.Errorf("next position %s: %w", b.entity, err)
	}
	id := int64(rec.RecordID())
	if _, err := tx.ExecContext(ctx, b.db.q(`INSERT INTO records(entity, id, position, payload) VALUES(?, ?, ?, ?)`), string(b.entity), id, position, payload); err != nil {
		return zero, fmt.Errorf("insert %s %d: %w", b.entity, id, err)
	}
	if _, err := tx.ExecContext(ctx, b.db.q(`INSERT INTO sequences(entity, high_water) VALUES(?, ?)
		ON CONFLICT(entity) DO UPDATE SET high_water = CASE WHEN excluded.high_water > sequences.high_water THEN excluded.high_water ELSE sequences.high_water END`), string(b.entity), id); err != nil {
		return zero, fmt.Errorf("advance %s sequence: %w", b.entity, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return rec, nil
}

// Update replaces the payload of rec's row.
func (b *Backend[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	payload, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", b.entity, err)
	}
	res, err := b.db.db.ExecContext(ctx, b.db.q(`UPDATE records SET payload = ? WHERE entity = ? AND id = ?`), payload, string(b.entity), int64(rec.RecordID()))
	if err != nil {
		return zero, fmt.Errorf("update %s %d: %w", b.entity, rec.RecordID(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return zero, domain.NotFoundError{Entity: b.entity, ID: rec.RecordID()}
	}
	return rec, nil
}

// Delete removes the row for id. The sequence is left untouched.
func (b *Backend[T]) Delete(ctx context.Context, id domain.ID) error {
	res, err := b.db.db.ExecContext(ctx, b.db.q(`DELETE FROM records WHERE entity = ? AND id = ?`), string(b.entity), int64(id))
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", b.entity, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Entity: b.entity, ID: id}
	}
	return nil
}
