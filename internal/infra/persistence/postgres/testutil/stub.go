// Package testutil provides a recording database/sql driver so the postgres
// dialect can be exercised without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq atomic.Int64

// Statement is one recorded query with its bind arguments.
type Statement struct {
	Query string
	Args  []any
}

// StubConn records every statement it receives and answers the handful of
// queries sqlstore issues.
type StubConn struct {
	mu         sync.Mutex
	Statements []Statement
	// FailOn makes any statement containing it fail.
	FailOn string
	// FailPing makes Ping fail.
	FailPing bool
	// Missing reports zero affected rows for UPDATE and DELETE.
	Missing bool
	// Payloads are returned by SELECT payload queries.
	Payloads [][]byte
	// HighWater is returned by the sequence query when non-zero.
	HighWater int64
}

// NewStubDB registers a fresh driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Queries returns the recorded statements' text.
func (c *StubConn) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Statements))
	for i, s := range c.Statements {
		out[i] = s.Query
	}
	return out
}

func (c *StubConn) record(query string, args []driver.NamedValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.Statements = append(c.Statements, Statement{Query: query, Args: vals})
	if c.FailOn != "" && strings.Contains(query, c.FailOn) {
		return fmt.Errorf("stub: %s failed", c.FailOn)
	}
	return nil
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("stub: prepared statements are not supported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if err := c.record("BEGIN", nil); err != nil {
		return nil, err
	}
	return stubTx{conn: c}, nil
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("stub: ping failed")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := c.record(query, args); err != nil {
		return nil, err
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	if c.Missing && (strings.HasPrefix(upper, "UPDATE") || strings.HasPrefix(upper, "DELETE")) {
		return driver.RowsAffected(0), nil
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := c.record(query, args); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case strings.Contains(query, "SELECT payload"):
		rows := &stubRows{cols: []string{"payload"}}
		for _, p := range c.Payloads {
			rows.rows = append(rows.rows, []driver.Value{p})
		}
		return rows, nil
	case strings.Contains(query, "MAX(position)"):
		return &stubRows{cols: []string{"position"}, rows: [][]driver.Value{{int64(len(c.Payloads) + 1)}}}, nil
	case strings.Contains(query, "high_water"):
		rows := &stubRows{cols: []string{"high_water"}}
		if c.HighWater > 0 {
			rows.rows = [][]driver.Value{{c.HighWater}}
		}
		return rows, nil
	default:
		return &stubRows{}, nil
	}
}

type stubTx struct {
	conn *StubConn
}

func (t stubTx) Commit() error   { return t.conn.record("COMMIT", nil) }
func (t stubTx) Rollback() error { return t.conn.record("ROLLBACK", nil) }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
