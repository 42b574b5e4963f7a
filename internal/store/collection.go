package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/aegisaudit/aegis/internal/codec"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Collection
// methods accept either, so the same operation runs standalone or inside an
// atomic multi-collection transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IndexValue is one plain index column extracted from a record. Index
// columns exist so SQLite can enforce uniqueness and serve queries; the
// record body itself is persisted only as a sealed envelope.
type IndexValue struct {
	Column string
	Value  any
}

// MultiIndex declares a multi-valued index kept in a side table, one row
// per value (the documents tag index).
type MultiIndex[T any] struct {
	Table  string
	Parent string // FK column referencing the record's id
	Column string // indexed value column
	Values func(*T) []string
}

// TableSpec describes how a record type maps onto its collection table.
type TableSpec[T any] struct {
	Table string
	GetID func(*T) int64
	SetID func(*T, int64)
	Index func(*T) []IndexValue
	Multi *MultiIndex[T]
}

// Collection is a typed handle over one collection. All writes seal the
// record through the session codec and all reads open it; plaintext record
// bodies never reach the database file.
type Collection[T any] struct {
	s    *Store
	spec TableSpec[T]
}

func newCollection[T any](s *Store, spec TableSpec[T]) *Collection[T] {
	return &Collection[T]{s: s, spec: spec}
}

// Name returns the collection's table name.
func (c *Collection[T]) Name() string {
	return c.spec.Table
}

// Add inserts one record and assigns its id. Fails with
// CONSTRAINT_VIOLATION on a uniqueness or foreign-key breach.
func (c *Collection[T]) Add(ctx context.Context, q DBTX, rec *T) (int64, error) {
	env, err := c.encode(rec, "add")
	if err != nil {
		return 0, err
	}

	cols := []string{}
	args := []any{}
	for _, iv := range c.spec.Index(rec) {
		cols = append(cols, iv.Column)
		args = append(args, iv.Value)
	}
	cols = append(cols, "iv", "ciphertext")
	args = append(args, env.IV, env.Ciphertext)

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		c.spec.Table,
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.wrap("add", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, c.wrap("add", 0, err)
	}
	c.spec.SetID(rec, id)

	if err := c.writeMultiIndex(ctx, q, rec, id); err != nil {
		return 0, err
	}
	return id, nil
}

// BulkAdd inserts records sequentially and returns their assigned ids.
// Run inside Transact when the batch must be all-or-nothing.
func (c *Collection[T]) BulkAdd(ctx context.Context, q DBTX, recs []T) ([]int64, error) {
	ids := make([]int64, 0, len(recs))
	for i := range recs {
		id, err := c.Add(ctx, q, &recs[i])
		if err != nil {
			return nil, fmt.Errorf("bulk add [%d]: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get fetches one record by id. Returns (nil, nil) when the id does not
// exist.
func (c *Collection[T]) Get(ctx context.Context, q DBTX, id int64) (*T, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT iv, ciphertext FROM %s WHERE id = ?", c.spec.Table), id)

	var env codec.Envelope
	if err := row.Scan(&env.IV, &env.Ciphertext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, c.wrap("get", id, err)
	}
	return c.decode(env, id, "get")
}

// Update applies mutate to the stored record and writes back the resealed
// envelope together with refreshed index columns, in place. The id never
// changes.
func (c *Collection[T]) Update(ctx context.Context, q DBTX, id int64, mutate func(*T)) error {
	rec, err := c.Get(ctx, q, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return c.wrap("update", id, sql.ErrNoRows)
	}
	mutate(rec)
	c.spec.SetID(rec, id)

	env, err := c.encode(rec, "update")
	if err != nil {
		return err
	}

	sets := []string{}
	args := []any{}
	for _, iv := range c.spec.Index(rec) {
		sets = append(sets, iv.Column+" = ?")
		args = append(args, iv.Value)
	}
	sets = append(sets, "iv = ?", "ciphertext = ?")
	args = append(args, env.IV, env.Ciphertext, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", c.spec.Table, strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return c.wrap("update", id, err)
	}

	if c.spec.Multi != nil {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.spec.Multi.Table, c.spec.Multi.Parent), id); err != nil {
			return c.wrap("update", id, err)
		}
		if err := c.writeMultiIndex(ctx, q, rec, id); err != nil {
			return err
		}
	}
	return nil
}

// Query returns every record whose indexed column equals value, in id
// order. Querying the multi-valued index column matches any of a record's
// values.
func (c *Collection[T]) Query(ctx context.Context, q DBTX, column string, value any) ([]T, error) {
	var query string
	switch {
	case c.spec.Multi != nil && column == c.spec.Multi.Column:
		query = fmt.Sprintf(
			"SELECT r.id, r.iv, r.ciphertext FROM %s r JOIN %s m ON m.%s = r.id WHERE m.%s = ? ORDER BY r.id",
			c.spec.Table, c.spec.Multi.Table, c.spec.Multi.Parent, c.spec.Multi.Column)
	case c.indexedColumn(column):
		query = fmt.Sprintf(
			"SELECT id, iv, ciphertext FROM %s WHERE %s = ? ORDER BY id",
			c.spec.Table, column)
	default:
		return nil, c.wrap("query", 0, fmt.Errorf("column %q is not indexed", column))
	}
	return c.scanAll(ctx, q, "query", query, value)
}

// All returns every record in the collection, in id order.
func (c *Collection[T]) All(ctx context.Context, q DBTX) ([]T, error) {
	return c.scanAll(ctx, q, "all",
		fmt.Sprintf("SELECT id, iv, ciphertext FROM %s ORDER BY id", c.spec.Table))
}

// Count returns the number of records in the collection. Counting does not
// require the session key.
func (c *Collection[T]) Count(ctx context.Context, q DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", c.spec.Table)).Scan(&n)
	if err != nil {
		return 0, c.wrap("count", 0, err)
	}
	return n, nil
}

// Clear deletes every record in the collection, multi-index rows included.
func (c *Collection[T]) Clear(ctx context.Context, q DBTX) error {
	if c.spec.Multi != nil {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+c.spec.Multi.Table); err != nil {
			return c.wrap("clear", 0, err)
		}
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM "+c.spec.Table); err != nil {
		return c.wrap("clear", 0, err)
	}
	return nil
}

// DeleteBy deletes every record whose indexed column equals value and
// returns the number of rows removed. Multi-index rows cascade.
func (c *Collection[T]) DeleteBy(ctx context.Context, q DBTX, column string, value any) (int64, error) {
	if !c.indexedColumn(column) {
		return 0, c.wrap("delete", 0, fmt.Errorf("column %q is not indexed", column))
	}
	res, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.spec.Table, column), value)
	if err != nil {
		return 0, c.wrap("delete", 0, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, c.wrap("delete", 0, err)
	}
	return n, nil
}

func (c *Collection[T]) scanAll(ctx context.Context, q DBTX, op, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.wrap(op, 0, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var id int64
		var env codec.Envelope
		if err := rows.Scan(&id, &env.IV, &env.Ciphertext); err != nil {
			return nil, c.wrap(op, 0, err)
		}
		rec, err := c.decode(env, id, op)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, c.wrap(op, 0, err)
	}
	return out, nil
}

func (c *Collection[T]) writeMultiIndex(ctx context.Context, q DBTX, rec *T, id int64) error {
	if c.spec.Multi == nil {
		return nil
	}
	m := c.spec.Multi
	for _, v := range m.Values(rec) {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT DO NOTHING",
				m.Table, m.Parent, m.Column),
			id, v); err != nil {
			return c.wrap("index", id, err)
		}
	}
	return nil
}

func (c *Collection[T]) indexedColumn(column string) bool {
	var zero T
	for _, iv := range c.spec.Index(&zero) {
		if iv.Column == column {
			return true
		}
	}
	return false
}

func (c *Collection[T]) encode(rec *T, op string) (codec.Envelope, error) {
	if c.s.session == nil {
		return codec.Envelope{}, &Error{Code: CodeKeyNotSet, Op: op, Collection: c.spec.Table}
	}
	env, err := c.s.session.Encode(rec)
	if err != nil {
		return codec.Envelope{}, c.wrap(op, 0, err)
	}
	return env, nil
}

func (c *Collection[T]) decode(env codec.Envelope, id int64, op string) (*T, error) {
	if c.s.session == nil {
		return nil, &Error{Code: CodeKeyNotSet, Op: op, Collection: c.spec.Table, ID: id}
	}
	var rec T
	if err := c.s.session.Decode(env, &rec); err != nil {
		return nil, c.wrap(op, id, err)
	}
	c.spec.SetID(&rec, id)
	return &rec, nil
}

// wrap classifies a low-level failure into a coded store error.
func (c *Collection[T]) wrap(op string, id int64, err error) error {
	code := classify(err)
	return &Error{Code: code, Op: op, Collection: c.spec.Table, ID: id, Err: err}
}

func classify(err error) ErrorCode {
	if errors.Is(err, codec.ErrDecryptionFailed) {
		return CodeDecryptionFailed
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return CodeConstraintViolation
	}
	return CodeStorage
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
