package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"goalline/internal/tenant"
)

// RowScanner abstracts *sql.Row and *sql.Rows for scan functions.
type RowScanner interface {
	Scan(dest ...any) error
}

// Collection is a tenant-scoped handle over one entity table. Every
// operation resolves the active tenant scope from the context and filters
// or stamps rows with it; a missing scope fails the call with
// ErrTenantMissing. This is the single choke point for tenant isolation.
type Collection[T any] struct {
	db      dbtx
	Table   string
	Columns []string
	Scan    func(RowScanner) (T, error)
	Values  func(T) []any
	Stamp   func(T, tenant.Scope) T
}

func NewCollection[T any](r Repo, table string, columns []string, scan func(RowScanner) (T, error), values func(T) []any, stamp func(T, tenant.Scope) T) *Collection[T] {
	return &Collection[T]{
		db:      r.DB,
		Table:   table,
		Columns: columns,
		Scan:    scan,
		Values:  values,
		Stamp:   stamp,
	}
}

// Tx returns a view of the collection running on the given transaction.
func (c *Collection[T]) Tx(tx *sql.Tx) *Collection[T] {
	dup := *c
	dup.db = tx
	return &dup
}

func (c *Collection[T]) selectList() string {
	return strings.Join(c.Columns, ",")
}

// FindByID returns the entity or ErrNotFound, scoped to the active tenant.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	scope, err := scopeFrom(ctx)
	if err != nil {
		return zero, err
	}
	row := c.db.QueryRowContext(ctx,
		`SELECT `+c.selectList()+` FROM `+c.Table+` WHERE tenant_id=? AND id=?`, scope.TenantID, id)
	entity, err := c.Scan(row)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	return entity, err
}

// Find returns matching entities newest-created-first.
func (c *Collection[T]) Find(ctx context.Context, q Query, skip, limit int) ([]T, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}
	clauses, args := q.Clauses()
	where := append([]string{"tenant_id=?"}, clauses...)
	queryArgs := append([]any{scope.TenantID}, args...)
	query := `SELECT ` + c.selectList() + ` FROM ` + c.Table +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		queryArgs = append(queryArgs, limit, skip)
	}
	rows, err := c.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []T
	for rows.Next() {
		entity, err := c.Scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, entity)
	}
	return res, rows.Err()
}

// Count returns the number of matching rows for the active tenant.
func (c *Collection[T]) Count(ctx context.Context, q Query) (int, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}
	clauses, args := q.Clauses()
	where := append([]string{"tenant_id=?"}, clauses...)
	queryArgs := append([]any{scope.TenantID}, args...)
	var n int
	err = c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM `+c.Table+` WHERE `+strings.Join(where, " AND "), queryArgs...).Scan(&n)
	return n, err
}

// Aggregate runs a caller-supplied projection over the tenant's rows. The
// tenant clause is always prepended before the caller's predicate; suffix
// holds GROUP BY/HAVING/ORDER BY text.
func (c *Collection[T]) Aggregate(ctx context.Context, projection string, q Query, suffix string) (*sql.Rows, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}
	clauses, args := q.Clauses()
	where := append([]string{"tenant_id=?"}, clauses...)
	queryArgs := append([]any{scope.TenantID}, args...)
	query := `SELECT ` + projection + ` FROM ` + c.Table + ` WHERE ` + strings.Join(where, " AND ")
	if suffix != "" {
		query += " " + suffix
	}
	return c.db.QueryContext(ctx, query, queryArgs...)
}

// Create inserts the entity stamped with the active tenant, overriding any
// caller-supplied tenant field.
func (c *Collection[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	scope, err := scopeFrom(ctx)
	if err != nil {
		return zero, err
	}
	entity = c.Stamp(entity, scope)
	query := `INSERT INTO ` + c.Table + `(` + c.selectList() + `) VALUES (` + placeholders(len(c.Columns)) + `)`
	if _, err := c.db.ExecContext(ctx, query, c.Values(entity)...); err != nil {
		return zero, fmt.Errorf("insert %s: %w", c.Table, constraintErr(err))
	}
	return entity, nil
}

// UpdateByID applies the patch and returns the updated entity, or
// ErrNotFound when no row matches id under the active tenant.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, p Patch) (T, error) {
	var zero T
	scope, err := scopeFrom(ctx)
	if err != nil {
		return zero, err
	}
	if p.Empty() {
		return c.FindByID(ctx, id)
	}
	args := append(append([]any{}, p.args...), scope.TenantID, id)
	res, err := c.db.ExecContext(ctx,
		`UPDATE `+c.Table+` SET `+strings.Join(p.fields, ",")+` WHERE tenant_id=? AND id=?`, args...)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", c.Table, constraintErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return zero, ErrNotFound
	}
	return c.FindByID(ctx, id)
}

// UpdateMany applies the patch to every row matching the predicate.
func (c *Collection[T]) UpdateMany(ctx context.Context, q Query, p Patch) (int64, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}
	if p.Empty() {
		return 0, nil
	}
	clauses, qargs := q.Clauses()
	where := append([]string{"tenant_id=?"}, clauses...)
	args := append(append([]any{}, p.args...), scope.TenantID)
	args = append(args, qargs...)
	res, err := c.db.ExecContext(ctx,
		`UPDATE `+c.Table+` SET `+strings.Join(p.fields, ",")+` WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.Table, constraintErr(err))
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteByIDs removes the listed ids under the active tenant and reports
// how many rows actually went away.
func (c *Collection[T]) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{scope.TenantID}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM `+c.Table+` WHERE tenant_id=? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
