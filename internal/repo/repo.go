package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"goalline/internal/tenant"
)

// Repo owns the database handle shared by all collections.
type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	// ErrTenantMissing means a repository call ran without an active tenant
	// scope. This is a wiring bug, not an expected runtime condition.
	ErrTenantMissing  = errors.New("no active tenant scope")
	ErrDuplicateTitle = errors.New("title already in use")
	ErrBadID          = errors.New("malformed id")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Query is a tenant-unaware predicate: a conjunction of SQL clauses with
// their arguments. Collections prepend the tenant clause before running it.
type Query struct {
	clauses []string
	args    []any
}

// And appends a clause to the conjunction.
func (q *Query) And(clause string, args ...any) *Query {
	q.clauses = append(q.clauses, clause)
	q.args = append(q.args, args...)
	return q
}

// Clauses returns the raw clause/arg pairs.
func (q Query) Clauses() ([]string, []any) {
	return q.clauses, q.args
}

// Patch is an ordered set of column assignments for an update.
type Patch struct {
	fields []string
	args   []any
}

func (p *Patch) Set(column string, value any) *Patch {
	p.fields = append(p.fields, column+"=?")
	p.args = append(p.args, value)
	return p
}

func (p Patch) Empty() bool { return len(p.fields) == 0 }

// CheckID validates an entity id supplied by a caller.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrBadID
	}
	return nil
}

// scopeFrom resolves the active tenant scope or fails the call.
func scopeFrom(ctx context.Context) (tenant.Scope, error) {
	s, err := tenant.FromContext(ctx)
	if err != nil {
		return tenant.Scope{}, ErrTenantMissing
	}
	return s, nil
}

// constraintErr maps SQLite constraint violations onto the repo taxonomy.
func constraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") &&
		(strings.Contains(msg, ".title") || strings.Contains(msg, ".name")) {
		return ErrDuplicateTitle
	}
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// ListJSON serializes an id list for storage; empty lists store as NULL.
func ListJSON(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func jsonList(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var ids []string
	_ = json.Unmarshal([]byte(ns.String), &ids)
	return ids
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// placeholders returns "?,?,..." for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
