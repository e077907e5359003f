package repo

import (
	"context"
	"database/sql"
)

// Counter keys for the three entity code sequences.
const (
	CounterGoals      = "goals"
	CounterObjectives = "objectives"
	CounterTasks      = "tasks"
)

// NextSequence issues the next integer for (active tenant, counterKey) as a
// single atomic upsert-and-increment. Concurrent callers under the same key
// never observe the same value. tx may be nil to run outside a transaction.
func (r Repo) NextSequence(ctx context.Context, tx *sql.Tx, counterKey string) (int64, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}
	var q dbtx = r.DB
	if tx != nil {
		q = tx
	}
	var value int64
	err = q.QueryRowContext(ctx, `INSERT INTO sequence_counters(tenant_id,counter_key,value) VALUES (?,?,1)
ON CONFLICT(tenant_id,counter_key) DO UPDATE SET value=value+1 RETURNING value`,
		scope.TenantID, counterKey).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}
