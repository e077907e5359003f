package repo

import (
	"context"
	"database/sql"

	"goalline/internal/domain"
	"goalline/internal/tenant"
)

var periodColumns = []string{"id", "tenant_id", "name", "start_date", "end_date", "created_at"}

func scanPeriod(s RowScanner) (domain.Period, error) {
	var p domain.Period
	var start, end sql.NullInt64
	err := s.Scan(&p.ID, &p.TenantID, &p.Name, &start, &end, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.StartDate = int64Ptr(start)
	p.EndDate = int64Ptr(end)
	return p, nil
}

func periodValues(p domain.Period) []any {
	return []any{p.ID, p.TenantID, p.Name, nullableInt64Ptr(p.StartDate), nullableInt64Ptr(p.EndDate), p.CreatedAt}
}

func stampPeriod(p domain.Period, s tenant.Scope) domain.Period {
	p.TenantID = s.TenantID
	return p
}

type PeriodStore struct {
	Col *Collection[domain.Period]
}

func newPeriodStore(r Repo) *PeriodStore {
	return &PeriodStore{Col: NewCollection(r, "periods", periodColumns, scanPeriod, periodValues, stampPeriod)}
}

func (s *PeriodStore) Tx(tx *sql.Tx) *PeriodStore {
	return &PeriodStore{Col: s.Col.Tx(tx)}
}

// ByName resolves a period by its tenant-unique name.
func (s *PeriodStore) ByName(ctx context.Context, name string) (domain.Period, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return domain.Period{}, err
	}
	row := s.Col.db.QueryRowContext(ctx,
		`SELECT `+s.Col.selectList()+` FROM periods WHERE tenant_id=? AND name=?`, scope.TenantID, name)
	p, err := s.Col.Scan(row)
	if err == sql.ErrNoRows {
		return domain.Period{}, ErrNotFound
	}
	return p, err
}
