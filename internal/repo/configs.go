package repo

import (
	"context"
	"database/sql"
)

// ConfigStore holds each tenant's settings document as an opaque JSON blob.
type ConfigStore struct {
	db dbtx
}

func newConfigStore(r Repo) *ConfigStore {
	return &ConfigStore{db: r.DB}
}

// Get returns the tenant's config document or ErrNotFound.
func (s *ConfigStore) Get(ctx context.Context) (string, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return "", err
	}
	var doc string
	err = s.db.QueryRowContext(ctx,
		`SELECT config_json FROM tenant_configs WHERE tenant_id=?`, scope.TenantID).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return doc, err
}

// Put upserts the tenant's config document.
func (s *ConfigStore) Put(ctx context.Context, doc, now string) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenant_configs (tenant_id, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`,
		scope.TenantID, doc, now, now)
	return err
}
