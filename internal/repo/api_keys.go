package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"goalline/internal/domain"
	"goalline/internal/tenant"
)

var apiKeyColumns = []string{"id", "tenant_id", "actor_id", "name", "key_hash", "created_at"}

func scanAPIKey(s RowScanner) (domain.APIKey, error) {
	var k domain.APIKey
	var name sql.NullString
	err := s.Scan(&k.ID, &k.TenantID, &k.ActorID, &name, &k.KeyHash, &k.CreatedAt)
	if err != nil {
		return k, err
	}
	if name.Valid {
		k.Name = name.String
	}
	return k, nil
}

func apiKeyValues(k domain.APIKey) []any {
	return []any{k.ID, k.TenantID, k.ActorID, nullable(k.Name), k.KeyHash, k.CreatedAt}
}

func stampAPIKey(k domain.APIKey, s tenant.Scope) domain.APIKey {
	k.TenantID = s.TenantID
	return k
}

// HashAPIKey produces the stored digest for a raw key. Raw keys are never
// persisted.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type APIKeyStore struct {
	Col *Collection[domain.APIKey]
	db  dbtx
}

func newAPIKeyStore(r Repo) *APIKeyStore {
	return &APIKeyStore{
		Col: NewCollection(r, "api_keys", apiKeyColumns, scanAPIKey, apiKeyValues, stampAPIKey),
		db:  r.DB,
	}
}

// Resolve looks a raw key up by digest. It runs outside any tenant scope
// because it is what establishes one.
func (s *APIKeyStore) Resolve(ctx context.Context, raw string) (domain.APIKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+s.Col.selectList()+` FROM api_keys WHERE key_hash=?`, HashAPIKey(raw))
	k, err := s.Col.Scan(row)
	if err == sql.ErrNoRows {
		return domain.APIKey{}, ErrNotFound
	}
	return k, err
}
