package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"goalline/internal/domain"
	"goalline/internal/events"
	"goalline/internal/repo"
	"goalline/internal/tenant"
)

func (e Engine) CreatePeriod(ctx context.Context, name string, startDate, endDate *int64) (domain.Period, error) {
	if name == "" {
		return domain.Period{}, errors.New("name is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Period{}, err
	}
	defer tx.Rollback()

	p := domain.Period{
		ID:        uuid.NewString(),
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: e.stamp(),
	}
	created, err := e.Stores.Periods.Tx(tx).Col.Create(ctx, p)
	if err != nil {
		return domain.Period{}, err
	}
	if err := e.Events.Append(ctx, tx, "period.create", "period", created.ID, events.EventPayload{"name": created.Name}); err != nil {
		return domain.Period{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Period{}, err
	}
	return created, nil
}

func (e Engine) ListPeriods(ctx context.Context) ([]domain.Period, error) {
	return e.Stores.Periods.Col.Find(ctx, repo.Query{}, 0, 0)
}

// CreateAPIKey mints a new key for the active tenant and returns the raw
// secret once. Only the digest is stored.
func (e Engine) CreateAPIKey(ctx context.Context, name string) (domain.APIKey, string, error) {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return domain.APIKey{}, "", err
	}
	raw := "glk_" + hex.EncodeToString(buf[:])

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()

	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	k := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   scope.ActorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.stamp(),
	}
	created, err := e.Stores.Keys.Col.Tx(tx).Create(ctx, k)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.Events.Append(ctx, tx, "apikey.create", "apikey", created.ID, nil); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return created, raw, nil
}

// TenantSettings is the per-tenant settings document kept in the database,
// separate from the workspace file config.
type TenantSettings struct {
	DisplayName string            `json:"display_name,omitempty"`
	Weights     map[string]Weight `json:"weights,omitempty"`
	Priorities  []string          `json:"priorities,omitempty"`
}

type Weight struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// GetTenantSettings returns the tenant's settings document, falling back to
// the workspace catalogs when the tenant has never stored one.
func (e Engine) GetTenantSettings(ctx context.Context) (TenantSettings, error) {
	doc, err := e.Stores.Configs.Get(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		s := TenantSettings{Priorities: e.Config.Priorities}
		if len(e.Config.Weights) > 0 {
			s.Weights = make(map[string]Weight, len(e.Config.Weights))
			for id, w := range e.Config.Weights {
				s.Weights[id] = Weight{Label: w.Label, Value: w.Value}
			}
		}
		return s, nil
	}
	if err != nil {
		return TenantSettings{}, err
	}
	var s TenantSettings
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return TenantSettings{}, fmt.Errorf("corrupt tenant settings: %w", err)
	}
	return s, nil
}

func (e Engine) PutTenantSettings(ctx context.Context, s TenantSettings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return e.Stores.Configs.Put(ctx, string(doc), e.stamp())
}

// Log returns the tenant's recent audit events, newest first.
func (e Engine) Log(ctx context.Context, limit int) ([]domain.Event, error) {
	return e.Events.List(ctx, limit)
}
