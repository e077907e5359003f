package tenant_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"goalline/internal/tenant"
)

func TestFromContextWithoutScope(t *testing.T) {
	_, err := tenant.FromContext(context.Background())
	if !errors.Is(err, tenant.ErrNoScope) {
		t.Fatalf("expected ErrNoScope, got %v", err)
	}
}

func TestFromContextEmptyTenant(t *testing.T) {
	ctx := tenant.WithScope(context.Background(), tenant.Scope{ActorID: "u1"})
	if _, err := tenant.FromContext(ctx); !errors.Is(err, tenant.ErrNoScope) {
		t.Fatalf("expected ErrNoScope for empty tenant, got %v", err)
	}
}

func TestScopeRoundTrip(t *testing.T) {
	ctx := tenant.WithScope(context.Background(), tenant.Scope{ActorID: "u1", TenantID: "acme"})
	s, err := tenant.FromContext(ctx)
	if err != nil {
		t.Fatalf("from context: %v", err)
	}
	if s.ActorID != "u1" || s.TenantID != "acme" {
		t.Fatalf("unexpected scope %+v", s)
	}
}

func TestConcurrentScopesDoNotLeak(t *testing.T) {
	var wg sync.WaitGroup
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := tenant.Run(context.Background(), tenant.Scope{ActorID: "a", TenantID: id}, func(ctx context.Context) error {
				for i := 0; i < 100; i++ {
					s, err := tenant.FromContext(ctx)
					if err != nil {
						return err
					}
					if s.TenantID != id {
						t.Errorf("scope leaked: want %s got %s", id, s.TenantID)
					}
				}
				return nil
			})
			if err != nil {
				t.Errorf("run: %v", err)
			}
		}(id)
	}
	wg.Wait()
}
