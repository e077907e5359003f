package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"goalline/internal/db"
	"goalline/internal/domain"
	"goalline/internal/migrate"
	"goalline/internal/tenant"
)

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStores(conn)
}

func scoped(tenantID string) context.Context {
	return tenant.WithScope(context.Background(), tenant.Scope{ActorID: "actor-1", TenantID: tenantID})
}

func testGoal(title string) domain.Goal {
	now := time.Now().UTC().Format(time.RFC3339)
	return domain.Goal{
		ID:        uuid.NewString(),
		Code:      "G-" + uuid.NewString()[:8],
		Title:     title,
		Status:    domain.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testTask(title string) domain.Task {
	now := time.Now().UTC().Format(time.RFC3339)
	return domain.Task{
		ID:        uuid.NewString(),
		Code:      "T-" + uuid.NewString()[:8],
		Title:     title,
		Status:    domain.StatusNotStarted,
		Priority:  "Medium",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateStampsTenant(t *testing.T) {
	s := newTestStores(t)
	g := testGoal("Grow revenue")
	g.TenantID = "forged"
	created, err := s.Goals.Col.Create(scoped("t1"), g)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TenantID != "t1" {
		t.Fatalf("tenant not stamped, got %q", created.TenantID)
	}
}

func TestCallsWithoutScopeFail(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	if _, err := s.Goals.Col.Create(ctx, testGoal("x")); !errors.Is(err, ErrTenantMissing) {
		t.Fatalf("create: want ErrTenantMissing, got %v", err)
	}
	if _, err := s.Goals.Col.Find(ctx, Query{}, 0, 0); !errors.Is(err, ErrTenantMissing) {
		t.Fatalf("find: want ErrTenantMissing, got %v", err)
	}
	if _, err := s.Repo.NextSequence(ctx, nil, CounterGoals); !errors.Is(err, ErrTenantMissing) {
		t.Fatalf("sequence: want ErrTenantMissing, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	s := newTestStores(t)
	g1, err := s.Goals.Col.Create(scoped("t1"), testGoal("Tenant one goal"))
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}
	if _, err := s.Goals.Col.Create(scoped("t2"), testGoal("Tenant two goal")); err != nil {
		t.Fatalf("create t2: %v", err)
	}

	if _, err := s.Goals.Col.FindByID(scoped("t2"), g1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read: want ErrNotFound, got %v", err)
	}
	list, err := s.Goals.Col.Find(scoped("t1"), Query{}, 0, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list) != 1 || list[0].ID != g1.ID {
		t.Fatalf("t1 sees %d goals, want its own one", len(list))
	}

	// Cross-tenant writes and deletes hit zero rows.
	var p Patch
	p.Set("title", "hijacked")
	if _, err := s.Goals.Col.UpdateByID(scoped("t2"), g1.ID, p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant update: want ErrNotFound, got %v", err)
	}
	n, err := s.Goals.Col.DeleteByIDs(scoped("t2"), []string{g1.ID})
	if err != nil || n != 0 {
		t.Fatalf("cross-tenant delete removed %d rows, err=%v", n, err)
	}
}

func TestDuplicateTitleWithinTenant(t *testing.T) {
	s := newTestStores(t)
	if _, err := s.Goals.Col.Create(scoped("t1"), testGoal("Same title")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.Goals.Col.Create(scoped("t1"), testGoal("Same title")); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("want ErrDuplicateTitle, got %v", err)
	}
	// Same title under another tenant is fine.
	if _, err := s.Goals.Col.Create(scoped("t2"), testGoal("Same title")); err != nil {
		t.Fatalf("other tenant create: %v", err)
	}
}

func TestSequenceMonotonicPerTenant(t *testing.T) {
	s := newTestStores(t)
	for want := int64(1); want <= 3; want++ {
		got, err := s.Repo.NextSequence(scoped("t1"), nil, CounterGoals)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
	// Another tenant and another key both start fresh.
	if got, _ := s.Repo.NextSequence(scoped("t2"), nil, CounterGoals); got != 1 {
		t.Fatalf("t2 starts at %d, want 1", got)
	}
	if got, _ := s.Repo.NextSequence(scoped("t1"), nil, CounterTasks); got != 1 {
		t.Fatalf("tasks key starts at %d, want 1", got)
	}
}

func TestSequenceConcurrentIssuesDistinct(t *testing.T) {
	s := newTestStores(t)
	const n = 20
	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Repo.NextSequence(scoped("t1"), nil, CounterTasks)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			if seen[v] {
				t.Errorf("value %d issued twice", v)
			}
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("issued %d distinct values, want %d", len(seen), n)
	}
}

func TestTaskDeleteCascadesToSubtasks(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	parent, err := s.Tasks.Col.Create(ctx, testTask("Parent"))
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	sub, err := s.Tasks.CreateSubtask(ctx, testTask("Child"), SubtaskLink{ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}

	deleted, missing, err := s.Tasks.Delete(ctx, []string{parent.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deleted) != 1 || len(missing) != 1 {
		t.Fatalf("deleted=%d missing=%d", len(deleted), len(missing))
	}
	if _, err := s.Tasks.Col.FindByID(ctx, sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("subtask should be gone, got %v", err)
	}
}

func TestTaskDeletePrunesParentReference(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	parent, err := s.Tasks.Col.Create(ctx, testTask("Parent"))
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	sub, err := s.Tasks.CreateSubtask(ctx, testTask("Child"), SubtaskLink{ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}

	if _, _, err := s.Tasks.Delete(ctx, []string{sub.ID}); err != nil {
		t.Fatalf("delete subtask: %v", err)
	}
	got, err := s.Tasks.Col.FindByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("find parent: %v", err)
	}
	if len(got.SubtaskIDs) != 0 {
		t.Fatalf("parent still references %v", got.SubtaskIDs)
	}
}

func TestMoveTasksReportsUnknownIDs(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	a, _ := s.Tasks.Col.Create(ctx, testTask("A"))
	start, end := int64(1000), int64(2000)
	period := domain.Period{ID: uuid.NewString(), StartDate: &start, EndDate: &end}
	now := time.Now().UTC().Format(time.RFC3339)

	moved, errorIDs, err := s.Tasks.MoveTasks(ctx, []string{a.ID, uuid.NewString()}, &period, now)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(moved) != 1 || moved[0].PeriodID == nil || *moved[0].PeriodID != period.ID {
		t.Fatalf("move result %+v", moved)
	}
	if len(errorIDs) != 1 {
		t.Fatalf("errorIDs=%v", errorIDs)
	}
	if moved[0].StartDate == nil || *moved[0].StartDate != start || moved[0].EndDate == nil || *moved[0].EndDate != end {
		t.Fatalf("moved task did not take the period window: start=%v end=%v", moved[0].StartDate, moved[0].EndDate)
	}
}

func TestMoveTasksToBacklogClearsPeriod(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	a, _ := s.Tasks.Col.Create(ctx, testTask("A"))
	start, end := int64(1000), int64(2000)
	period := domain.Period{ID: uuid.NewString(), StartDate: &start, EndDate: &end}
	now := time.Now().UTC().Format(time.RFC3339)

	if _, _, err := s.Tasks.MoveTasks(ctx, []string{a.ID}, &period, now); err != nil {
		t.Fatalf("move to period: %v", err)
	}
	moved, _, err := s.Tasks.MoveTasks(ctx, []string{a.ID}, nil, now)
	if err != nil {
		t.Fatalf("move to backlog: %v", err)
	}
	if moved[0].PeriodID != nil {
		t.Fatalf("period_id = %v, want nil", *moved[0].PeriodID)
	}
}

func TestArchiveManyFlipsFlag(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	a, _ := s.Tasks.Col.Create(ctx, testTask("A"))
	b, _ := s.Tasks.Col.Create(ctx, testTask("B"))
	now := time.Now().UTC().Format(time.RFC3339)

	updated, err := s.Tasks.ArchiveMany(ctx, []string{a.ID, b.ID}, true, now)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("updated %d rows", len(updated))
	}
	for _, task := range updated {
		if !task.Archived {
			t.Fatalf("task %s not archived", task.ID)
		}
	}
}

func TestGoalGetJoinsObjectives(t *testing.T) {
	s := newTestStores(t)
	ctx := scoped("t1")
	g, err := s.Goals.Col.Create(ctx, testGoal("With objectives"))
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	o := domain.Objective{
		ID: uuid.NewString(), Code: "O-1", Title: "Objective one",
		GoalID: &g.ID, Status: domain.StatusNotStarted,
		CreatedAt: now, UpdatedAt: now,
	}
	if _, err := s.Objs.Col.Create(ctx, o); err != nil {
		t.Fatalf("create objective: %v", err)
	}

	view, err := s.Goals.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(view.Objectives) != 1 || view.Objectives[0].ID != o.ID {
		t.Fatalf("joined objectives: %+v", view.Objectives)
	}
}
