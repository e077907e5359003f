package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"goalline/internal/config"
	"goalline/internal/db"
	"goalline/internal/domain"
	"goalline/internal/engine"
	"goalline/internal/filter"
	"goalline/internal/migrate"
	"goalline/internal/repo"
	"goalline/internal/tenant"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("acme", "tester")))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := tenant.WithScope(context.Background(), tenant.Scope{ActorID: "tester", TenantID: "acme"})
	return testEnv{Engine: eng, Ctx: ctx}
}

func mustGoal(t *testing.T, env testEnv, title string) domain.Goal {
	t.Helper()
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: title})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return g
}

func mustObjective(t *testing.T, env testEnv, title string, goalID *string) domain.Objective {
	t.Helper()
	o, err := env.Engine.CreateObjective(env.Ctx, engine.ObjectiveCreateOptions{Title: title, GoalID: goalID})
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}
	return o
}

func mustTask(t *testing.T, env testEnv, title string, objectiveID *string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: title, ObjectiveID: objectiveID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func setStatus(t *testing.T, env testEnv, taskID string, s domain.Status) {
	t.Helper()
	if _, err := env.Engine.UpdateTask(env.Ctx, taskID, engine.TaskPatch{Status: &s}); err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func TestSequenceCodesPerEntity(t *testing.T) {
	env := newTestEnv(t)
	g1 := mustGoal(t, env, "First goal")
	g2 := mustGoal(t, env, "Second goal")
	if g1.Code != "GL-1" || g2.Code != "GL-2" {
		t.Fatalf("goal codes %s %s", g1.Code, g2.Code)
	}
	o := mustObjective(t, env, "First objective", nil)
	if o.Code != "OB-1" {
		t.Fatalf("objective code %s", o.Code)
	}
	task := mustTask(t, env, "First task", nil)
	if task.Code != "TS-1" {
		t.Fatalf("task code %s", task.Code)
	}
}

func TestCascadeAllCompleted(t *testing.T) {
	env := newTestEnv(t)
	g := mustGoal(t, env, "Ship it")
	o := mustObjective(t, env, "Objective", &g.ID)
	t1 := mustTask(t, env, "Task one", &o.ID)
	t2 := mustTask(t, env, "Task two", &o.ID)

	setStatus(t, env, t1.ID, domain.StatusCompleted)
	setStatus(t, env, t2.ID, domain.StatusCompleted)

	obj, err := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o.ID)
	if err != nil {
		t.Fatalf("read objective: %v", err)
	}
	if obj.Progress != 100 || obj.Status != domain.StatusCompleted {
		t.Fatalf("objective %d%% %s", obj.Progress, obj.Status)
	}
	goal, err := env.Engine.Stores.Goals.Col.FindByID(env.Ctx, g.ID)
	if err != nil {
		t.Fatalf("read goal: %v", err)
	}
	if goal.Progress != 100 || goal.Status != domain.StatusCompleted {
		t.Fatalf("goal %d%% %s", goal.Progress, goal.Status)
	}
}

func TestCascadeHalfCompleted(t *testing.T) {
	env := newTestEnv(t)
	g := mustGoal(t, env, "Half done")
	o := mustObjective(t, env, "Objective", &g.ID)
	t1 := mustTask(t, env, "Task one", &o.ID)
	mustTask(t, env, "Task two", &o.ID)

	setStatus(t, env, t1.ID, domain.StatusCompleted)

	obj, _ := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o.ID)
	if obj.Progress != 50 {
		t.Fatalf("objective progress %d, want 50", obj.Progress)
	}
	if obj.Status != domain.StatusInProgress {
		t.Fatalf("objective status %s", obj.Status)
	}
}

func TestArchivedTaskLeavesAggregate(t *testing.T) {
	env := newTestEnv(t)
	o := mustObjective(t, env, "Objective", nil)
	t1 := mustTask(t, env, "Done task", &o.ID)
	t2 := mustTask(t, env, "Straggler", &o.ID)
	setStatus(t, env, t1.ID, domain.StatusCompleted)

	if _, err := env.Engine.ArchiveTasks(env.Ctx, []string{t2.ID}, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	obj, _ := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o.ID)
	if obj.Progress != 100 || obj.Status != domain.StatusCompleted {
		t.Fatalf("after archive: %d%% %s", obj.Progress, obj.Status)
	}
}

func TestDuplicateTitleRejected(t *testing.T) {
	env := newTestEnv(t)
	mustTask(t, env, "Same title", nil)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Same title"})
	if !errors.Is(err, repo.ErrDuplicateTitle) {
		t.Fatalf("want ErrDuplicateTitle, got %v", err)
	}
}

func TestDeleteAsymmetry(t *testing.T) {
	env := newTestEnv(t)
	g := mustGoal(t, env, "Goal")
	o := mustObjective(t, env, "Objective", &g.ID)
	task := mustTask(t, env, "Task", &o.ID)

	// Deleting the objective removes its tasks.
	res, err := env.Engine.DeleteObjectives(env.Ctx, []string{o.ID})
	if err != nil {
		t.Fatalf("delete objective: %v", err)
	}
	if res.DeletedCount != 1 {
		t.Fatalf("deleted %d objectives", res.DeletedCount)
	}
	if _, err := env.Engine.Stores.Tasks.Col.FindByID(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("objective's task should be gone, got %v", err)
	}

	// Deleting the goal leaves its objectives in place.
	o2 := mustObjective(t, env, "Survivor", &g.ID)
	if _, err := env.Engine.DeleteGoals(env.Ctx, []string{g.ID}); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	if _, err := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o2.ID); err != nil {
		t.Fatalf("goal's objective should survive, got %v", err)
	}
}

func TestSubtaskDoesNotCascade(t *testing.T) {
	env := newTestEnv(t)
	o := mustObjective(t, env, "Objective", nil)
	parent := mustTask(t, env, "Parent", &o.ID)
	sub, err := env.Engine.CreateSubtask(env.Ctx, engine.TaskCreateOptions{Title: "Child"}, repo.SubtaskLink{ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	done := domain.StatusCompleted
	if _, err := env.Engine.UpdateSubtask(env.Ctx, sub.ID, engine.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("update subtask: %v", err)
	}
	obj, _ := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o.ID)
	if obj.Status != domain.StatusNotStarted || obj.Progress != 0 {
		t.Fatalf("subtask leaked into aggregate: %d%% %s", obj.Progress, obj.Status)
	}

	view, err := env.Engine.GetTask(env.Ctx, parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if len(view.Subtasks) != 1 || view.Subtasks[0].ID != sub.ID {
		t.Fatalf("parent view subtasks: %+v", view.Subtasks)
	}
}

func TestSubtaskCreateSetsParentStatusAndProgress(t *testing.T) {
	env := newTestEnv(t)
	parent := mustTask(t, env, "Parent", nil)
	inProgress := domain.StatusInProgress
	progress := 25
	sub, err := env.Engine.CreateSubtask(env.Ctx, engine.TaskCreateOptions{Title: "Child"}, repo.SubtaskLink{
		ParentID:       parent.ID,
		ParentStatus:   &inProgress,
		ParentProgress: &progress,
	})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	got, err := env.Engine.GetTask(env.Ctx, parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if got.Status != domain.StatusInProgress || got.Progress != 25 {
		t.Fatalf("parent = %s %d%%, want In progress 25%%", got.Status, got.Progress)
	}
	if len(got.SubtaskIDs) != 1 || got.SubtaskIDs[0] != sub.ID {
		t.Fatalf("parent subtask ids: %v", got.SubtaskIDs)
	}

	bogus := domain.Status("Done-ish")
	if _, err := env.Engine.CreateSubtask(env.Ctx, engine.TaskCreateOptions{Title: "Bad"}, repo.SubtaskLink{
		ParentID:     parent.ID,
		ParentStatus: &bogus,
	}); err == nil {
		t.Fatal("bogus parent status accepted")
	}
}

func TestRelinkTaskRecomputesBothObjectives(t *testing.T) {
	env := newTestEnv(t)
	o1 := mustObjective(t, env, "From", nil)
	o2 := mustObjective(t, env, "To", nil)
	task := mustTask(t, env, "Mover", &o1.ID)
	setStatus(t, env, task.ID, domain.StatusCompleted)

	if _, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskPatch{ObjectiveID: &o2.ID}); err != nil {
		t.Fatalf("relink: %v", err)
	}
	from, _ := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o1.ID)
	to, _ := env.Engine.Stores.Objs.Col.FindByID(env.Ctx, o2.ID)
	if from.Progress != 0 || from.Status != domain.StatusNotStarted {
		t.Fatalf("source objective kept %d%% %s", from.Progress, from.Status)
	}
	if to.Progress != 100 || to.Status != domain.StatusCompleted {
		t.Fatalf("target objective %d%% %s", to.Progress, to.Status)
	}
}

func TestPaginationTwentyPerPage(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 25; i++ {
		mustTask(t, env, fmt.Sprintf("Task %02d", i), nil)
	}
	page0, err := env.Engine.GetTasks(env.Ctx, filter.Bag{}, "", 0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if len(page0.Items) != 20 || page0.Meta.TotalRowCount != 25 {
		t.Fatalf("page 0: %d items, total %d", len(page0.Items), page0.Meta.TotalRowCount)
	}
	page1, err := env.Engine.GetTasks(env.Ctx, filter.Bag{}, "", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Items) != 5 {
		t.Fatalf("page 1: %d items", len(page1.Items))
	}
}

func TestGetTasksActorFilter(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Mine", Owners: []string{"alice"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Reviewing", Reviewers: []string{"alice"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Someone else's", Owners: []string{"bob"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	page, err := env.Engine.GetTasks(env.Ctx, filter.Bag{}, "alice", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("alice sees %d tasks, want 2", len(page.Items))
	}
}

func TestMoveTasksPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	task := mustTask(t, env, "Scheduled", nil)
	period, err := env.Engine.CreatePeriod(env.Ctx, "Q1", nil, nil)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	res, err := env.Engine.MoveTasks(env.Ctx, []string{task.ID, "00000000-0000-0000-0000-000000000000"}, &period.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(res.IDs) != 1 || len(res.ErrorIDs) != 1 {
		t.Fatalf("moved=%v errors=%v", res.IDs, res.ErrorIDs)
	}
}

func TestMoveTasksInheritsPeriodWindow(t *testing.T) {
	env := newTestEnv(t)
	task := mustTask(t, env, "Scheduled", nil)
	start, end := int64(1000), int64(2000)
	period, err := env.Engine.CreatePeriod(env.Ctx, "Q2", &start, &end)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := env.Engine.MoveTasks(env.Ctx, []string{task.ID}, &period.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StartDate == nil || *got.StartDate != start || got.EndDate == nil || *got.EndDate != end {
		t.Fatalf("task kept its own window: start=%v end=%v", got.StartDate, got.EndDate)
	}
}

func TestBadIDIsClientError(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.GetGoal(env.Ctx, "not-a-uuid"); !errors.Is(err, repo.ErrBadID) {
		t.Fatalf("want ErrBadID, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	g := mustGoal(t, env, "Audited")
	evts, err := env.Engine.Log(env.Ctx, 10)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(evts) != 1 || evts[0].Type != "goal.create" || evts[0].EntityID != g.ID {
		t.Fatalf("events: %+v", evts)
	}
	if evts[0].ActorID != "tester" || evts[0].TenantID != "acme" {
		t.Fatalf("event attribution: %+v", evts[0])
	}
}
