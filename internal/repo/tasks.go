package repo

import (
	"context"
	"database/sql"
	"errors"

	"goalline/internal/domain"
	"goalline/internal/tenant"
)

var taskColumns = []string{
	"id", "tenant_id", "code", "title", "owners_json", "reviewers_json", "weight_id",
	"status", "priority", "progress", "start_date", "end_date",
	"goal_id", "objective_id", "period_id", "archived",
	"is_subtask", "parent_task_id", "subtask_ids_json",
	"created_at", "updated_at",
}

func scanTask(s RowScanner) (domain.Task, error) {
	var t domain.Task
	var owners, reviewers, weight, goalID, objectiveID, periodID, parentID, subtasks sql.NullString
	var start, end sql.NullInt64
	var archived, isSubtask int
	err := s.Scan(&t.ID, &t.TenantID, &t.Code, &t.Title, &owners, &reviewers, &weight,
		&t.Status, &t.Priority, &t.Progress, &start, &end,
		&goalID, &objectiveID, &periodID, &archived,
		&isSubtask, &parentID, &subtasks,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Owners = jsonList(owners)
	t.Reviewers = jsonList(reviewers)
	t.WeightID = stringPtr(weight)
	t.StartDate = int64Ptr(start)
	t.EndDate = int64Ptr(end)
	t.GoalID = stringPtr(goalID)
	t.ObjectiveID = stringPtr(objectiveID)
	t.PeriodID = stringPtr(periodID)
	t.Archived = archived != 0
	t.IsSubtask = isSubtask != 0
	t.ParentTaskID = stringPtr(parentID)
	t.SubtaskIDs = jsonList(subtasks)
	return t, nil
}

func taskValues(t domain.Task) []any {
	return []any{
		t.ID, t.TenantID, t.Code, t.Title, ListJSON(t.Owners), ListJSON(t.Reviewers),
		nullableStringPtr(t.WeightID), t.Status, t.Priority, t.Progress,
		nullableInt64Ptr(t.StartDate), nullableInt64Ptr(t.EndDate),
		nullableStringPtr(t.GoalID), nullableStringPtr(t.ObjectiveID), nullableStringPtr(t.PeriodID),
		t.Archived, t.IsSubtask, nullableStringPtr(t.ParentTaskID), ListJSON(t.SubtaskIDs),
		t.CreatedAt, t.UpdatedAt,
	}
}

func stampTask(t domain.Task, s tenant.Scope) domain.Task {
	t.TenantID = s.TenantID
	return t
}

// TaskView is a task joined with its subtasks.
type TaskView struct {
	domain.Task
	Subtasks []domain.Task `json:"subtasks,omitempty"`
}

type TaskStore struct {
	Col *Collection[domain.Task]
}

func taskCollection(r Repo) *Collection[domain.Task] {
	return NewCollection(r, "tasks", taskColumns, scanTask, taskValues, stampTask)
}

func (s *TaskStore) Tx(tx *sql.Tx) *TaskStore {
	return &TaskStore{Col: s.Col.Tx(tx)}
}

// Get returns the task joined with its subtasks.
func (s *TaskStore) Get(ctx context.Context, id string) (TaskView, error) {
	t, err := s.Col.FindByID(ctx, id)
	if err != nil {
		return TaskView{}, err
	}
	var q Query
	q.And("parent_task_id=?", id)
	subtasks, err := s.Col.Find(ctx, q, 0, 0)
	if err != nil {
		return TaskView{}, err
	}
	return TaskView{Task: t, Subtasks: subtasks}, nil
}

// SubtaskLink carries the parent-side values written when a subtask is
// created. ParentStatus and ParentProgress are caller supplied; nil leaves
// the parent field untouched.
type SubtaskLink struct {
	ParentID       string
	ParentStatus   *domain.Status
	ParentProgress *int
}

// CreateSubtask inserts the subtask and updates the parent in the same
// statement batch: the new id is appended to the parent's subtask list and
// any linkage status/progress lands in the same patch. The caller supplies
// a tx so the writes commit together.
func (s *TaskStore) CreateSubtask(ctx context.Context, sub domain.Task, link SubtaskLink) (domain.Task, error) {
	parent, err := s.Col.FindByID(ctx, link.ParentID)
	if err != nil {
		return domain.Task{}, err
	}
	sub.IsSubtask = true
	sub.ParentTaskID = &parent.ID
	created, err := s.Col.Create(ctx, sub)
	if err != nil {
		return domain.Task{}, err
	}
	var p Patch
	p.Set("subtask_ids_json", ListJSON(append(parent.SubtaskIDs, created.ID)))
	if link.ParentStatus != nil {
		p.Set("status", string(*link.ParentStatus))
	}
	if link.ParentProgress != nil {
		p.Set("progress", *link.ParentProgress)
	}
	p.Set("updated_at", created.UpdatedAt)
	if _, err := s.Col.UpdateByID(ctx, parent.ID, p); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// SubtasksOf lists the subtasks of each parent id, non-archived only.
func (s *TaskStore) SubtasksOf(ctx context.Context, parentIDs []string) ([]domain.Task, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		args[i] = id
	}
	var q Query
	q.And("parent_task_id IN ("+placeholders(len(parentIDs))+")", args...)
	q.And("archived=0")
	return s.Col.Find(ctx, q, 0, 0)
}

// TasksOfObjective lists the non-archived top-level tasks under an
// objective. Subtasks never contribute to objective aggregates.
func (s *TaskStore) TasksOfObjective(ctx context.Context, objectiveID string) ([]domain.Task, error) {
	var q Query
	q.And("objective_id=?", objectiveID)
	q.And("is_subtask=0")
	q.And("archived=0")
	return s.Col.Find(ctx, q, 0, 0)
}

// Delete removes the listed tasks plus the subtasks of any deleted parent,
// and prunes the deleted ids from surviving parents' subtask lists. It
// reports the ids that did not exist under the active tenant.
func (s *TaskStore) Delete(ctx context.Context, ids []string) (deleted []domain.Task, missing []string, err error) {
	for _, id := range ids {
		t, err := s.Col.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		deleted = append(deleted, t)
	}
	if len(deleted) == 0 {
		return nil, missing, nil
	}
	doomed := map[string]bool{}
	var doomedIDs []string
	for _, t := range deleted {
		doomed[t.ID] = true
		doomedIDs = append(doomedIDs, t.ID)
		for _, sub := range t.SubtaskIDs {
			if !doomed[sub] {
				doomed[sub] = true
				doomedIDs = append(doomedIDs, sub)
			}
		}
	}
	if _, err := s.Col.DeleteByIDs(ctx, doomedIDs); err != nil {
		return nil, nil, err
	}
	// Subtasks deleted directly leave a stale reference on their parent.
	for _, t := range deleted {
		if t.ParentTaskID == nil || doomed[*t.ParentTaskID] {
			continue
		}
		if err := s.pruneSubtaskRef(ctx, *t.ParentTaskID, doomed); err != nil {
			return nil, nil, err
		}
	}
	return deleted, missing, nil
}

func (s *TaskStore) pruneSubtaskRef(ctx context.Context, parentID string, doomed map[string]bool) error {
	parent, err := s.Col.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	var kept []string
	for _, id := range parent.SubtaskIDs {
		if !doomed[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(parent.SubtaskIDs) {
		return nil
	}
	var p Patch
	p.Set("subtask_ids_json", ListJSON(kept))
	_, err = s.Col.UpdateByID(ctx, parentID, p)
	return err
}

// ArchiveMany flips the archived flag on the listed tasks and returns the
// updated rows.
func (s *TaskStore) ArchiveMany(ctx context.Context, ids []string, archived bool, updatedAt string) ([]domain.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var q Query
	q.And("id IN ("+placeholders(len(ids))+")", args...)
	var p Patch
	p.Set("archived", archived)
	p.Set("updated_at", updatedAt)
	if _, err := s.Col.UpdateMany(ctx, q, p); err != nil {
		return nil, err
	}
	return s.Col.Find(ctx, q, 0, 0)
}

// MoveTasks reassigns tasks to a period, stamping the period's date window
// onto each task. Ids that do not resolve under the active tenant are
// reported back rather than failing the batch.
func (s *TaskStore) MoveTasks(ctx context.Context, ids []string, period *domain.Period, updatedAt string) (moved []domain.Task, errorIDs []string, err error) {
	for _, id := range ids {
		var p Patch
		if period != nil {
			p.Set("period_id", period.ID)
			p.Set("start_date", nullableInt64Ptr(period.StartDate))
			p.Set("end_date", nullableInt64Ptr(period.EndDate))
		} else {
			p.Set("period_id", nil)
		}
		p.Set("updated_at", updatedAt)
		t, err := s.Col.UpdateByID(ctx, id, p)
		if errors.Is(err, ErrNotFound) {
			errorIDs = append(errorIDs, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		moved = append(moved, t)
	}
	return moved, errorIDs, nil
}

// StatusCounts groups the tenant's tasks by status.
func (s *TaskStore) StatusCounts(ctx context.Context, q Query) (map[domain.Status]int, error) {
	return statusCounts(ctx, s.Col.Aggregate, q)
}
