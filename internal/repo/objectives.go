package repo

import (
	"context"
	"database/sql"
	"errors"

	"goalline/internal/domain"
	"goalline/internal/tenant"
)

var objectiveColumns = []string{
	"id", "tenant_id", "code", "title", "goal_id", "collaborators_json", "teams_json",
	"status", "progress", "start_date", "end_date", "priority", "archived",
	"created_at", "updated_at",
}

func scanObjective(s RowScanner) (domain.Objective, error) {
	var o domain.Objective
	var goalID, collaborators, teams, priority sql.NullString
	var start, end sql.NullInt64
	var archived int
	err := s.Scan(&o.ID, &o.TenantID, &o.Code, &o.Title, &goalID, &collaborators, &teams,
		&o.Status, &o.Progress, &start, &end, &priority, &archived,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.GoalID = stringPtr(goalID)
	o.Collaborators = jsonList(collaborators)
	o.Teams = jsonList(teams)
	if priority.Valid {
		o.Priority = priority.String
	}
	o.StartDate = int64Ptr(start)
	o.EndDate = int64Ptr(end)
	o.Archived = archived != 0
	return o, nil
}

func objectiveValues(o domain.Objective) []any {
	return []any{
		o.ID, o.TenantID, o.Code, o.Title, nullableStringPtr(o.GoalID),
		ListJSON(o.Collaborators), ListJSON(o.Teams), o.Status, o.Progress,
		nullableInt64Ptr(o.StartDate), nullableInt64Ptr(o.EndDate),
		nullable(o.Priority), o.Archived, o.CreatedAt, o.UpdatedAt,
	}
}

func stampObjective(o domain.Objective, s tenant.Scope) domain.Objective {
	o.TenantID = s.TenantID
	return o
}

// ObjectiveView is an objective joined with its goal and tasks.
type ObjectiveView struct {
	domain.Objective
	Goal  *domain.Goal  `json:"goal,omitempty"`
	Tasks []domain.Task `json:"tasks,omitempty"`
}

type ObjectiveStore struct {
	Col   *Collection[domain.Objective]
	goals *Collection[domain.Goal]
	tasks *Collection[domain.Task]
}

func objectiveCollection(r Repo) *Collection[domain.Objective] {
	return NewCollection(r, "objectives", objectiveColumns, scanObjective, objectiveValues, stampObjective)
}

func (s *ObjectiveStore) Tx(tx *sql.Tx) *ObjectiveStore {
	return &ObjectiveStore{Col: s.Col.Tx(tx), goals: s.goals.Tx(tx), tasks: s.tasks.Tx(tx)}
}

// Get returns the objective joined with its goal and tasks.
func (s *ObjectiveStore) Get(ctx context.Context, id string) (ObjectiveView, error) {
	o, err := s.Col.FindByID(ctx, id)
	if err != nil {
		return ObjectiveView{}, err
	}
	view := ObjectiveView{Objective: o}
	if o.GoalID != nil {
		g, err := s.goals.FindByID(ctx, *o.GoalID)
		if err == nil {
			view.Goal = &g
		} else if !errors.Is(err, ErrNotFound) {
			return ObjectiveView{}, err
		}
	}
	var q Query
	q.And("objective_id=?", id)
	q.And("is_subtask=0")
	tasks, err := s.tasks.Find(ctx, q, 0, 0)
	if err != nil {
		return ObjectiveView{}, err
	}
	view.Tasks = tasks
	return view, nil
}

// TasksOf lists the non-archived, non-subtask tasks contributing to an
// objective's aggregate state.
func (s *ObjectiveStore) TasksOf(ctx context.Context, objectiveID string) ([]domain.Task, error) {
	var q Query
	q.And("objective_id=?", objectiveID)
	q.And("is_subtask=0")
	q.And("archived=0")
	return s.tasks.Find(ctx, q, 0, 0)
}

func (s *ObjectiveStore) StatusCounts(ctx context.Context, q Query) (map[domain.Status]int, error) {
	return statusCounts(ctx, s.Col.Aggregate, q)
}
