package repo

import (
	"context"
	"database/sql"

	"goalline/internal/domain"
	"goalline/internal/tenant"
)

var goalColumns = []string{
	"id", "tenant_id", "code", "title", "collaborators_json", "teams_json",
	"status", "progress", "start_date", "end_date", "priority", "archived",
	"comment_count", "created_at", "updated_at",
}

func scanGoal(s RowScanner) (domain.Goal, error) {
	var g domain.Goal
	var collaborators, teams, priority sql.NullString
	var start, end sql.NullInt64
	var archived int
	err := s.Scan(&g.ID, &g.TenantID, &g.Code, &g.Title, &collaborators, &teams,
		&g.Status, &g.Progress, &start, &end, &priority, &archived,
		&g.CommentCount, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, err
	}
	g.Collaborators = jsonList(collaborators)
	g.Teams = jsonList(teams)
	if priority.Valid {
		g.Priority = priority.String
	}
	g.StartDate = int64Ptr(start)
	g.EndDate = int64Ptr(end)
	g.Archived = archived != 0
	return g, nil
}

func goalValues(g domain.Goal) []any {
	return []any{
		g.ID, g.TenantID, g.Code, g.Title, ListJSON(g.Collaborators), ListJSON(g.Teams),
		g.Status, g.Progress, nullableInt64Ptr(g.StartDate), nullableInt64Ptr(g.EndDate),
		nullable(g.Priority), g.Archived, g.CommentCount, g.CreatedAt, g.UpdatedAt,
	}
}

func stampGoal(g domain.Goal, s tenant.Scope) domain.Goal {
	g.TenantID = s.TenantID
	return g
}

// GoalView is a goal joined with its objectives.
type GoalView struct {
	domain.Goal
	Objectives []domain.Objective `json:"objectives,omitempty"`
}

type GoalStore struct {
	Col        *Collection[domain.Goal]
	objectives *Collection[domain.Objective]
}

func goalCollection(r Repo) *Collection[domain.Goal] {
	return NewCollection(r, "goals", goalColumns, scanGoal, goalValues, stampGoal)
}

// Tx returns a view of the store running on the given transaction.
func (s *GoalStore) Tx(tx *sql.Tx) *GoalStore {
	return &GoalStore{Col: s.Col.Tx(tx), objectives: s.objectives.Tx(tx)}
}

// Get returns the goal joined with its objectives.
func (s *GoalStore) Get(ctx context.Context, id string) (GoalView, error) {
	g, err := s.Col.FindByID(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	var q Query
	q.And("goal_id=?", id)
	objs, err := s.objectives.Find(ctx, q, 0, 0)
	if err != nil {
		return GoalView{}, err
	}
	return GoalView{Goal: g, Objectives: objs}, nil
}

// ObjectivesOf lists the non-archived objectives contributing to a goal's
// aggregate state.
func (s *GoalStore) ObjectivesOf(ctx context.Context, goalID string) ([]domain.Objective, error) {
	var q Query
	q.And("goal_id=?", goalID)
	q.And("archived=0")
	return s.objectives.Find(ctx, q, 0, 0)
}

// StatusCounts groups the tenant's goals by status.
func (s *GoalStore) StatusCounts(ctx context.Context, q Query) (map[domain.Status]int, error) {
	return statusCounts(ctx, s.Col.Aggregate, q)
}

// statusCounts runs the shared group-by-status projection over a collection.
func statusCounts(ctx context.Context, aggregate func(context.Context, string, Query, string) (*sql.Rows, error), q Query) (map[domain.Status]int, error) {
	rows, err := aggregate(ctx, "status, count(*)", q, "GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[domain.Status]int{}
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		res[status] = n
	}
	return res, rows.Err()
}
