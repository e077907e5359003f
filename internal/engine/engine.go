package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goalline/internal/config"
	"goalline/internal/domain"
	"goalline/internal/events"
	"goalline/internal/filter"
	"goalline/internal/repo"
)

const pageSize = 20

type Engine struct {
	DB     *sql.DB
	Stores *repo.Stores
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Stores: repo.NewStores(db),
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Page is one page of a filtered listing.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

type PageMeta struct {
	TotalRowCount int `json:"totalRowCount"`
}

// DeleteResult summarizes a bulk delete.
type DeleteResult struct {
	DeletedCount int      `json:"deletedCount"`
	IDs          []string `json:"ids"`
}

// MoveResult summarizes a bulk period move. ErrorIDs holds the ids that
// did not resolve; the rest of the batch still went through.
type MoveResult struct {
	IDs      []string `json:"ids"`
	ErrorIDs []string `json:"errorIds"`
}

type GoalCreateOptions struct {
	Title         string
	Collaborators []string
	Teams         []string
	StartDate     *int64
	EndDate       *int64
	Priority      string
}

func (e Engine) CreateGoal(ctx context.Context, opts GoalCreateOptions) (domain.Goal, error) {
	if opts.Title == "" {
		return domain.Goal{}, errors.New("title is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	seq, err := e.Stores.Repo.NextSequence(ctx, tx, repo.CounterGoals)
	if err != nil {
		return domain.Goal{}, err
	}
	now := e.stamp()
	g := domain.Goal{
		ID:            uuid.NewString(),
		Code:          fmt.Sprintf("GL-%d", seq),
		Title:         opts.Title,
		Collaborators: opts.Collaborators,
		Teams:         opts.Teams,
		Status:        domain.StatusNotStarted,
		StartDate:     opts.StartDate,
		EndDate:       opts.EndDate,
		Priority:      opts.Priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := e.Stores.Goals.Tx(tx).Col.Create(ctx, g)
	if err != nil {
		return domain.Goal{}, err
	}
	if err := e.Events.Append(ctx, tx, "goal.create", "goal", created.ID, events.EventPayload{"code": created.Code}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return created, nil
}

type ObjectiveCreateOptions struct {
	Title         string
	GoalID        *string
	Collaborators []string
	Teams         []string
	StartDate     *int64
	EndDate       *int64
	Priority      string
}

func (e Engine) CreateObjective(ctx context.Context, opts ObjectiveCreateOptions) (domain.Objective, error) {
	if opts.Title == "" {
		return domain.Objective{}, errors.New("title is required")
	}
	if opts.GoalID != nil {
		if err := repo.CheckID(*opts.GoalID); err != nil {
			return domain.Objective{}, err
		}
		if _, err := e.Stores.Goals.Col.FindByID(ctx, *opts.GoalID); err != nil {
			return domain.Objective{}, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Objective{}, err
	}
	defer tx.Rollback()

	seq, err := e.Stores.Repo.NextSequence(ctx, tx, repo.CounterObjectives)
	if err != nil {
		return domain.Objective{}, err
	}
	now := e.stamp()
	o := domain.Objective{
		ID:            uuid.NewString(),
		Code:          fmt.Sprintf("OB-%d", seq),
		Title:         opts.Title,
		GoalID:        opts.GoalID,
		Collaborators: opts.Collaborators,
		Teams:         opts.Teams,
		Status:        domain.StatusNotStarted,
		StartDate:     opts.StartDate,
		EndDate:       opts.EndDate,
		Priority:      opts.Priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := e.Stores.Objs.Tx(tx).Col.Create(ctx, o)
	if err != nil {
		return domain.Objective{}, err
	}
	if created.GoalID != nil {
		if err := e.recomputeGoal(ctx, tx, *created.GoalID); err != nil {
			return domain.Objective{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "objective.create", "objective", created.ID, events.EventPayload{"code": created.Code}); err != nil {
		return domain.Objective{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Objective{}, err
	}
	return created, nil
}

type TaskCreateOptions struct {
	Title       string
	Owners      []string
	Reviewers   []string
	WeightID    *string
	Priority    string
	StartDate   *int64
	EndDate     *int64
	GoalID      *string
	ObjectiveID *string
	PeriodID    *string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	return e.createTask(ctx, opts, nil)
}

// CreateSubtask creates a task under link.ParentID. The caller states what
// the parent's status and progress become alongside the new child; those
// land in the same parent update that appends the subtask id. Subtasks
// never enter the objective aggregate, so no cascade runs.
func (e Engine) CreateSubtask(ctx context.Context, opts TaskCreateOptions, link repo.SubtaskLink) (domain.Task, error) {
	if err := repo.CheckID(link.ParentID); err != nil {
		return domain.Task{}, err
	}
	if link.ParentStatus != nil && !link.ParentStatus.Valid() {
		return domain.Task{}, fmt.Errorf("unknown status %q", *link.ParentStatus)
	}
	if link.ParentProgress != nil && (*link.ParentProgress < 0 || *link.ParentProgress > 100) {
		return domain.Task{}, errors.New("progress must be between 0 and 100")
	}
	return e.createTask(ctx, opts, &link)
}

func (e Engine) createTask(ctx context.Context, opts TaskCreateOptions, link *repo.SubtaskLink) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if opts.Priority == "" {
		opts.Priority = "Medium"
	}
	if opts.WeightID != nil && e.Config != nil {
		if _, ok := e.Config.Weights[*opts.WeightID]; !ok {
			return domain.Task{}, fmt.Errorf("weight %s not in catalog", *opts.WeightID)
		}
	}
	if opts.ObjectiveID != nil {
		if err := repo.CheckID(*opts.ObjectiveID); err != nil {
			return domain.Task{}, err
		}
		obj, err := e.Stores.Objs.Col.FindByID(ctx, *opts.ObjectiveID)
		if err != nil {
			return domain.Task{}, err
		}
		// A task under an objective inherits the objective's goal.
		if opts.GoalID == nil {
			opts.GoalID = obj.GoalID
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	seq, err := e.Stores.Repo.NextSequence(ctx, tx, repo.CounterTasks)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.stamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		Code:        fmt.Sprintf("TS-%d", seq),
		Title:       opts.Title,
		Owners:      opts.Owners,
		Reviewers:   opts.Reviewers,
		WeightID:    opts.WeightID,
		Status:      domain.StatusNotStarted,
		Priority:    opts.Priority,
		StartDate:   opts.StartDate,
		EndDate:     opts.EndDate,
		GoalID:      opts.GoalID,
		ObjectiveID: opts.ObjectiveID,
		PeriodID:    opts.PeriodID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tasks := e.Stores.Tasks.Tx(tx)
	var created domain.Task
	if link != nil {
		created, err = tasks.CreateSubtask(ctx, t, *link)
	} else {
		created, err = tasks.Col.Create(ctx, t)
	}
	if err != nil {
		return domain.Task{}, err
	}
	if !created.IsSubtask && created.ObjectiveID != nil {
		if err := e.cascadeFromObjective(ctx, tx, *created.ObjectiveID); err != nil {
			return domain.Task{}, err
		}
	}
	kind := "task"
	if created.IsSubtask {
		kind = "subtask"
	}
	if err := e.Events.Append(ctx, tx, kind+".create", kind, created.ID, events.EventPayload{"code": created.Code}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// GetGoals lists the tenant's goals matching the filter bag, 20 per page.
func (e Engine) GetGoals(ctx context.Context, bag filter.Bag, page int) (Page[domain.Goal], error) {
	q, err := filter.Goals(bag, e.now())
	if err != nil {
		return Page[domain.Goal]{}, err
	}
	return listPage(ctx, e.Stores.Goals.Col, q, page)
}

func (e Engine) GetObjectives(ctx context.Context, bag filter.Bag, page int) (Page[domain.Objective], error) {
	q, err := filter.Objectives(bag, e.now())
	if err != nil {
		return Page[domain.Objective]{}, err
	}
	return listPage(ctx, e.Stores.Objs.Col, q, page)
}

// GetTasks lists top-level tasks. When actorID is set the listing narrows
// to tasks the actor owns or reviews.
func (e Engine) GetTasks(ctx context.Context, bag filter.Bag, actorID string, page int) (Page[domain.Task], error) {
	q, err := filter.Tasks(bag, e.now())
	if err != nil {
		return Page[domain.Task]{}, err
	}
	q.And("is_subtask=0")
	if actorID != "" {
		q.And(`(EXISTS (SELECT 1 FROM json_each(owners_json) WHERE value=?)
			OR EXISTS (SELECT 1 FROM json_each(reviewers_json) WHERE value=?))`, actorID, actorID)
	}
	return listPage(ctx, e.Stores.Tasks.Col, q, page)
}

func listPage[T any](ctx context.Context, col *repo.Collection[T], q repo.Query, page int) (Page[T], error) {
	if page < 0 {
		page = 0
	}
	total, err := col.Count(ctx, q)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := col.Find(ctx, q, page*pageSize, pageSize)
	if err != nil {
		return Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: PageMeta{TotalRowCount: total}}, nil
}

func (e Engine) GetGoal(ctx context.Context, id string) (repo.GoalView, error) {
	if err := repo.CheckID(id); err != nil {
		return repo.GoalView{}, err
	}
	return e.Stores.Goals.Get(ctx, id)
}

func (e Engine) GetObjective(ctx context.Context, id string) (repo.ObjectiveView, error) {
	if err := repo.CheckID(id); err != nil {
		return repo.ObjectiveView{}, err
	}
	return e.Stores.Objs.Get(ctx, id)
}

func (e Engine) GetTask(ctx context.Context, id string) (repo.TaskView, error) {
	if err := repo.CheckID(id); err != nil {
		return repo.TaskView{}, err
	}
	return e.Stores.Tasks.Get(ctx, id)
}
