package engine

import (
	"context"
	"errors"
	"fmt"

	"goalline/internal/domain"
	"goalline/internal/events"
	"goalline/internal/repo"
)

// GoalPatch carries the fields a goal update may touch. Status and progress
// are derived from the goal's objectives and are not settable here.
type GoalPatch struct {
	Title         *string
	Collaborators *[]string
	Teams         *[]string
	StartDate     *int64
	EndDate       *int64
	Priority      *string
	Archived      *bool
	CommentCount  *int
}

func (e Engine) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (domain.Goal, error) {
	if err := repo.CheckID(id); err != nil {
		return domain.Goal{}, err
	}
	var p repo.Patch
	if patch.Title != nil {
		if *patch.Title == "" {
			return domain.Goal{}, errors.New("title is required")
		}
		p.Set("title", *patch.Title)
	}
	if patch.Collaborators != nil {
		p.Set("collaborators_json", repo.ListJSON(*patch.Collaborators))
	}
	if patch.Teams != nil {
		p.Set("teams_json", repo.ListJSON(*patch.Teams))
	}
	if patch.StartDate != nil {
		p.Set("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		p.Set("end_date", *patch.EndDate)
	}
	if patch.Priority != nil {
		p.Set("priority", *patch.Priority)
	}
	if patch.Archived != nil {
		p.Set("archived", *patch.Archived)
	}
	if patch.CommentCount != nil {
		p.Set("comment_count", *patch.CommentCount)
	}
	if p.Empty() {
		return e.Stores.Goals.Col.FindByID(ctx, id)
	}
	p.Set("updated_at", e.stamp())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	updated, err := e.Stores.Goals.Tx(tx).Col.UpdateByID(ctx, id, p)
	if err != nil {
		return domain.Goal{}, err
	}
	if err := e.Events.Append(ctx, tx, "goal.update", "goal", id, nil); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return updated, nil
}

// ObjectivePatch carries the fields an objective update may touch. Status
// and progress are derived from the objective's tasks.
type ObjectivePatch struct {
	Title         *string
	GoalID        *string
	ClearGoal     bool
	Collaborators *[]string
	Teams         *[]string
	StartDate     *int64
	EndDate       *int64
	Priority      *string
	Archived      *bool
}

func (e Engine) UpdateObjective(ctx context.Context, id string, patch ObjectivePatch) (domain.Objective, error) {
	if err := repo.CheckID(id); err != nil {
		return domain.Objective{}, err
	}
	before, err := e.Stores.Objs.Col.FindByID(ctx, id)
	if err != nil {
		return domain.Objective{}, err
	}
	var p repo.Patch
	if patch.Title != nil {
		if *patch.Title == "" {
			return domain.Objective{}, errors.New("title is required")
		}
		p.Set("title", *patch.Title)
	}
	if patch.ClearGoal {
		p.Set("goal_id", nil)
	} else if patch.GoalID != nil {
		if err := repo.CheckID(*patch.GoalID); err != nil {
			return domain.Objective{}, err
		}
		if _, err := e.Stores.Goals.Col.FindByID(ctx, *patch.GoalID); err != nil {
			return domain.Objective{}, err
		}
		p.Set("goal_id", *patch.GoalID)
	}
	if patch.Collaborators != nil {
		p.Set("collaborators_json", repo.ListJSON(*patch.Collaborators))
	}
	if patch.Teams != nil {
		p.Set("teams_json", repo.ListJSON(*patch.Teams))
	}
	if patch.StartDate != nil {
		p.Set("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		p.Set("end_date", *patch.EndDate)
	}
	if patch.Priority != nil {
		p.Set("priority", *patch.Priority)
	}
	if patch.Archived != nil {
		p.Set("archived", *patch.Archived)
	}
	if p.Empty() {
		return before, nil
	}
	p.Set("updated_at", e.stamp())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Objective{}, err
	}
	defer tx.Rollback()

	updated, err := e.Stores.Objs.Tx(tx).Col.UpdateByID(ctx, id, p)
	if err != nil {
		return domain.Objective{}, err
	}
	// Re-linking or archiving changes which goals aggregate this objective.
	var goalIDs []string
	if before.GoalID != nil {
		goalIDs = append(goalIDs, *before.GoalID)
	}
	if updated.GoalID != nil && (before.GoalID == nil || *before.GoalID != *updated.GoalID) {
		goalIDs = append(goalIDs, *updated.GoalID)
	}
	for _, gid := range goalIDs {
		if err := e.recomputeGoal(ctx, tx, gid); err != nil {
			return domain.Objective{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "objective.update", "objective", id, nil); err != nil {
		return domain.Objective{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Objective{}, err
	}
	return updated, nil
}

// TaskPatch carries the fields a task update may touch. Tasks are leaves,
// so their status and progress are set directly.
type TaskPatch struct {
	Title          *string
	Owners         *[]string
	Reviewers      *[]string
	WeightID       *string
	ClearWeight    bool
	Status         *domain.Status
	Priority       *string
	Progress       *int
	StartDate      *int64
	EndDate        *int64
	GoalID         *string
	ObjectiveID    *string
	ClearObjective bool
	PeriodID       *string
	ClearPeriod    bool
	Archived       *bool
}

func (e Engine) UpdateTask(ctx context.Context, id string, patch TaskPatch) (domain.Task, error) {
	return e.updateTask(ctx, id, patch, false)
}

// UpdateSubtask patches a subtask. Subtasks never feed the cascade.
func (e Engine) UpdateSubtask(ctx context.Context, id string, patch TaskPatch) (domain.Task, error) {
	return e.updateTask(ctx, id, patch, true)
}

func (e Engine) updateTask(ctx context.Context, id string, patch TaskPatch, subtask bool) (domain.Task, error) {
	if err := repo.CheckID(id); err != nil {
		return domain.Task{}, err
	}
	before, err := e.Stores.Tasks.Col.FindByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if before.IsSubtask != subtask {
		return domain.Task{}, repo.ErrNotFound
	}
	var p repo.Patch
	if patch.Title != nil {
		if *patch.Title == "" {
			return domain.Task{}, errors.New("title is required")
		}
		p.Set("title", *patch.Title)
	}
	if patch.Owners != nil {
		p.Set("owners_json", repo.ListJSON(*patch.Owners))
	}
	if patch.Reviewers != nil {
		p.Set("reviewers_json", repo.ListJSON(*patch.Reviewers))
	}
	if patch.ClearWeight {
		p.Set("weight_id", nil)
	} else if patch.WeightID != nil {
		if e.Config != nil {
			if _, ok := e.Config.Weights[*patch.WeightID]; !ok {
				return domain.Task{}, fmt.Errorf("weight %s not in catalog", *patch.WeightID)
			}
		}
		p.Set("weight_id", *patch.WeightID)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return domain.Task{}, fmt.Errorf("unknown status %q", *patch.Status)
		}
		p.Set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		p.Set("priority", *patch.Priority)
	}
	if patch.Progress != nil {
		if *patch.Progress < 0 || *patch.Progress > 100 {
			return domain.Task{}, errors.New("progress must be between 0 and 100")
		}
		p.Set("progress", *patch.Progress)
	}
	if patch.StartDate != nil {
		p.Set("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		p.Set("end_date", *patch.EndDate)
	}
	if patch.GoalID != nil {
		if err := repo.CheckID(*patch.GoalID); err != nil {
			return domain.Task{}, err
		}
		p.Set("goal_id", *patch.GoalID)
	}
	if patch.ClearObjective {
		p.Set("objective_id", nil)
	} else if patch.ObjectiveID != nil {
		if err := repo.CheckID(*patch.ObjectiveID); err != nil {
			return domain.Task{}, err
		}
		if _, err := e.Stores.Objs.Col.FindByID(ctx, *patch.ObjectiveID); err != nil {
			return domain.Task{}, err
		}
		p.Set("objective_id", *patch.ObjectiveID)
	}
	if patch.ClearPeriod {
		p.Set("period_id", nil)
	} else if patch.PeriodID != nil {
		p.Set("period_id", *patch.PeriodID)
	}
	if patch.Archived != nil {
		p.Set("archived", *patch.Archived)
	}
	if p.Empty() {
		return before, nil
	}
	p.Set("updated_at", e.stamp())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	updated, err := e.Stores.Tasks.Tx(tx).Col.UpdateByID(ctx, id, p)
	if err != nil {
		return domain.Task{}, err
	}
	if !subtask {
		var objectiveIDs []string
		if before.ObjectiveID != nil {
			objectiveIDs = append(objectiveIDs, *before.ObjectiveID)
		}
		if updated.ObjectiveID != nil && (before.ObjectiveID == nil || *before.ObjectiveID != *updated.ObjectiveID) {
			objectiveIDs = append(objectiveIDs, *updated.ObjectiveID)
		}
		if err := e.cascadeObjectives(ctx, tx, objectiveIDs, nil); err != nil {
			return domain.Task{}, err
		}
	}
	kind := "task"
	if subtask {
		kind = "subtask"
	}
	if err := e.Events.Append(ctx, tx, kind+".update", kind, id, nil); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// DeleteGoals hard-deletes goals. Their objectives are left in place and
// simply lose the aggregation target; this asymmetry with objective
// deletion is deliberate.
func (e Engine) DeleteGoals(ctx context.Context, ids []string) (DeleteResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()

	n, err := e.Stores.Goals.Tx(tx).Col.DeleteByIDs(ctx, ids)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := e.Events.Append(ctx, tx, "goal.delete", "goal", "", events.EventPayload{"ids": ids}); err != nil {
		return DeleteResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedCount: int(n), IDs: ids}, nil
}

// DeleteObjectives hard-deletes objectives together with their tasks, then
// refreshes the goals that aggregated them.
func (e Engine) DeleteObjectives(ctx context.Context, ids []string) (DeleteResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()

	objs := e.Stores.Objs.Tx(tx)
	var goalIDs []string
	var taskIDs []string
	for _, id := range ids {
		o, err := objs.Col.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return DeleteResult{}, err
		}
		if o.GoalID != nil {
			goalIDs = append(goalIDs, *o.GoalID)
		}
		tasks, err := objs.TasksOf(ctx, id)
		if err != nil {
			return DeleteResult{}, err
		}
		for _, t := range tasks {
			taskIDs = append(taskIDs, t.ID)
		}
	}
	if len(taskIDs) > 0 {
		if _, _, err := e.Stores.Tasks.Tx(tx).Delete(ctx, taskIDs); err != nil {
			return DeleteResult{}, err
		}
	}
	n, err := objs.Col.DeleteByIDs(ctx, ids)
	if err != nil {
		return DeleteResult{}, err
	}
	for _, gid := range goalIDs {
		if err := e.recomputeGoal(ctx, tx, gid); err != nil {
			return DeleteResult{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "objective.delete", "objective", "", events.EventPayload{"ids": ids}); err != nil {
		return DeleteResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedCount: int(n), IDs: ids}, nil
}

// DeleteTasks hard-deletes tasks, dragging each deleted parent's subtasks
// along and refreshing the objectives the tasks contributed to.
func (e Engine) DeleteTasks(ctx context.Context, ids []string) (DeleteResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()

	deleted, _, err := e.Stores.Tasks.Tx(tx).Delete(ctx, ids)
	if err != nil {
		return DeleteResult{}, err
	}
	var objectiveIDs []string
	var deletedIDs []string
	for _, t := range deleted {
		deletedIDs = append(deletedIDs, t.ID)
		if !t.IsSubtask && t.ObjectiveID != nil {
			objectiveIDs = append(objectiveIDs, *t.ObjectiveID)
		}
	}
	if err := e.cascadeObjectives(ctx, tx, objectiveIDs, nil); err != nil {
		return DeleteResult{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.delete", "task", "", events.EventPayload{"ids": deletedIDs}); err != nil {
		return DeleteResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedCount: len(deletedIDs), IDs: deletedIDs}, nil
}

// ArchiveGoals flips the archived flag on a batch of goals.
func (e Engine) ArchiveGoals(ctx context.Context, ids []string, archived bool) ([]domain.Goal, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	goals := e.Stores.Goals.Tx(tx)
	var updated []domain.Goal
	for _, id := range ids {
		var p repo.Patch
		p.Set("archived", archived)
		p.Set("updated_at", e.stamp())
		g, err := goals.Col.UpdateByID(ctx, id, p)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		updated = append(updated, g)
	}
	if err := e.Events.Append(ctx, tx, "goal.archive", "goal", "", events.EventPayload{"ids": ids, "archived": archived}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// ArchiveObjectives flips the archived flag and refreshes the affected
// goals, since archived objectives leave the aggregate.
func (e Engine) ArchiveObjectives(ctx context.Context, ids []string, archived bool) ([]domain.Objective, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	objs := e.Stores.Objs.Tx(tx)
	var updated []domain.Objective
	var goalIDs []string
	for _, id := range ids {
		var p repo.Patch
		p.Set("archived", archived)
		p.Set("updated_at", e.stamp())
		o, err := objs.Col.UpdateByID(ctx, id, p)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		updated = append(updated, o)
		if o.GoalID != nil {
			goalIDs = append(goalIDs, *o.GoalID)
		}
	}
	if err := e.cascadeObjectives(ctx, tx, nil, goalIDs); err != nil {
		return nil, err
	}
	if err := e.Events.Append(ctx, tx, "objective.archive", "objective", "", events.EventPayload{"ids": ids, "archived": archived}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// ArchiveTasks flips the archived flag and refreshes the affected
// objectives, since archived tasks leave the aggregate.
func (e Engine) ArchiveTasks(ctx context.Context, ids []string, archived bool) ([]domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated, err := e.Stores.Tasks.Tx(tx).ArchiveMany(ctx, ids, archived, e.stamp())
	if err != nil {
		return nil, err
	}
	var objectiveIDs []string
	for _, t := range updated {
		if !t.IsSubtask && t.ObjectiveID != nil {
			objectiveIDs = append(objectiveIDs, *t.ObjectiveID)
		}
	}
	if err := e.cascadeObjectives(ctx, tx, objectiveIDs, nil); err != nil {
		return nil, err
	}
	if err := e.Events.Append(ctx, tx, "task.archive", "task", "", events.EventPayload{"ids": ids, "archived": archived}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// MoveTasks reassigns a batch of tasks to a period (nil means backlog).
// Moved tasks take over the period's date window. Unknown ids are reported
// in ErrorIDs without failing the batch.
func (e Engine) MoveTasks(ctx context.Context, ids []string, periodID *string) (MoveResult, error) {
	var period *domain.Period
	if periodID != nil {
		p, err := e.Stores.Periods.Col.FindByID(ctx, *periodID)
		if err != nil {
			return MoveResult{}, err
		}
		period = &p
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return MoveResult{}, err
	}
	defer tx.Rollback()

	moved, errorIDs, err := e.Stores.Tasks.Tx(tx).MoveTasks(ctx, ids, period, e.stamp())
	if err != nil {
		return MoveResult{}, err
	}
	movedIDs := make([]string, len(moved))
	for i, t := range moved {
		movedIDs[i] = t.ID
	}
	if err := e.Events.Append(ctx, tx, "task.move", "task", "", events.EventPayload{"ids": movedIDs}); err != nil {
		return MoveResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return MoveResult{}, err
	}
	return MoveResult{IDs: movedIDs, ErrorIDs: errorIDs}, nil
}
