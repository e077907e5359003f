package engine

import (
	"context"
	"database/sql"
	"errors"

	"goalline/internal/progress"
	"goalline/internal/repo"
)

// The cascade recomputes derived status/progress up the hierarchy after a
// descendant changes: a task mutation refreshes its objective, and an
// objective change refreshes its goal. Both hops run on the mutation's own
// transaction so a failed recompute rolls the child write back with it
// rather than leaving a stale ancestor.

// cascadeFromObjective recomputes the objective and then its goal.
func (e Engine) cascadeFromObjective(ctx context.Context, tx *sql.Tx, objectiveID string) error {
	goalID, err := e.recomputeObjective(ctx, tx, objectiveID)
	if err != nil {
		return err
	}
	if goalID != nil {
		return e.recomputeGoal(ctx, tx, *goalID)
	}
	return nil
}

// recomputeObjective rewrites the objective's aggregate from its current
// non-archived top-level tasks and returns the objective's goal reference.
func (e Engine) recomputeObjective(ctx context.Context, tx *sql.Tx, objectiveID string) (*string, error) {
	objs := e.Stores.Objs.Tx(tx)
	obj, err := objs.Col.FindByID(ctx, objectiveID)
	if err != nil {
		// The objective may have been deleted out from under the task.
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	tasks, err := e.Stores.Tasks.Tx(tx).TasksOfObjective(ctx, objectiveID)
	if err != nil {
		return nil, err
	}
	sum := progress.FromTasks(tasks)
	if sum.Status != obj.Status || sum.Progress != obj.Progress {
		var p repo.Patch
		p.Set("status", string(sum.Status))
		p.Set("progress", sum.Progress)
		p.Set("updated_at", e.stamp())
		if _, err := objs.Col.UpdateByID(ctx, objectiveID, p); err != nil {
			return nil, err
		}
	}
	return obj.GoalID, nil
}

// recomputeGoal rewrites the goal's aggregate from its current non-archived
// objectives.
func (e Engine) recomputeGoal(ctx context.Context, tx *sql.Tx, goalID string) error {
	goals := e.Stores.Goals.Tx(tx)
	g, err := goals.Col.FindByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	objs, err := goals.ObjectivesOf(ctx, goalID)
	if err != nil {
		return err
	}
	sum := progress.FromObjectives(objs)
	if sum.Status != g.Status || sum.Progress != g.Progress {
		var p repo.Patch
		p.Set("status", string(sum.Status))
		p.Set("progress", sum.Progress)
		p.Set("updated_at", e.stamp())
		if _, err := goals.Col.UpdateByID(ctx, goalID, p); err != nil {
			return err
		}
	}
	return nil
}

// cascadeObjectives runs the objective-then-goal hop for each distinct
// objective id, and then the goal hop for any extra goal ids not already
// covered.
func (e Engine) cascadeObjectives(ctx context.Context, tx *sql.Tx, objectiveIDs []string, extraGoalIDs []string) error {
	touchedGoals := map[string]bool{}
	seen := map[string]bool{}
	for _, id := range objectiveIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		goalID, err := e.recomputeObjective(ctx, tx, id)
		if err != nil {
			return err
		}
		if goalID != nil && !touchedGoals[*goalID] {
			touchedGoals[*goalID] = true
			if err := e.recomputeGoal(ctx, tx, *goalID); err != nil {
				return err
			}
		}
	}
	for _, id := range extraGoalIDs {
		if touchedGoals[id] {
			continue
		}
		touchedGoals[id] = true
		if err := e.recomputeGoal(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
