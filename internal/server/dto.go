package server

import (
	"goalline/internal/domain"
	"goalline/internal/engine"
	"goalline/internal/filter"
)

// Request payloads

type CreateGoalRequest struct {
	Title         string   `json:"title"`
	Collaborators []string `json:"collaborators,omitempty"`
	Teams         []string `json:"teams,omitempty"`
	StartDate     *int64   `json:"start_date,omitempty"`
	EndDate       *int64   `json:"end_date,omitempty"`
	Priority      string   `json:"priority,omitempty"`
}

type UpdateGoalRequest struct {
	Title         *string   `json:"title,omitempty"`
	Collaborators *[]string `json:"collaborators,omitempty"`
	Teams         *[]string `json:"teams,omitempty"`
	StartDate     *int64    `json:"start_date,omitempty"`
	EndDate       *int64    `json:"end_date,omitempty"`
	Priority      *string   `json:"priority,omitempty"`
	Archived      *bool     `json:"archived,omitempty"`
	CommentCount  *int      `json:"comment_count,omitempty" minimum:"0"`
}

type CreateObjectiveRequest struct {
	Title         string   `json:"title"`
	GoalID        *string  `json:"goal_id,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
	Teams         []string `json:"teams,omitempty"`
	StartDate     *int64   `json:"start_date,omitempty"`
	EndDate       *int64   `json:"end_date,omitempty"`
	Priority      string   `json:"priority,omitempty"`
}

type UpdateObjectiveRequest struct {
	Title         *string   `json:"title,omitempty"`
	GoalID        *string   `json:"goal_id,omitempty"`
	ClearGoal     bool      `json:"clear_goal,omitempty"`
	Collaborators *[]string `json:"collaborators,omitempty"`
	Teams         *[]string `json:"teams,omitempty"`
	StartDate     *int64    `json:"start_date,omitempty"`
	EndDate       *int64    `json:"end_date,omitempty"`
	Priority      *string   `json:"priority,omitempty"`
	Archived      *bool     `json:"archived,omitempty"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Owners      []string `json:"owners,omitempty"`
	Reviewers   []string `json:"reviewers,omitempty"`
	WeightID    *string  `json:"weight_id,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	StartDate   *int64   `json:"start_date,omitempty"`
	EndDate     *int64   `json:"end_date,omitempty"`
	GoalID      *string  `json:"goal_id,omitempty"`
	ObjectiveID *string  `json:"objective_id,omitempty"`
	PeriodID    *string  `json:"period_id,omitempty"`
}

// CreateSubtaskRequest is a task payload plus the parent-side linkage: the
// caller states what the parent's status and progress become when the
// subtask is attached.
type CreateSubtaskRequest struct {
	CreateTaskRequest
	ParentStatus   *domain.Status `json:"parent_status,omitempty"`
	ParentProgress *int           `json:"progress,omitempty" minimum:"0" maximum:"100"`
}

type UpdateTaskRequest struct {
	Title          *string        `json:"title,omitempty"`
	Owners         *[]string      `json:"owners,omitempty"`
	Reviewers      *[]string      `json:"reviewers,omitempty"`
	WeightID       *string        `json:"weight_id,omitempty"`
	ClearWeight    bool           `json:"clear_weight,omitempty"`
	Status         *domain.Status `json:"status,omitempty" enum:"Not started,In progress,In review,Completed"`
	Priority       *string        `json:"priority,omitempty"`
	Progress       *int           `json:"progress,omitempty" minimum:"0" maximum:"100"`
	StartDate      *int64         `json:"start_date,omitempty"`
	EndDate        *int64         `json:"end_date,omitempty"`
	GoalID         *string        `json:"goal_id,omitempty"`
	ObjectiveID    *string        `json:"objective_id,omitempty"`
	ClearObjective bool           `json:"clear_objective,omitempty"`
	PeriodID       *string        `json:"period_id,omitempty"`
	ClearPeriod    bool           `json:"clear_period,omitempty"`
	Archived       *bool          `json:"archived,omitempty"`
}

type IDsRequest struct {
	IDs []string `json:"ids" minItems:"1"`
}

type ArchiveRequest struct {
	IDs      []string `json:"ids" minItems:"1"`
	Archived bool     `json:"archived"`
}

type MoveTasksRequest struct {
	IDs      []string `json:"ids" minItems:"1"`
	PeriodID *string  `json:"period_id"`
}

type CreatePeriodRequest struct {
	Name      string `json:"name"`
	StartDate *int64 `json:"start_date,omitempty"`
	EndDate   *int64 `json:"end_date,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
}

// ListParams are the shared list query parameters. They map one-to-one
// onto the filter vocabulary; Count is the page index.
type ListParams struct {
	Count     int    `query:"count" minimum:"0"`
	Search    string `query:"search"`
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
	Due       string `query:"due"`
	Priority  string `query:"priority"`
	Statuses  string `query:"statuses"`
	Weights   string `query:"weights"`
	Goals     string `query:"goals"`
	Objs      string `query:"objectives"`
	Teams     string `query:"teams"`
	Users     string `query:"users"`
	Period    string `query:"period"`
	View      string `query:"view"`
}

func (p ListParams) bag() filter.Bag {
	bag := filter.Bag{}
	put := func(key, v string) {
		if v != "" {
			bag[key] = v
		}
	}
	put("search", p.Search)
	put("startDate", p.StartDate)
	put("endDate", p.EndDate)
	put("due", p.Due)
	put("priority", p.Priority)
	put("statuses", p.Statuses)
	put("weights", p.Weights)
	put("goals", p.Goals)
	put("objectives", p.Objs)
	put("teams", p.Teams)
	put("users", p.Users)
	put("period", p.Period)
	put("view", p.View)
	return bag
}

func (r UpdateGoalRequest) patch() engine.GoalPatch {
	return engine.GoalPatch{
		Title:         r.Title,
		Collaborators: r.Collaborators,
		Teams:         r.Teams,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Priority:      r.Priority,
		Archived:      r.Archived,
		CommentCount:  r.CommentCount,
	}
}

func (r UpdateObjectiveRequest) patch() engine.ObjectivePatch {
	return engine.ObjectivePatch{
		Title:         r.Title,
		GoalID:        r.GoalID,
		ClearGoal:     r.ClearGoal,
		Collaborators: r.Collaborators,
		Teams:         r.Teams,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Priority:      r.Priority,
		Archived:      r.Archived,
	}
}

func (r UpdateTaskRequest) patch() engine.TaskPatch {
	return engine.TaskPatch{
		Title:          r.Title,
		Owners:         r.Owners,
		Reviewers:      r.Reviewers,
		WeightID:       r.WeightID,
		ClearWeight:    r.ClearWeight,
		Status:         r.Status,
		Priority:       r.Priority,
		Progress:       r.Progress,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		GoalID:         r.GoalID,
		ObjectiveID:    r.ObjectiveID,
		ClearObjective: r.ClearObjective,
		PeriodID:       r.PeriodID,
		ClearPeriod:    r.ClearPeriod,
		Archived:       r.Archived,
	}
}
