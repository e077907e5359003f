package domain

// Status is the derived state of a goal, objective or task.
type Status string

const (
	StatusNotStarted Status = "Not started"
	StatusInProgress Status = "In progress"
	StatusInReview   Status = "In review"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusInReview, StatusCompleted:
		return true
	}
	return false
}

type Goal struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenant_id"`
	Code          string   `json:"code"`
	Title         string   `json:"title"`
	Collaborators []string `json:"collaborators,omitempty"`
	Teams         []string `json:"teams,omitempty"`
	Status        Status   `json:"status" enum:"Not started,In progress,In review,Completed"`
	Progress      int      `json:"progress" minimum:"0" maximum:"100"`
	StartDate     *int64   `json:"start_date,omitempty"`
	EndDate       *int64   `json:"end_date,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	Archived      bool     `json:"archived"`
	CommentCount  int      `json:"comment_count"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

type Objective struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenant_id"`
	Code          string   `json:"code"`
	Title         string   `json:"title"`
	GoalID        *string  `json:"goal_id,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
	Teams         []string `json:"teams,omitempty"`
	Status        Status   `json:"status" enum:"Not started,In progress,In review,Completed"`
	Progress      int      `json:"progress" minimum:"0" maximum:"100"`
	StartDate     *int64   `json:"start_date,omitempty"`
	EndDate       *int64   `json:"end_date,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	Archived      bool     `json:"archived"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenant_id"`
	Code         string   `json:"code"`
	Title        string   `json:"title"`
	Owners       []string `json:"owners,omitempty"`
	Reviewers    []string `json:"reviewers,omitempty"`
	WeightID     *string  `json:"weight_id,omitempty"`
	Status       Status   `json:"status" enum:"Not started,In progress,In review,Completed"`
	Priority     string   `json:"priority"`
	Progress     int      `json:"progress" minimum:"0" maximum:"100"`
	StartDate    *int64   `json:"start_date,omitempty"`
	EndDate      *int64   `json:"end_date,omitempty"`
	GoalID       *string  `json:"goal_id,omitempty"`
	ObjectiveID  *string  `json:"objective_id,omitempty"`
	PeriodID     *string  `json:"period_id,omitempty"`
	Archived     bool     `json:"archived"`
	IsSubtask    bool     `json:"is_subtask"`
	ParentTaskID *string  `json:"parent_task_id,omitempty"`
	SubtaskIDs   []string `json:"subtask_ids,omitempty"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
	UpdatedAt    string   `json:"updated_at" format:"date-time"`
}

// Period is a scheduling window tasks can be assigned to.
type Period struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	StartDate *int64 `json:"start_date,omitempty"`
	EndDate   *int64 `json:"end_date,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	TenantID   string `json:"tenant_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
