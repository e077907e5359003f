package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"goalline/internal/domain"
	"goalline/internal/engine"
	"goalline/internal/filter"
	"goalline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"no goal for id"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Goalline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Stores.Keys))
	hcfg := huma.DefaultConfig("Goalline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerGoals(group, cfg.Engine)
	registerObjectives(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerPeriods(group, cfg.Engine)
	registerSettings(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerEvents(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps the repository taxonomy onto HTTP statuses. A missing
// tenant scope is a wiring bug and stays a 500.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, repo.ErrBadID), errors.Is(err, filter.ErrNotArray):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, repo.ErrDuplicateTitle):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	case errors.Is(err, repo.ErrTenantMissing):
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "must be") || strings.Contains(lowered, "not in catalog") || strings.Contains(lowered, "unknown status"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*struct {
		Body domain.Goal `json:"body"`
	}, error) {
		g, err := e.CreateGoal(ctx, engine.GoalCreateOptions{
			Title:         input.Body.Title,
			Collaborators: input.Body.Collaborators,
			Teams:         input.Body.Teams,
			StartDate:     input.Body.StartDate,
			EndDate:       input.Body.EndDate,
			Priority:      input.Body.Priority,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Goal `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List goals",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *ListParams) (*struct {
		Body engine.Page[domain.Goal] `json:"body"`
	}, error) {
		page, err := e.GetGoals(ctx, input.bag(), input.Count)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Page[domain.Goal] `json:"body"`
		}{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-goal",
		Method:      http.MethodGet,
		Path:        "/goals/{goal_id}",
		Summary:     "Get goal",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		GoalID string `path:"goal_id"`
	}) (*struct {
		Body repo.GoalView `json:"body"`
	}, error) {
		view, err := e.GetGoal(ctx, input.GoalID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body repo.GoalView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPatch,
		Path:        "/goals/{goal_id}",
		Summary:     "Update goal",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		GoalID string            `path:"goal_id"`
		Body   UpdateGoalRequest `json:"body"`
	}) (*struct {
		Body domain.Goal `json:"body"`
	}, error) {
		g, err := e.UpdateGoal(ctx, input.GoalID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Goal `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-goals",
		Method:      http.MethodPost,
		Path:        "/goals/delete",
		Summary:     "Delete goals",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body IDsRequest `json:"body"`
	}) (*struct {
		Body engine.DeleteResult `json:"body"`
	}, error) {
		res, err := e.DeleteGoals(ctx, input.Body.IDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DeleteResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-goals",
		Method:      http.MethodPost,
		Path:        "/goals/archive",
		Summary:     "Archive or restore goals",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body ArchiveRequest `json:"body"`
	}) (*struct {
		Body []domain.Goal `json:"body"`
	}, error) {
		updated, err := e.ArchiveGoals(ctx, input.Body.IDs, input.Body.Archived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Goal `json:"body"`
		}{Body: updated}, nil
	})
}

func registerObjectives(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-objective",
		Method:        http.MethodPost,
		Path:          "/objectives",
		Summary:       "Create objective",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateObjectiveRequest `json:"body"`
	}) (*struct {
		Body domain.Objective `json:"body"`
	}, error) {
		o, err := e.CreateObjective(ctx, engine.ObjectiveCreateOptions{
			Title:         input.Body.Title,
			GoalID:        input.Body.GoalID,
			Collaborators: input.Body.Collaborators,
			Teams:         input.Body.Teams,
			StartDate:     input.Body.StartDate,
			EndDate:       input.Body.EndDate,
			Priority:      input.Body.Priority,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Objective `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-objectives",
		Method:      http.MethodGet,
		Path:        "/objectives",
		Summary:     "List objectives",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *ListParams) (*struct {
		Body engine.Page[domain.Objective] `json:"body"`
	}, error) {
		page, err := e.GetObjectives(ctx, input.bag(), input.Count)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Page[domain.Objective] `json:"body"`
		}{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-objective",
		Method:      http.MethodGet,
		Path:        "/objectives/{objective_id}",
		Summary:     "Get objective",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ObjectiveID string `path:"objective_id"`
	}) (*struct {
		Body repo.ObjectiveView `json:"body"`
	}, error) {
		view, err := e.GetObjective(ctx, input.ObjectiveID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body repo.ObjectiveView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-objective",
		Method:      http.MethodPatch,
		Path:        "/objectives/{objective_id}",
		Summary:     "Update objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string                 `path:"objective_id"`
		Body        UpdateObjectiveRequest `json:"body"`
	}) (*struct {
		Body domain.Objective `json:"body"`
	}, error) {
		o, err := e.UpdateObjective(ctx, input.ObjectiveID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Objective `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-objectives",
		Method:      http.MethodPost,
		Path:        "/objectives/delete",
		Summary:     "Delete objectives and their tasks",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body IDsRequest `json:"body"`
	}) (*struct {
		Body engine.DeleteResult `json:"body"`
	}, error) {
		res, err := e.DeleteObjectives(ctx, input.Body.IDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DeleteResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-objectives",
		Method:      http.MethodPost,
		Path:        "/objectives/archive",
		Summary:     "Archive or restore objectives",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body ArchiveRequest `json:"body"`
	}) (*struct {
		Body []domain.Objective `json:"body"`
	}, error) {
		updated, err := e.ArchiveObjectives(ctx, input.Body.IDs, input.Body.Archived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Objective `json:"body"`
		}{Body: updated}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(ctx, taskCreateOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-subtask",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/subtasks",
		Summary:       "Create subtask under a task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string               `path:"task_id"`
		Body   CreateSubtaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateSubtask(ctx, taskCreateOptions(input.Body.CreateTaskRequest), repo.SubtaskLink{
			ParentID:       input.TaskID,
			ParentStatus:   input.Body.ParentStatus,
			ParentProgress: input.Body.ParentProgress,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ListParams
		Mine bool `query:"mine" doc:"Restrict to tasks the caller owns or reviews"`
	}) (*struct {
		Body engine.Page[domain.Task] `json:"body"`
	}, error) {
		actorID := ""
		if input.Mine {
			id, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			actorID = id
		}
		page, err := e.GetTasks(ctx, input.bag(), actorID, input.Count)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Page[domain.Task] `json:"body"`
		}{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task with subtasks",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body repo.TaskView `json:"body"`
	}, error) {
		view, err := e.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body repo.TaskView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateTask(ctx, input.TaskID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subtask",
		Method:      http.MethodPatch,
		Path:        "/subtasks/{task_id}",
		Summary:     "Update subtask",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateSubtask(ctx, input.TaskID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/delete",
		Summary:     "Delete tasks and their subtasks",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body IDsRequest `json:"body"`
	}) (*struct {
		Body engine.DeleteResult `json:"body"`
	}, error) {
		res, err := e.DeleteTasks(ctx, input.Body.IDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DeleteResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/archive",
		Summary:     "Archive or restore tasks",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body ArchiveRequest `json:"body"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		updated, err := e.ArchiveTasks(ctx, input.Body.IDs, input.Body.Archived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/move",
		Summary:     "Move tasks to a period",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body MoveTasksRequest `json:"body"`
	}) (*struct {
		Body engine.MoveResult `json:"body"`
	}, error) {
		res, err := e.MoveTasks(ctx, input.Body.IDs, input.Body.PeriodID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.MoveResult `json:"body"`
		}{Body: res}, nil
	})
}

func taskCreateOptions(r CreateTaskRequest) engine.TaskCreateOptions {
	return engine.TaskCreateOptions{
		Title:       r.Title,
		Owners:      r.Owners,
		Reviewers:   r.Reviewers,
		WeightID:    r.WeightID,
		Priority:    r.Priority,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		GoalID:      r.GoalID,
		ObjectiveID: r.ObjectiveID,
		PeriodID:    r.PeriodID,
	}
}

func registerPeriods(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-period",
		Method:        http.MethodPost,
		Path:          "/periods",
		Summary:       "Create period",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreatePeriodRequest `json:"body"`
	}) (*struct {
		Body domain.Period `json:"body"`
	}, error) {
		p, err := e.CreatePeriod(ctx, input.Body.Name, input.Body.StartDate, input.Body.EndDate)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Period `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-periods",
		Method:      http.MethodGet,
		Path:        "/periods",
		Summary:     "List periods",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Period `json:"body"`
	}, error) {
		items, err := e.ListPeriods(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Period{}
		}
		return &struct {
			Body []domain.Period `json:"body"`
		}{Body: items}, nil
	})
}

func registerSettings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "Get tenant settings",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.TenantSettings `json:"body"`
	}, error) {
		s, err := e.GetTenantSettings(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TenantSettings `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-settings",
		Method:      http.MethodPut,
		Path:        "/settings",
		Summary:     "Replace tenant settings",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body engine.TenantSettings `json:"body"`
	}) (*struct {
		Body engine.TenantSettings `json:"body"`
	}, error) {
		if err := e.PutTenantSettings(ctx, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TenantSettings `json:"body"`
		}{Body: input.Body}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		k, raw, err := e.CreateAPIKey(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{ID: k.ID, Name: k.Name, Key: raw, CreatedAt: k.CreatedAt}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent audit events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		items, err := e.Log(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
