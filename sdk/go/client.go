package goallinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Goalline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Goal represents the API goal model (partial).
type Goal struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Priority string `json:"priority,omitempty"`
}

// Objective represents the API objective model (partial).
type Objective struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	Code     string  `json:"code"`
	Title    string  `json:"title"`
	GoalID   *string `json:"goal_id,omitempty"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
}

// Task represents the API task model (partial).
type Task struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	GoalID      *string `json:"goal_id,omitempty"`
	ObjectiveID *string `json:"objective_id,omitempty"`
	PeriodID    *string `json:"period_id,omitempty"`
	IsSubtask   bool    `json:"is_subtask"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	TenantID   string         `json:"tenant_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// PageMeta carries list totals.
type PageMeta struct {
	TotalRowCount int `json:"totalRowCount"`
}

// Page wraps a paginated list response.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// MoveResult reports a bulk move outcome.
type MoveResult struct {
	IDs      []string `json:"ids"`
	ErrorIDs []string `json:"errorIds"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, title string) (Goal, error) {
	var resp Goal
	err := c.do(ctx, http.MethodPost, "v1/goals", map[string]any{"title": title}, &resp)
	return resp, err
}

// Goals lists goals. Filters use the list query parameter names
// (search, statuses, due, priority, view); page is the zero-based page index.
func (c *Client) Goals(ctx context.Context, page int, filters map[string]string) (Page[Goal], error) {
	var resp Page[Goal]
	err := c.do(ctx, http.MethodGet, listEndpoint("v1/goals", page, filters), nil, &resp)
	return resp, err
}

// CreateObjective creates an objective, optionally under a goal.
func (c *Client) CreateObjective(ctx context.Context, title string, goalID *string) (Objective, error) {
	body := map[string]any{"title": title}
	if goalID != nil {
		body["goal_id"] = *goalID
	}
	var resp Objective
	err := c.do(ctx, http.MethodPost, "v1/objectives", body, &resp)
	return resp, err
}

// Objectives lists objectives.
func (c *Client) Objectives(ctx context.Context, page int, filters map[string]string) (Page[Objective], error) {
	var resp Page[Objective]
	err := c.do(ctx, http.MethodGet, listEndpoint("v1/objectives", page, filters), nil, &resp)
	return resp, err
}

// CreateTask creates a task, optionally under an objective.
func (c *Client) CreateTask(ctx context.Context, title string, objectiveID *string) (Task, error) {
	body := map[string]any{"title": title}
	if objectiveID != nil {
		body["objective_id"] = *objectiveID
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v1/tasks", body, &resp)
	return resp, err
}

// CreateSubtask creates a subtask under a parent task.
func (c *Client) CreateSubtask(ctx context.Context, parentID, title string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v1/tasks/%s/subtasks", url.PathEscape(parentID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"title": title}, &resp)
	return resp, err
}

// Tasks lists tasks.
func (c *Client) Tasks(ctx context.Context, page int, filters map[string]string) (Page[Task], error) {
	var resp Page[Task]
	err := c.do(ctx, http.MethodGet, listEndpoint("v1/tasks", page, filters), nil, &resp)
	return resp, err
}

// SetTaskStatus patches a task's status.
func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v1/tasks/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// MoveTasks moves tasks into a period; nil moves them to the backlog.
func (c *Client) MoveTasks(ctx context.Context, ids []string, periodID *string) (MoveResult, error) {
	body := map[string]any{"ids": ids}
	if periodID != nil {
		body["period_id"] = *periodID
	}
	var resp MoveResult
	err := c.do(ctx, http.MethodPost, "v1/tasks/move", body, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v1/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func listEndpoint(base string, page int, filters map[string]string) string {
	q := url.Values{}
	if page > 0 {
		q.Set("count", fmt.Sprintf("%d", page))
	}
	for k, v := range filters {
		q.Set(k, v)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
