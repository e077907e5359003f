// Package filter translates flat UI filter bags into tenant-unaware query
// predicates. Tenant scoping is added later by the repository layer.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"goalline/internal/domain"
	"goalline/internal/repo"
)

// Bag is one entity's raw filter parameters as they arrive off the wire.
type Bag map[string]string

// ErrNotArray reports an array-typed filter value that did not parse as an
// array. The boundary maps it to a client error, unlike other failures.
var ErrNotArray = errors.New("filter value is not an array")

// Positional mapping of the statuses boolean array.
var statusSlots = []domain.Status{
	domain.StatusCompleted,
	domain.StatusInReview,
	domain.StatusInProgress,
	domain.StatusNotStarted,
}

// Goals builds the goal-list predicate.
func Goals(bag Bag, now time.Time) (repo.Query, error) {
	var q repo.Query
	common(&q, bag, now)
	if err := statuses(&q, bag); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "teams", memberClause("teams_json")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "users", memberClause("collaborators_json")); err != nil {
		return repo.Query{}, err
	}
	return q, nil
}

// Objectives builds the objective-list predicate.
func Objectives(bag Bag, now time.Time) (repo.Query, error) {
	var q repo.Query
	common(&q, bag, now)
	if err := statuses(&q, bag); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "goals", columnClause("goal_id")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "teams", memberClause("teams_json")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "users", memberClause("collaborators_json")); err != nil {
		return repo.Query{}, err
	}
	return q, nil
}

// Tasks builds the task-list predicate. The users filter matches owners or
// reviewers.
func Tasks(bag Bag, now time.Time) (repo.Query, error) {
	var q repo.Query
	common(&q, bag, now)
	if err := statuses(&q, bag); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "weights", columnClause("weight_id")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "goals", columnClause("goal_id")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "objectives", columnClause("objective_id")); err != nil {
		return repo.Query{}, err
	}
	if err := idList(&q, bag, "users", func(q *repo.Query, ids []string) {
		in, args := inArgs(ids)
		both := args
		both = append(both, args...)
		q.And(`(EXISTS (SELECT 1 FROM json_each(owners_json) WHERE value IN (`+in+`))
			OR EXISTS (SELECT 1 FROM json_each(reviewers_json) WHERE value IN (`+in+`)))`, both...)
	}); err != nil {
		return repo.Query{}, err
	}
	if v, ok := bag["period"]; ok {
		if v == "null" {
			q.And("period_id IS NULL")
		} else if v != "" {
			q.And("period_id=?", v)
		}
	}
	return q, nil
}

// common applies the keys every entity shares: search, date bounds, due
// window, priority and the archived view.
func common(q *repo.Query, bag Bag, now time.Time) {
	if v := bag["search"]; v != "" {
		like := "%" + strings.ToLower(v) + "%"
		q.And("(lower(code) LIKE ? OR lower(title) LIKE ?)", like, like)
	}
	if v := bag["startDate"]; v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.And("start_date >= ?", ms)
		}
	}
	if v := bag["endDate"]; v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.And("end_date <= ?", ms)
		}
	}
	if v := bag["due"]; v != "" {
		if from, to, ok := dueWindow(v, now); ok {
			q.And("end_date >= ? AND end_date <= ?", from, to)
		}
	}
	if v := bag["priority"]; v != "" {
		q.And("lower(priority) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if bag["view"] == "archived" {
		q.And("archived=1")
	} else {
		q.And("archived=0")
	}
}

// dueWindow derives the inclusive end-date bounds for a due shortcut, in
// epoch millis.
func dueWindow(due string, now time.Time) (int64, int64, bool) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var until time.Time
	switch due {
	case "Due today":
		until = dayStart.AddDate(0, 0, 1)
	case "Due this week":
		// Week runs Monday through Sunday.
		offset := (int(now.Weekday()) + 6) % 7
		until = dayStart.AddDate(0, 0, 7-offset)
	case "Due this month":
		until = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	default:
		return 0, 0, false
	}
	return dayStart.UnixMilli(), until.UnixMilli() - 1, true
}

// statuses parses the positional boolean array and restricts status to the
// enabled entries. All-false and all-true both mean no restriction.
func statuses(q *repo.Query, bag Bag) error {
	v, ok := bag["statuses"]
	if !ok || v == "" {
		return nil
	}
	var flags []bool
	if err := json.Unmarshal([]byte(v), &flags); err != nil {
		return fmt.Errorf("%w: statuses", ErrNotArray)
	}
	var enabled []any
	for i, on := range flags {
		if on && i < len(statusSlots) {
			enabled = append(enabled, string(statusSlots[i]))
		}
	}
	if len(enabled) == 0 || len(enabled) == len(statusSlots) {
		return nil
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(enabled)), ",")
	q.And("status IN ("+in+")", enabled...)
	return nil
}

// idList parses an id-array filter and applies the clause builder. A value
// that is present but not a JSON array fails with ErrNotArray.
func idList(q *repo.Query, bag Bag, key string, apply func(*repo.Query, []string)) error {
	v, ok := bag[key]
	if !ok || v == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return fmt.Errorf("%w: %s", ErrNotArray, key)
	}
	if len(ids) == 0 {
		return nil
	}
	apply(q, ids)
	return nil
}

// columnClause restricts a scalar column to the id set.
func columnClause(column string) func(*repo.Query, []string) {
	return func(q *repo.Query, ids []string) {
		in, args := inArgs(ids)
		q.And(column+" IN ("+in+")", args...)
	}
}

// memberClause matches rows whose JSON id-list column intersects the set.
func memberClause(column string) func(*repo.Query, []string) {
	return func(q *repo.Query, ids []string) {
		in, args := inArgs(ids)
		q.And(`EXISTS (SELECT 1 FROM json_each(`+column+`) WHERE value IN (`+in+`))`, args...)
	}
}

func inArgs(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
