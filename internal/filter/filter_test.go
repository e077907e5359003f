package filter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"goalline/internal/repo"
)

var testNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC) // a Wednesday

func clauses(t *testing.T, q repo.Query) ([]string, []any) {
	t.Helper()
	c, a := q.Clauses()
	return c, a
}

func hasClause(cs []string, substr string) bool {
	for _, c := range cs {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func TestStatusesSingleSlot(t *testing.T) {
	q, err := Goals(Bag{"statuses": "[true,false,false,false]"}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cs, args := clauses(t, q)
	if !hasClause(cs, "status IN (?)") {
		t.Fatalf("missing status clause in %v", cs)
	}
	found := false
	for _, a := range args {
		if a == "Completed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("args %v should restrict to Completed", args)
	}
}

func TestStatusesAllOrNoneMeansUnrestricted(t *testing.T) {
	for _, v := range []string{"[false,false,false,false]", "[true,true,true,true]"} {
		q, err := Goals(Bag{"statuses": v}, testNow)
		if err != nil {
			t.Fatalf("build %s: %v", v, err)
		}
		cs, _ := clauses(t, q)
		if hasClause(cs, "status IN") {
			t.Fatalf("statuses %s should not restrict, got %v", v, cs)
		}
	}
}

func TestStatusesNotArray(t *testing.T) {
	if _, err := Goals(Bag{"statuses": "Completed"}, testNow); !errors.Is(err, ErrNotArray) {
		t.Fatalf("want ErrNotArray, got %v", err)
	}
}

func TestIDListNotArray(t *testing.T) {
	bags := []Bag{
		{"users": "not-json"},
		{"goals": `{"a":1}`},
		{"teams": "42"},
	}
	for _, bag := range bags {
		if _, err := Objectives(bag, testNow); !errors.Is(err, ErrNotArray) {
			t.Fatalf("bag %v: want ErrNotArray, got %v", bag, err)
		}
	}
}

func TestTaskUsersMatchesOwnersOrReviewers(t *testing.T) {
	q, err := Tasks(Bag{"users": `["u1","u2"]`}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cs, args := clauses(t, q)
	if !hasClause(cs, "owners_json") || !hasClause(cs, "reviewers_json") {
		t.Fatalf("users clause should span owners and reviewers: %v", cs)
	}
	// Two ids, matched against two columns.
	n := 0
	for _, a := range args {
		if a == "u1" || a == "u2" {
			n++
		}
	}
	if n != 4 {
		t.Fatalf("expected 4 user args, got %d in %v", n, args)
	}
}

func TestPeriodNullMeansBacklog(t *testing.T) {
	q, err := Tasks(Bag{"period": "null"}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cs, _ := clauses(t, q)
	if !hasClause(cs, "period_id IS NULL") {
		t.Fatalf("missing backlog clause in %v", cs)
	}
}

func TestViewSelectsArchivedFlag(t *testing.T) {
	q, _ := Goals(Bag{"view": "archived"}, testNow)
	cs, _ := clauses(t, q)
	if !hasClause(cs, "archived=1") {
		t.Fatalf("archived view: %v", cs)
	}
	q, _ = Goals(Bag{}, testNow)
	cs, _ = clauses(t, q)
	if !hasClause(cs, "archived=0") {
		t.Fatalf("default view: %v", cs)
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	q, _ := Goals(Bag{"search": "ReVeNuE"}, testNow)
	cs, args := clauses(t, q)
	if !hasClause(cs, "lower(code) LIKE ?") || !hasClause(cs, "lower(title) LIKE ?") {
		t.Fatalf("search clause: %v", cs)
	}
	found := false
	for _, a := range args {
		if a == "%revenue%" {
			found = true
		}
	}
	if !found {
		t.Fatalf("search args: %v", args)
	}
}

func TestDueWindows(t *testing.T) {
	dayStart := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC).UnixMilli()
	cases := []struct {
		due  string
		from int64
		to   int64
	}{
		{"Due today", dayStart, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC).UnixMilli() - 1},
		{"Due this week", dayStart, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC).UnixMilli() - 1},
		{"Due this month", dayStart, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).UnixMilli() - 1},
	}
	for _, tc := range cases {
		from, to, ok := dueWindow(tc.due, testNow)
		if !ok {
			t.Fatalf("%s: window not recognized", tc.due)
		}
		if from != tc.from || to != tc.to {
			t.Fatalf("%s: got [%d,%d], want [%d,%d]", tc.due, from, to, tc.from, tc.to)
		}
	}
	if _, _, ok := dueWindow("Due someday", testNow); ok {
		t.Fatal("unknown shortcut should be ignored")
	}
}

func TestDateBounds(t *testing.T) {
	q, _ := Objectives(Bag{"startDate": "1000", "endDate": "2000"}, testNow)
	cs, _ := clauses(t, q)
	if !hasClause(cs, "start_date >= ?") || !hasClause(cs, "end_date <= ?") {
		t.Fatalf("date clauses: %v", cs)
	}
}
