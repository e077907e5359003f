// Package progress derives a parent's aggregate status and completion
// percentage from its children's statuses.
package progress

import "goalline/internal/domain"

// Summary is the derived state written back onto a parent entity.
type Summary struct {
	Status   domain.Status
	Progress int
}

// Summarize computes the aggregate over a multiset of child statuses.
//
// Progress is the share of Completed children, floored to an integer
// percentage. Status follows a fixed precedence: Completed only when every
// child is Completed, In review when any child is, Not started when no
// child has left Not started, In progress otherwise. An empty child set
// yields zero progress and Not started.
func Summarize(children []domain.Status) Summary {
	if len(children) == 0 {
		return Summary{Status: domain.StatusNotStarted, Progress: 0}
	}
	var completed, inReview, started int
	for _, s := range children {
		switch s {
		case domain.StatusCompleted:
			completed++
			started++
		case domain.StatusInReview:
			inReview++
			started++
		case domain.StatusInProgress:
			started++
		}
	}
	pct := completed * 100 / len(children)

	switch {
	case completed == len(children):
		return Summary{Status: domain.StatusCompleted, Progress: 100}
	case inReview > 0:
		return Summary{Status: domain.StatusInReview, Progress: pct}
	case started == 0:
		return Summary{Status: domain.StatusNotStarted, Progress: pct}
	default:
		return Summary{Status: domain.StatusInProgress, Progress: pct}
	}
}

// FromTasks projects tasks onto their statuses and summarizes.
func FromTasks(tasks []domain.Task) Summary {
	statuses := make([]domain.Status, len(tasks))
	for i, t := range tasks {
		statuses[i] = t.Status
	}
	return Summarize(statuses)
}

// FromObjectives projects objectives onto their statuses and summarizes.
func FromObjectives(objs []domain.Objective) Summary {
	statuses := make([]domain.Status, len(objs))
	for i, o := range objs {
		statuses[i] = o.Status
	}
	return Summarize(statuses)
}
