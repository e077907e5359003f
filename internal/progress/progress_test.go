package progress

import (
	"testing"

	"goalline/internal/domain"
)

func TestEmptyChildSet(t *testing.T) {
	got := Summarize(nil)
	if got.Progress != 0 || got.Status != domain.StatusNotStarted {
		t.Fatalf("got %+v", got)
	}
}

func TestAllCompleted(t *testing.T) {
	got := Summarize([]domain.Status{domain.StatusCompleted, domain.StatusCompleted})
	if got.Progress != 100 || got.Status != domain.StatusCompleted {
		t.Fatalf("got %+v", got)
	}
}

func TestHalfCompleted(t *testing.T) {
	got := Summarize([]domain.Status{domain.StatusCompleted, domain.StatusNotStarted})
	if got.Progress != 50 {
		t.Fatalf("progress = %d, want 50", got.Progress)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want In progress", got.Status)
	}
}

func TestInReviewTakesPrecedence(t *testing.T) {
	got := Summarize([]domain.Status{
		domain.StatusCompleted, domain.StatusInReview, domain.StatusInProgress,
	})
	if got.Status != domain.StatusInReview {
		t.Fatalf("status = %s, want In review", got.Status)
	}
}

func TestNotStartedOnlyWhenNothingMoved(t *testing.T) {
	got := Summarize([]domain.Status{domain.StatusNotStarted, domain.StatusNotStarted})
	if got.Status != domain.StatusNotStarted || got.Progress != 0 {
		t.Fatalf("got %+v", got)
	}
	got = Summarize([]domain.Status{domain.StatusNotStarted, domain.StatusInProgress})
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want In progress", got.Status)
	}
}

func TestProgressFloors(t *testing.T) {
	// The completed share is floored, never rounded up: 1 of 3 is 33,
	// 2 of 3 is 66.
	got := Summarize([]domain.Status{
		domain.StatusCompleted, domain.StatusNotStarted, domain.StatusNotStarted,
	})
	if got.Progress != 33 {
		t.Fatalf("progress = %d, want 33", got.Progress)
	}
	got = Summarize([]domain.Status{
		domain.StatusCompleted, domain.StatusCompleted, domain.StatusNotStarted,
	})
	if got.Progress != 66 {
		t.Fatalf("progress = %d, want 66", got.Progress)
	}
	got = Summarize([]domain.Status{
		domain.StatusCompleted, domain.StatusCompleted, domain.StatusCompleted,
		domain.StatusCompleted, domain.StatusCompleted, domain.StatusNotStarted,
	})
	if got.Progress != 83 {
		t.Fatalf("progress = %d, want 83", got.Progress)
	}
}

func TestProgressNonDecreasingAsCompletedAdded(t *testing.T) {
	children := []domain.Status{domain.StatusNotStarted, domain.StatusInProgress}
	prev := Summarize(children).Progress
	for i := 0; i < 10; i++ {
		children = append(children, domain.StatusCompleted)
		cur := Summarize(children).Progress
		if cur < prev {
			t.Fatalf("progress dropped from %d to %d after adding a Completed child", prev, cur)
		}
		prev = cur
	}
}
