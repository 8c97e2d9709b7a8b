package polls

import (
	"testing"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

func TestBuildResults(t *testing.T) {
	poll := &models.Poll{
		ID:       uuid.New(),
		Question: "Favorite language?",
		Options:  []string{"Go", "Rust"},
		Status:   models.StatusActive,
	}

	t.Run("counts and percentages", func(t *testing.T) {
		// Votes: Go, Go, Rust
		results := BuildResults(poll, map[int]int{0: 2, 1: 1})

		if results.TotalVotes != 3 {
			t.Errorf("expected 3 total votes, got %d", results.TotalVotes)
		}
		if results.Votes[0].Count != 2 || results.Votes[0].Percentage != 67 {
			t.Errorf("expected Go {2, 67}, got {%d, %d}", results.Votes[0].Count, results.Votes[0].Percentage)
		}
		if results.Votes[1].Count != 1 || results.Votes[1].Percentage != 33 {
			t.Errorf("expected Rust {1, 33}, got {%d, %d}", results.Votes[1].Count, results.Votes[1].Percentage)
		}
	})

	t.Run("no votes yields zeros for every option", func(t *testing.T) {
		results := BuildResults(poll, map[int]int{})

		if results.TotalVotes != 0 {
			t.Errorf("expected 0 total votes, got %d", results.TotalVotes)
		}
		if len(results.Votes) != len(poll.Options) {
			t.Fatalf("expected %d option rows, got %d", len(poll.Options), len(results.Votes))
		}
		for i, v := range results.Votes {
			if v.Count != 0 || v.Percentage != 0 {
				t.Errorf("option %d: expected {0, 0}, got {%d, %d}", i, v.Count, v.Percentage)
			}
		}
	})

	t.Run("zero-count options keep their position", func(t *testing.T) {
		p := &models.Poll{
			ID:      uuid.New(),
			Options: []string{"A", "B", "C", "D"},
			Status:  models.StatusActive,
		}
		results := BuildResults(p, map[int]int{2: 5})

		for i, want := range p.Options {
			if results.Votes[i].Option != want {
				t.Errorf("position %d: expected option %q, got %q", i, want, results.Votes[i].Option)
			}
		}
		if results.Votes[2].Count != 5 || results.Votes[2].Percentage != 100 {
			t.Errorf("expected C {5, 100}, got {%d, %d}", results.Votes[2].Count, results.Votes[2].Percentage)
		}
	})

	t.Run("rounds half up", func(t *testing.T) {
		p := &models.Poll{
			ID:      uuid.New(),
			Options: []string{"A", "B"},
			Status:  models.StatusActive,
		}
		// 1/8 = 12.5% -> 13, 7/8 = 87.5% -> 88; the sum exceeding 100 is
		// accepted behavior.
		results := BuildResults(p, map[int]int{0: 1, 1: 7})

		if results.Votes[0].Percentage != 13 {
			t.Errorf("expected 13%%, got %d%%", results.Votes[0].Percentage)
		}
		if results.Votes[1].Percentage != 88 {
			t.Errorf("expected 88%%, got %d%%", results.Votes[1].Percentage)
		}
	})

	t.Run("carries poll status", func(t *testing.T) {
		done := &models.Poll{ID: uuid.New(), Options: []string{"A", "B"}, Status: models.StatusCompleted}
		results := BuildResults(done, nil)
		if results.Status != models.StatusCompleted {
			t.Errorf("expected completed status, got %q", results.Status)
		}
	})
}
