package polls

import (
	"math"

	"github.com/classpulse/backend/internal/models"
)

// BuildResults projects a poll's vote counts into per-option tallies with
// rounded percentages. Options keep their original order and appear even with
// zero votes. Percentages round half-up on the float quotient, so they are not
// guaranteed to sum to exactly 100. All percentages are 0 when there are no
// votes.
func BuildResults(p *models.Poll, counts map[int]int) *models.PollResults {
	total := 0
	for _, n := range counts {
		total += n
	}

	votes := make([]models.OptionResult, len(p.Options))
	for i, option := range p.Options {
		count := counts[i]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(count) / float64(total) * 100))
		}
		votes[i] = models.OptionResult{Option: option, Count: count, Percentage: pct}
	}

	return &models.PollResults{
		PollID:     p.ID,
		Question:   p.Question,
		Options:    p.Options,
		Votes:      votes,
		TotalVotes: total,
		Status:     p.Status,
	}
}
