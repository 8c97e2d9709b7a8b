package models

import (
	"time"

	"github.com/google/uuid"
)

// Poll status values. A poll is created active and transitions to completed
// exactly once; there is no other state.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Poll represents a timed multiple-choice poll. At most one poll with
// status "active" exists at any time (enforced by the store).
type Poll struct {
	ID                 uuid.UUID `json:"id"`
	Question           string    `json:"question"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correctOptionIndex"`
	TimerDuration      int       `json:"timerDuration"` // seconds
	Status             string    `json:"status"`
	StartedAt          time.Time `json:"startedAt"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Vote records a single student's answer to a poll. One per
// (poll, student name) pair; immutable once written.
type Vote struct {
	ID             uuid.UUID `json:"id"`
	PollID         uuid.UUID `json:"pollId"`
	StudentName    string    `json:"studentName"`
	SelectedOption int       `json:"selectedOption"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OptionResult is the aggregated tally for one poll option.
type OptionResult struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// PollResults is the derived per-option vote breakdown for a poll.
// Never persisted; recomputed from the vote set on demand.
type PollResults struct {
	PollID     uuid.UUID      `json:"pollId"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	Votes      []OptionResult `json:"votes"`
	TotalVotes int            `json:"totalVotes"`
	Status     string         `json:"status"`
}

// ActivePoll is the view of the current active poll returned to a joining
// or polling client. RemainingTime is always recomputed from wall clock.
type ActivePoll struct {
	Poll          *Poll        `json:"poll"`
	Results       *PollResults `json:"results"`
	RemainingTime int          `json:"remainingTime"`
	HasVoted      bool         `json:"hasVoted"`
}

// HistoryEntry pairs a completed poll with its results snapshot.
type HistoryEntry struct {
	Poll    *Poll        `json:"poll"`
	Results *PollResults `json:"results"`
}
