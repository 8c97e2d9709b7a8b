package polls

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

const (
	minOptions = 2
	maxOptions = 4
	minTimer   = 10  // seconds
	maxTimer   = 300 // seconds
)

// Store is the durable record store the coordinator runs against. The store,
// not the coordinator, is the authoritative guard for the two contended
// invariants: InsertPoll must fail with ErrActivePollExists when an active
// poll row already exists, and InsertVote must fail with ErrAlreadyVoted for
// a duplicate (poll, student) pair. A losing concurrent writer gets a definite
// conflict, never a silent overwrite.
type Store interface {
	InsertPoll(ctx context.Context, p *models.Poll) error
	GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	// GetActivePoll returns (nil, nil) when no poll is active.
	GetActivePoll(ctx context.Context) (*models.Poll, error)
	// CompletePoll transitions active -> completed and reports whether this
	// call performed the transition (false when already completed).
	CompletePoll(ctx context.Context, id uuid.UUID) (bool, error)
	InsertVote(ctx context.Context, v *models.Vote) error
	HasVoted(ctx context.Context, pollID uuid.UUID, studentName string) (bool, error)
	CountVotesByOption(ctx context.Context, pollID uuid.UUID) (map[int]int, error)
	ListCompletedPolls(ctx context.Context, limit int) ([]*models.Poll, error)
}

// Service is the poll lifecycle coordinator: it owns the single-active-poll
// invariant, vote admission, and the active -> completed transition. It does
// not broadcast; announcing lifecycle events is the boundary layer's job.
type Service struct {
	store        Store
	historyLimit int
	now          func() time.Time
}

// NewService creates the coordinator. historyLimit caps GetPollHistory;
// values <= 0 fall back to 20.
func NewService(store Store, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Service{store: store, historyLimit: historyLimit, now: time.Now}
}

// Create validates the request and persists a new active poll. Fails with a
// conflict if an active poll already exists; nothing is persisted on
// validation failure.
func (s *Service) Create(ctx context.Context, question string, options []string, correctOptionIndex, timerDuration int) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, newValidationError("question is required")
	}
	if len(options) < minOptions || len(options) > maxOptions {
		return nil, newValidationError("poll must have between 2 and 4 options")
	}
	trimmed := make([]string, len(options))
	seen := make(map[string]bool, len(options))
	for i, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, newValidationError("options must be non-empty")
		}
		if seen[o] {
			return nil, newValidationError("options must be distinct")
		}
		seen[o] = true
		trimmed[i] = o
	}
	if timerDuration < minTimer || timerDuration > maxTimer {
		return nil, newValidationError("timer duration must be between 10 and 300 seconds")
	}
	if correctOptionIndex < 0 || correctOptionIndex >= len(trimmed) {
		return nil, newValidationError("correct option index must reference one of the options")
	}

	p := &models.Poll{
		Question:           question,
		Options:            trimmed,
		CorrectOptionIndex: correctOptionIndex,
		TimerDuration:      timerDuration,
		Status:             models.StatusActive,
		StartedAt:          s.now(),
	}
	if err := s.store.InsertPoll(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetActive returns the current active poll with results, remaining time, and
// (when studentName is given) whether that student has voted. Returns
// (nil, nil) when no poll is active. RemainingTime is always derived from
// startedAt and the wall clock, never from scheduler state, so it stays
// correct across process restarts.
func (s *Service) GetActive(ctx context.Context, studentName string) (*models.ActivePoll, error) {
	p, err := s.store.GetActivePoll(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	results, err := s.Results(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	hasVoted := false
	if studentName != "" {
		hasVoted, err = s.store.HasVoted(ctx, p.ID, studentName)
		if err != nil {
			return nil, err
		}
	}

	return &models.ActivePoll{
		Poll:          p,
		Results:       results,
		RemainingTime: s.remaining(p),
		HasVoted:      hasVoted,
	}, nil
}

// SubmitVote records one student's vote. Checks run in order: poll exists,
// poll active, time window open, option in range, not already voted. The
// deadline check is independent of the auto-end scheduler, so a vote arriving
// after the wall-clock deadline is rejected even if the scheduler has not
// fired yet.
func (s *Service) SubmitVote(ctx context.Context, pollID uuid.UUID, studentName string, selectedOption int) error {
	studentName = strings.TrimSpace(studentName)
	if studentName == "" {
		return newValidationError("student name is required")
	}

	p, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if p.Status != models.StatusActive {
		return ErrPollNotActive
	}
	if s.elapsed(p) >= time.Duration(p.TimerDuration)*time.Second {
		return ErrTimeExpired
	}
	if selectedOption < 0 || selectedOption >= len(p.Options) {
		return newValidationError("invalid option selected")
	}
	voted, err := s.store.HasVoted(ctx, pollID, studentName)
	if err != nil {
		return err
	}
	if voted {
		return ErrAlreadyVoted
	}

	// Two near-simultaneous votes can both pass the check above; the store's
	// unique constraint decides the winner and surfaces ErrAlreadyVoted to
	// the loser.
	return s.store.InsertVote(ctx, &models.Vote{
		PollID:         pollID,
		StudentName:    studentName,
		SelectedOption: selectedOption,
	})
}

// Results computes the aggregated results for a poll.
func (s *Service) Results(ctx context.Context, pollID uuid.UUID) (*models.PollResults, error) {
	p, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountVotesByOption(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return BuildResults(p, counts), nil
}

// End transitions a poll to completed. Idempotent: ending an already
// completed poll is not an error. Returns whether this call performed the
// transition, so callers racing the auto-end scheduler can tell whether they
// won and should announce the end.
func (s *Service) End(ctx context.Context, pollID uuid.UUID) (bool, error) {
	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return false, err
	}
	return s.store.CompletePoll(ctx, pollID)
}

// History returns the most recently created completed polls, newest first,
// each paired with its results computed at call time.
func (s *Service) History(ctx context.Context) ([]*models.HistoryEntry, error) {
	list, err := s.store.ListCompletedPolls(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}
	entries := make([]*models.HistoryEntry, 0, len(list))
	for _, p := range list {
		counts, err := s.store.CountVotesByOption(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &models.HistoryEntry{Poll: p, Results: BuildResults(p, counts)})
	}
	return entries, nil
}

func (s *Service) remaining(p *models.Poll) int {
	left := p.TimerDuration - int(s.elapsed(p)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Service) elapsed(p *models.Poll) time.Duration {
	return s.now().Sub(p.StartedAt)
}
