package polls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// memStore is an in-memory Store for coordinator tests. It enforces the same
// contracts the PostgreSQL schema does: at most one active poll, and at most
// one vote per (poll, student) pair, both decided under a single mutex so
// concurrent callers race exactly like they would against the database's
// unique constraints.
type memStore struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*models.Poll
	votes map[uuid.UUID]map[string]int // pollID -> studentName -> option
	order []uuid.UUID                  // insertion order, for history sorting
	seq   int
}

func newMemStore() *memStore {
	return &memStore{
		polls: make(map[uuid.UUID]*models.Poll),
		votes: make(map[uuid.UUID]map[string]int),
	}
}

func (m *memStore) InsertPoll(_ context.Context, p *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.polls {
		if existing.Status == models.StatusActive {
			return ErrActivePollExists
		}
	}
	m.seq++
	p.ID = uuid.New()
	p.CreatedAt = time.Unix(int64(m.seq), 0)
	m.polls[p.ID] = p
	m.votes[p.ID] = make(map[string]int)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memStore) GetPoll(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	return p, nil
}

func (m *memStore) GetActivePoll(_ context.Context) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.polls {
		if p.Status == models.StatusActive {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) CompletePoll(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok || p.Status != models.StatusActive {
		return false, nil
	}
	p.Status = models.StatusCompleted
	return true, nil
}

func (m *memStore) InsertVote(_ context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStudent, ok := m.votes[v.PollID]
	if !ok {
		return ErrPollNotFound
	}
	if _, dup := byStudent[v.StudentName]; dup {
		return ErrAlreadyVoted
	}
	byStudent[v.StudentName] = v.SelectedOption
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	return nil
}

func (m *memStore) HasVoted(_ context.Context, pollID uuid.UUID, studentName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.votes[pollID][studentName]
	return ok, nil
}

func (m *memStore) CountVotesByOption(_ context.Context, pollID uuid.UUID) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int)
	for _, option := range m.votes[pollID] {
		counts[option]++
	}
	return counts, nil
}

func (m *memStore) ListCompletedPolls(_ context.Context, limit int) ([]*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Poll
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		p := m.polls[m.order[i]]
		if p.Status == models.StatusCompleted {
			out = append(out, p)
		}
	}
	return out, nil
}
