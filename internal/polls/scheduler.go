package polls

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpireHandler is invoked when a poll's countdown elapses. It runs on the
// timer's goroutine after the entry has been removed from the table.
type ExpireHandler func(pollID uuid.UUID)

// Scheduler holds one cancellable auto-end countdown per poll. State is
// process-local and ephemeral: a restart loses pending countdowns, which is
// why remaining time is always recomputed from the poll's startedAt rather
// than read from here.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	onExpire ExpireHandler
	logger   *zap.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{timers: make(map[uuid.UUID]*time.Timer), logger: logger}
}

// SetExpireHandler sets the callback fired on countdown expiry. Must be set
// before the first Schedule call.
func (s *Scheduler) SetExpireHandler(fn ExpireHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

// Schedule arms a one-shot countdown for a poll. Scheduling a poll that is
// already armed resets its countdown.
func (s *Scheduler) Schedule(pollID uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[pollID]; ok {
		t.Stop()
	}
	s.timers[pollID] = time.AfterFunc(d, func() { s.fire(pollID) })
	s.logger.Debug("auto-end scheduled", zap.String("poll_id", pollID.String()), zap.Duration("in", d))
}

// Cancel stops and removes a poll's pending countdown. Cancelling an unknown
// or already fired poll is a no-op.
func (s *Scheduler) Cancel(pollID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[pollID]; ok {
		t.Stop()
		delete(s.timers, pollID)
	}
}

// StopAll cancels every pending countdown. Used on shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(pollID uuid.UUID) {
	s.mu.Lock()
	_, armed := s.timers[pollID]
	if armed {
		delete(s.timers, pollID)
	}
	fn := s.onExpire
	s.mu.Unlock()

	// A Cancel racing the firing timer can win the lock first; the removed
	// entry means the end was handled manually and this firing is stale.
	if !armed || fn == nil {
		return
	}
	fn(pollID)
}
