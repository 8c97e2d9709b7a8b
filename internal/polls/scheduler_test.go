package polls

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestSchedulerFiresOnce(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var fired atomic.Int32
	done := make(chan struct{})
	s.SetExpireHandler(func(uuid.UUID) {
		fired.Add(1)
		close(done)
	})

	pollID := uuid.New()
	s.Schedule(pollID, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("countdown did not fire")
	}
	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("expected exactly 1 firing, got %d", n)
	}

	// The entry retired itself; a late cancel is a no-op.
	s.Cancel(pollID)
}

func TestSchedulerCancelPreventsFiring(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var fired atomic.Int32
	s.SetExpireHandler(func(uuid.UUID) { fired.Add(1) })

	pollID := uuid.New()
	s.Schedule(pollID, 20*time.Millisecond)
	s.Cancel(pollID)

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("expected no firing after cancel, got %d", n)
	}
	// Double cancel is safe.
	s.Cancel(pollID)
}

func TestSchedulerRescheduleResetsCountdown(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var fired atomic.Int32
	s.SetExpireHandler(func(uuid.UUID) { fired.Add(1) })

	pollID := uuid.New()
	s.Schedule(pollID, 20*time.Millisecond)
	s.Schedule(pollID, 200*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("reset countdown fired early, got %d firings", n)
	}
	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("expected exactly 1 firing after reset, got %d", n)
	}
}

func TestSchedulerStopAll(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var fired atomic.Int32
	s.SetExpireHandler(func(uuid.UUID) { fired.Add(1) })

	for i := 0; i < 5; i++ {
		s.Schedule(uuid.New(), 20*time.Millisecond)
	}
	s.StopAll()

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("expected no firings after StopAll, got %d", n)
	}
}
