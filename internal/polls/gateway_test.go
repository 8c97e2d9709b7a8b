package polls

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordingHub captures broadcast and unicast events for assertions.
type recordingHub struct {
	mu                sync.Mutex
	broadcast         []string
	broadcastPayloads []json.RawMessage
	unicast           map[string][]string
}

func newRecordingHub() *recordingHub {
	return &recordingHub{unicast: make(map[string][]string)}
}

func (h *recordingHub) Broadcast(event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast = append(h.broadcast, event)
	h.broadcastPayloads = append(h.broadcastPayloads, data)
}

func (h *recordingHub) SendTo(clientID, event string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unicast[clientID] = append(h.unicast[clientID], event)
}

func (h *recordingHub) unicastEvents(clientID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.unicast[clientID]...)
}

func (h *recordingHub) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.broadcast...)
}

func (h *recordingHub) count(event string) int {
	n := 0
	for _, e := range h.events() {
		if e == event {
			n++
		}
	}
	return n
}

func newTestGateway(t *testing.T) (*Gateway, *Service, *recordingHub, *Scheduler) {
	t.Helper()
	svc := newTestService(newMemStore())
	hub := newRecordingHub()
	scheduler := NewScheduler(zap.NewNop())
	t.Cleanup(scheduler.StopAll)
	return NewGateway(svc, scheduler, hub, zap.NewNop()), svc, hub, scheduler
}

func TestGatewayLifecycleEventOrder(t *testing.T) {
	gw, _, hub, _ := newTestGateway(t)
	ctx := context.Background()

	p, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := gw.SubmitVote(ctx, p.ID, "Alice", 0); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := gw.SubmitVote(ctx, p.ID, "Bob", 1); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := gw.EndPoll(ctx, p.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	want := []string{EventPollStarted, EventPollUpdate, EventPollUpdate, EventPollEnded}
	got := hub.events()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestGatewayManualEndCancelsCountdownAndAnnouncesOnce(t *testing.T) {
	gw, _, hub, scheduler := newTestGateway(t)
	ctx := context.Background()

	p, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := gw.EndPoll(ctx, p.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	// Simulate the scheduled end firing anyway: the transition already
	// happened, so the loser must stay silent.
	gw.autoEnd(p.ID)
	// A second manual end is a silent success and must not re-announce.
	if err := gw.EndPoll(ctx, p.ID); err != nil {
		t.Fatalf("second end: %v", err)
	}

	if n := hub.count(EventPollEnded); n != 1 {
		t.Fatalf("expected exactly 1 poll-ended broadcast, got %d", n)
	}

	scheduler.Cancel(p.ID) // already cancelled; no-op
}

func TestGatewayAutoEndAnnouncesOnce(t *testing.T) {
	gw, svc, hub, _ := newTestGateway(t)
	ctx := context.Background()

	p, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	gw.autoEnd(p.ID)
	// Manual end arriving after the auto end: silent success, no second
	// announcement.
	if err := gw.EndPoll(ctx, p.ID); err != nil {
		t.Fatalf("manual end after auto end: %v", err)
	}

	if n := hub.count(EventPollEnded); n != 1 {
		t.Fatalf("expected exactly 1 poll-ended broadcast, got %d", n)
	}

	ap, err := svc.GetActive(ctx, "")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if ap != nil {
		t.Error("expected no active poll after auto end")
	}
}

func TestGatewayRecoverActive(t *testing.T) {
	t.Run("re-arms a live poll", func(t *testing.T) {
		gw, _, hub, _ := newTestGateway(t)
		ctx := context.Background()

		if _, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60); err != nil {
			t.Fatalf("create: %v", err)
		}

		// A restarted process would build a fresh scheduler and recover.
		gw.RecoverActive(ctx)
		if n := hub.count(EventPollEnded); n != 0 {
			t.Fatalf("live poll must not be ended by recovery, got %d poll-ended", n)
		}
	})

	t.Run("ends a poll whose deadline passed", func(t *testing.T) {
		gw, svc, hub, _ := newTestGateway(t)
		ctx := context.Background()

		p, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		svc.now = func() time.Time { return p.StartedAt.Add(5 * time.Minute) }

		gw.RecoverActive(ctx)

		if n := hub.count(EventPollEnded); n != 1 {
			t.Fatalf("expected poll-ended broadcast from recovery, got %d", n)
		}
		ap, err := svc.GetActive(ctx, "")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if ap != nil {
			t.Error("expected orphaned poll to be completed")
		}
	})
}

func TestGatewayVoteAfterEndRejected(t *testing.T) {
	gw, _, _, _ := newTestGateway(t)
	ctx := context.Background()

	p, err := gw.CreatePoll(ctx, "Q?", []string{"A", "B"}, 0, 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := gw.EndPoll(ctx, p.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := gw.SubmitVote(ctx, p.ID, "Alice", 0); err != ErrPollNotActive {
		t.Fatalf("expected ErrPollNotActive, got %v", err)
	}
}
