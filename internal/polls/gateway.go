package polls

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// Lifecycle event names shared by the REST and WebSocket boundaries.
const (
	EventPollStarted  = "poll-started"
	EventPollUpdate   = "poll-update"
	EventPollEnded    = "poll-ended"
	EventVoteRecorded = "vote-recorded"
	EventError        = "error"
)

// Broadcaster fans lifecycle events out to every connected client or to one
// addressed client. Implemented by the realtime hub.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
	SendTo(clientID, event string, payload interface{})
}

// Gateway is the boundary layer around the coordinator: it runs the lifecycle
// operations and performs the broadcasting and auto-end scheduling the
// coordinator itself stays out of. Both the REST handlers and the WebSocket
// dispatcher go through it so the started -> updates -> ended ordering is
// announced from a single place.
type Gateway struct {
	service   *Service
	scheduler *Scheduler
	hub       Broadcaster
	logger    *zap.Logger
}

// NewGateway creates the gateway and registers itself as the scheduler's
// expire handler.
func NewGateway(service *Service, scheduler *Scheduler, hub Broadcaster, logger *zap.Logger) *Gateway {
	g := &Gateway{service: service, scheduler: scheduler, hub: hub, logger: logger}
	scheduler.SetExpireHandler(g.autoEnd)
	return g
}

// CreatePoll creates a poll, arms its auto-end countdown, and broadcasts
// poll-started.
func (g *Gateway) CreatePoll(ctx context.Context, question string, options []string, correctOptionIndex, timerDuration int) (*models.Poll, error) {
	p, err := g.service.Create(ctx, question, options, correctOptionIndex, timerDuration)
	if err != nil {
		return nil, err
	}
	g.scheduler.Schedule(p.ID, time.Duration(p.TimerDuration)*time.Second)
	g.hub.Broadcast(EventPollStarted, map[string]interface{}{
		"poll":          p,
		"remainingTime": p.TimerDuration,
	})
	g.logger.Info("poll started",
		zap.String("poll_id", p.ID.String()),
		zap.Int("timer_duration", p.TimerDuration))
	return p, nil
}

// SubmitVote records a vote and broadcasts the refreshed results.
func (g *Gateway) SubmitVote(ctx context.Context, pollID uuid.UUID, studentName string, selectedOption int) (*models.PollResults, error) {
	if err := g.service.SubmitVote(ctx, pollID, studentName, selectedOption); err != nil {
		return nil, err
	}
	results, err := g.service.Results(ctx, pollID)
	if err != nil {
		return nil, err
	}
	g.hub.Broadcast(EventPollUpdate, map[string]interface{}{"results": results})
	return results, nil
}

// EndPoll ends a poll on explicit teacher action. The pending countdown is
// cancelled either way; poll-ended is broadcast only when this call performed
// the transition, so a scheduler firing that already won stays the single
// announcer. Ending an already completed poll succeeds silently.
func (g *Gateway) EndPoll(ctx context.Context, pollID uuid.UUID) error {
	ended, err := g.service.End(ctx, pollID)
	if err != nil {
		return err
	}
	g.scheduler.Cancel(pollID)
	if ended {
		g.announceEnded(ctx, pollID)
	}
	return nil
}

// ActiveSnapshot returns the current active poll view for a joining client.
func (g *Gateway) ActiveSnapshot(ctx context.Context, studentName string) (*models.ActivePoll, error) {
	return g.service.GetActive(ctx, studentName)
}

// Results returns the aggregated results for a poll.
func (g *Gateway) Results(ctx context.Context, pollID uuid.UUID) (*models.PollResults, error) {
	return g.service.Results(ctx, pollID)
}

// History returns recent completed polls with results.
func (g *Gateway) History(ctx context.Context) ([]*models.HistoryEntry, error) {
	return g.service.History(ctx)
}

// RecoverActive re-arms the auto-end countdown for a poll that was active
// when the process last stopped. A poll whose deadline already passed is
// ended immediately. Called once at startup.
func (g *Gateway) RecoverActive(ctx context.Context) {
	ap, err := g.service.GetActive(ctx, "")
	if err != nil {
		g.logger.Warn("active poll recovery failed", zap.Error(err))
		return
	}
	if ap == nil {
		return
	}
	if ap.RemainingTime <= 0 {
		g.logger.Info("ending poll orphaned by restart", zap.String("poll_id", ap.Poll.ID.String()))
		g.autoEnd(ap.Poll.ID)
		return
	}
	g.scheduler.Schedule(ap.Poll.ID, time.Duration(ap.RemainingTime)*time.Second)
	g.logger.Info("rescheduled auto-end after restart",
		zap.String("poll_id", ap.Poll.ID.String()),
		zap.Int("remaining", ap.RemainingTime))
}

// autoEnd is the scheduler's expiry path. Failures are logged and not
// retried; the poll stays active for a manual end or the next restart
// recovery.
func (g *Gateway) autoEnd(pollID uuid.UUID) {
	ctx := context.Background()
	ended, err := g.service.End(ctx, pollID)
	if err != nil {
		g.logger.Error("auto-end failed", zap.Error(err), zap.String("poll_id", pollID.String()))
		return
	}
	if !ended {
		// Manual end won the race; it already announced.
		return
	}
	g.logger.Info("poll auto-ended", zap.String("poll_id", pollID.String()))
	g.announceEnded(ctx, pollID)
}

func (g *Gateway) announceEnded(ctx context.Context, pollID uuid.UUID) {
	results, err := g.service.Results(ctx, pollID)
	if err != nil {
		g.logger.Error("results after end failed", zap.Error(err), zap.String("poll_id", pollID.String()))
		return
	}
	g.hub.Broadcast(EventPollEnded, map[string]interface{}{
		"pollId":  pollID,
		"results": results,
	})
}
