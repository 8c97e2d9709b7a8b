package polls

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SocketDispatcher routes poll lifecycle events arriving over WebSocket to
// the gateway. Failures go back to the requesting client as a unicast error
// event with the human-readable reason; nothing is swallowed.
type SocketDispatcher struct {
	gateway *Gateway
	hub     Broadcaster
	logger  *zap.Logger
}

// NewSocketDispatcher creates the WebSocket-side poll event dispatcher.
func NewSocketDispatcher(gateway *Gateway, hub Broadcaster, logger *zap.Logger) *SocketDispatcher {
	return &SocketDispatcher{gateway: gateway, hub: hub, logger: logger}
}

type createPollEvent struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	TimerDuration      int      `json:"timerDuration"`
}

type submitVoteEvent struct {
	PollID         uuid.UUID `json:"pollId"`
	StudentName    string    `json:"studentName"`
	SelectedOption int       `json:"selectedOption"`
}

type endPollEvent struct {
	PollID uuid.UUID `json:"pollId"`
}

type joinPollEvent struct {
	StudentName string `json:"studentName"`
}

// HandleEvent dispatches one poll event from a connected client. Unknown
// events are ignored so peripheral traffic can pass through the hub
// untouched.
func (d *SocketDispatcher) HandleEvent(clientID, event string, data json.RawMessage) {
	ctx := context.Background()
	switch event {
	case "create-poll":
		var req createPollEvent
		if err := json.Unmarshal(data, &req); err != nil {
			d.sendError(clientID, "invalid create-poll payload")
			return
		}
		if _, err := d.gateway.CreatePoll(ctx, req.Question, req.Options, req.CorrectOptionIndex, req.TimerDuration); err != nil {
			d.sendError(clientID, err.Error())
		}

	case "submit-vote":
		var req submitVoteEvent
		if err := json.Unmarshal(data, &req); err != nil {
			d.sendError(clientID, "invalid submit-vote payload")
			return
		}
		if _, err := d.gateway.SubmitVote(ctx, req.PollID, req.StudentName, req.SelectedOption); err != nil {
			d.sendError(clientID, err.Error())
			return
		}
		d.hub.SendTo(clientID, EventVoteRecorded, map[string]bool{"success": true})

	case "end-poll":
		var req endPollEvent
		if err := json.Unmarshal(data, &req); err != nil {
			d.sendError(clientID, "invalid end-poll payload")
			return
		}
		if err := d.gateway.EndPoll(ctx, req.PollID); err != nil {
			d.sendError(clientID, err.Error())
		}

	case "join-poll":
		var req joinPollEvent
		if err := json.Unmarshal(data, &req); err != nil {
			d.sendError(clientID, "invalid join-poll payload")
			return
		}
		ap, err := d.gateway.ActiveSnapshot(ctx, req.StudentName)
		if err != nil {
			d.sendError(clientID, err.Error())
			return
		}
		if ap == nil {
			return
		}
		// Late joiners get the running poll as a private poll-started with
		// the live remaining time, not the original duration.
		d.hub.SendTo(clientID, EventPollStarted, map[string]interface{}{
			"poll":          ap.Poll,
			"remainingTime": ap.RemainingTime,
			"hasVoted":      ap.HasVoted,
			"results":       ap.Results,
		})

	default:
		d.logger.Debug("ignoring unknown poll event", zap.String("event", event))
	}
}

func (d *SocketDispatcher) sendError(clientID, message string) {
	d.hub.SendTo(clientID, EventError, map[string]string{"message": message})
}
