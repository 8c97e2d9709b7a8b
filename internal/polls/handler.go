package polls

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// CreateRequest is the body for POST /api/polls.
type CreateRequest struct {
	Question           string   `json:"question" binding:"required"`
	Options            []string `json:"options" binding:"required"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	TimerDuration      int      `json:"timerDuration" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	gateway *Gateway
}

// NewHandler creates a polls handler.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// Create handles POST /api/polls (teacher). Validation and active-poll
// conflicts both answer 400 with the failure reason.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.gateway.CreatePoll(c.Request.Context(), req.Question, req.Options, req.CorrectOptionIndex, req.TimerDuration)
	if err != nil {
		var pollErr *Error
		if errors.As(err, &pollErr) {
			response.BadRequest(c, pollErr.Message)
			return
		}
		response.Internal(c, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// GetActive handles GET /api/polls/active?studentName= and answers 404 when
// no poll is active.
func (h *Handler) GetActive(c *gin.Context) {
	ap, err := h.gateway.ActiveSnapshot(c.Request.Context(), c.Query("studentName"))
	if err != nil {
		response.Internal(c, "failed to load active poll")
		return
	}
	if ap == nil {
		response.NotFound(c, "no active poll found")
		return
	}
	response.OK(c, ap)
}

// GetResults handles GET /api/polls/:pollId/results.
func (h *Handler) GetResults(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("pollId"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	results, err := h.gateway.Results(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			response.NotFound(c, ErrPollNotFound.Message)
			return
		}
		response.Internal(c, "failed to compute results")
		return
	}
	response.OK(c, results)
}

// GetHistory handles GET /api/polls/history.
func (h *Handler) GetHistory(c *gin.Context) {
	history, err := h.gateway.History(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load poll history")
		return
	}
	if history == nil {
		history = []*models.HistoryEntry{}
	}
	response.OK(c, history)
}

// End handles POST /api/polls/:pollId/end (teacher). An unknown poll answers
// 400; ending an already completed poll is a silent success.
func (h *Handler) End(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("pollId"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	if err := h.gateway.EndPoll(c.Request.Context(), pollID); err != nil {
		var pollErr *Error
		if errors.As(err, &pollErr) {
			response.BadRequest(c, pollErr.Message)
			return
		}
		response.Internal(c, "failed to end poll")
		return
	}
	response.OK(c, gin.H{"id": pollID, "ended": true})
}
