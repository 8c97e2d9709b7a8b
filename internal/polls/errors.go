package polls

// Kind classifies a poll operation failure so boundary layers can map it to
// an HTTP status or a unicast error event without string matching.
type Kind int

const (
	KindValidation Kind = iota // malformed input
	KindConflict               // active poll exists, duplicate vote
	KindNotFound               // unknown poll id
	KindInvalidState           // operation on a non-active poll
	KindExpired                // vote after the time window closed
)

// Error is a poll lifecycle failure with a stable kind and a
// human-readable message suitable for direct client display.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Sentinel failures. These cover every non-validation failure mode the
// coordinator can return; validation messages are built with newValidationError.
var (
	ErrPollNotFound     = &Error{Kind: KindNotFound, Message: "poll not found"}
	ErrActivePollExists = &Error{Kind: KindConflict, Message: "an active poll already exists, end it before creating a new one"}
	ErrAlreadyVoted     = &Error{Kind: KindConflict, Message: "you have already voted on this poll"}
	ErrPollNotActive    = &Error{Kind: KindInvalidState, Message: "poll is no longer active"}
	ErrTimeExpired      = &Error{Kind: KindExpired, Message: "time limit exceeded"}
)

func newValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
