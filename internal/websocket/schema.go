package websocket

import (
	"github.com/cybershaman666/jobshaman-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart   Action = "start"
	ActionAnswer  Action = "answer"
	ActionNext    Action = "next"
	ActionProctor Action = "proctor"
	ActionRetry   Action = "retry"
	ActionPing    Action = "ping"
)

// RequestPayload is the single inbound message shape; unused fields stay
// empty depending on the action.
type RequestPayload struct {
	Action Action `json:"action"`

	// action: start
	FullscreenDenied bool `json:"fullscreen_denied,omitempty"`

	// action: answer
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`

	// action: proctor
	Signal string `json:"signal,omitempty"` // hidden | blur
	Detail string `json:"detail,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState        Event = "state"
	EventSaved        Event = "saved"
	EventWarning      Event = "warning"
	EventSubmitFailed Event = "submit_failed"
	EventCompleted    Event = "completed"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// StateResponse carries the full session snapshot, sent after every
// state-changing action and on connect.
type StateResponse struct {
	Event Event         `json:"event"`
	State session.State `json:"state"`
}

// SavedResponse acknowledges a recorded answer.
type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

// WarningResponse notifies the client of a counted focus-loss signal.
type WarningResponse struct {
	Event            Event `json:"event"`
	CheatingAttempts int   `json:"cheating_attempts"`
}

// SubmitFailedResponse reports a failed submission. RetryAvailable is true
// only when the countdown is frozen and an explicit retry is required.
type SubmitFailedResponse struct {
	Event          Event  `json:"event"`
	Forced         bool   `json:"forced"`
	RetryAvailable bool   `json:"retry_available"`
	Error          string `json:"error"`
}

// CompletedResponse reports a successful submission.
type CompletedResponse struct {
	Event    Event  `json:"event"`
	ResultID string `json:"result_id"`
	Forced   bool   `json:"forced"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
