// Package session implements the server-authoritative assessment session:
// a state machine driving the countdown timer, proctor signal counting,
// per-question answer tracking and the submission handoff.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// Phase enumerates the session lifecycle states.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseCompleted  Phase = "COMPLETED"
)

// SignalKind identifies a proctor signal source. Both kinds are weighted
// identically and are not deduplicated: a single alt-tab that fires both
// counts twice. That is deliberate; strict-vs-lenient proctoring is a
// product decision, not ours to soften here.
type SignalKind string

const (
	SignalHidden SignalKind = "hidden"
	SignalBlur   SignalKind = "blur"
)

// Session errors surfaced to the transport layer.
var (
	ErrAlreadyStarted   = errors.New("session already started")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrAnswerRequired   = errors.New("an answer is required before advancing")
	ErrUnknownQuestion  = errors.New("question does not belong to this assessment")
	ErrRetryUnavailable = errors.New("no failed submission to retry")
)

// Outcome is the final state handed to the submission pipeline.
type Outcome struct {
	AssessmentID     uuid.UUID
	Role             string
	Invitation       *model.Invitation
	Questions        []model.Question
	Answers          map[uuid.UUID]string
	TimeSpentSeconds int
	CheatingAttempts int
	ForcedSubmission bool
}

// Submitter persists an Outcome and returns the generated result id.
// A returned error means nothing was committed.
type Submitter interface {
	Submit(ctx context.Context, o *Outcome) (uuid.UUID, error)
}

// EventKind enumerates asynchronous engine notifications.
type EventKind string

const (
	EventFocusLost    EventKind = "focus_lost"
	EventCompleted    EventKind = "completed"
	EventSubmitFailed EventKind = "submit_failed"
)

// Event is pushed on the engine's event channel. Forced submissions and
// their failures originate in the timer goroutine, so the transport cannot
// observe them synchronously.
type Event struct {
	Kind             EventKind
	ResultID         uuid.UUID
	CheatingAttempts int
	Forced           bool
	Err              error
}

// State is a point-in-time snapshot safe to serialize to the client.
type State struct {
	Phase                Phase `json:"phase"`
	CurrentQuestionIndex int   `json:"current_question_index"`
	TimeRemainingSeconds int   `json:"time_remaining_seconds"`
	CheatingAttempts     int   `json:"cheating_attempts"`
	FocusWarning         bool  `json:"focus_warning"`
	ForcedSubmission     bool  `json:"forced_submission"`
	RetryAvailable       bool  `json:"retry_available"`
	QuestionsTotal       int   `json:"questions_total"`
	AnsweredCount        int   `json:"answered_count"`
}

// Engine owns one assessment attempt. It is not shared across attempts;
// all mutation goes through its methods.
type Engine struct {
	mu        sync.Mutex
	def       *model.Definition
	inv       *model.Invitation
	questions map[uuid.UUID]*model.Question
	submitter Submitter
	log       zerolog.Logger
	events    chan Event

	phase        Phase
	current      int
	answers      map[uuid.UUID]string
	remaining    int
	cheats       int
	focusWarning bool
	forced       bool
	frozen       bool // timer pinned at 0 after a failed forced submission
	expiredOnce  bool

	stop chan struct{}
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithProgress seeds a reconnecting session with previously autosaved
// answers and the authoritative remaining time.
func WithProgress(answers map[uuid.UUID]string, remainingSeconds int) Option {
	return func(e *Engine) {
		for qid, ans := range answers {
			if _, ok := e.questions[qid]; ok {
				e.answers[qid] = ans
			}
		}
		if remainingSeconds >= 0 {
			e.remaining = remainingSeconds
		}
	}
}

// New creates an engine in NOT_STARTED phase. inv may be nil (preview mode).
func New(def *model.Definition, inv *model.Invitation, submitter Submitter, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		def:       def,
		inv:       inv,
		questions: make(map[uuid.UUID]*model.Question, len(def.Questions)),
		submitter: submitter,
		log:       log.With().Str("component", "session_engine").Str("assessment_id", def.ID.String()).Logger(),
		events:    make(chan Event, 16),
		phase:     PhaseNotStarted,
		answers:   make(map[uuid.UUID]string),
		remaining: def.TimeLimitSeconds,
	}
	for i := range def.Questions {
		e.questions[def.Questions[i].ID] = &def.Questions[i]
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the engine's asynchronous notification channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Definition returns the immutable assessment definition of this session.
func (e *Engine) Definition() *model.Definition {
	return e.def
}

// Invitation returns the originating invitation, or nil in preview mode.
func (e *Engine) Invitation() *model.Invitation {
	return e.inv
}

// Start moves the session to IN_PROGRESS and begins the countdown.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseNotStarted {
		return ErrAlreadyStarted
	}
	e.phase = PhaseInProgress
	e.startTimerLocked()
	e.log.Info().Int("time_limit", e.remaining).Msg("Session started")
	return nil
}

// Answer records the latest answer for a question, replacing any prior one.
func (e *Engine) Answer(questionID uuid.UUID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if _, ok := e.questions[questionID]; !ok {
		return ErrUnknownQuestion
	}
	e.answers[questionID] = text
	return nil
}

// RecordSignal counts one proctor signal while IN_PROGRESS and raises the
// transient focus warning. Signals outside IN_PROGRESS are dropped.
func (e *Engine) RecordSignal(kind SignalKind) (int, bool) {
	e.mu.Lock()
	if e.phase != PhaseInProgress {
		e.mu.Unlock()
		return e.cheats, false
	}
	e.cheats++
	e.focusWarning = true
	count := e.cheats
	e.mu.Unlock()

	e.emit(Event{Kind: EventFocusLost, CheatingAttempts: count})
	return count, true
}

// Next advances to the next question, or triggers submission when on the
// last one. A MULTIPLE_CHOICE question must have a non-empty answer before
// advancing; CODE and OPEN_TEXT questions may be left blank. Advancing
// clears the transient focus warning.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()

	if e.phase != PhaseInProgress {
		e.mu.Unlock()
		return ErrNotInProgress
	}

	if e.current < len(e.def.Questions) {
		q := &e.def.Questions[e.current]
		if q.Type == model.QuestionTypeMultipleChoice && e.answers[q.ID] == "" {
			e.mu.Unlock()
			return ErrAnswerRequired
		}
	}

	e.focusWarning = false

	if e.current < len(e.def.Questions)-1 {
		e.current++
		e.mu.Unlock()
		return nil
	}

	e.mu.Unlock()
	e.submit(ctx, false)
	return nil
}

// Retry re-runs a submission that previously failed after time expiry.
// The live countdown path is never re-armed; only this explicit action
// can resubmit, which is the guard against a retry loop on a persistent
// backend outage.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != PhaseInProgress || !e.frozen {
		e.mu.Unlock()
		return ErrRetryUnavailable
	}
	e.mu.Unlock()

	e.submit(ctx, true)
	return nil
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Phase:                e.phase,
		CurrentQuestionIndex: e.current,
		TimeRemainingSeconds: e.remaining,
		CheatingAttempts:     e.cheats,
		FocusWarning:         e.focusWarning,
		ForcedSubmission:     e.forced,
		RetryAvailable:       e.frozen,
		QuestionsTotal:       len(e.def.Questions),
		AnsweredCount:        len(e.answers),
	}
}

// Answers returns a copy of the recorded answers.
func (e *Engine) Answers() map[uuid.UUID]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[uuid.UUID]string, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// Teardown stops the countdown without changing phase. Callers use it when
// the transport goes away; a reconnect builds a fresh engine from the
// autosaved progress.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
}

// ─── Timer ─────────────────────────────────────────────────────────────

// startTimerLocked arms the 1 Hz countdown. Caller holds e.mu.
func (e *Engine) startTimerLocked() {
	if e.stop != nil || e.frozen {
		return
	}
	stop := make(chan struct{})
	e.stop = stop
	go e.runTimer(stop)
}

// stopTimerLocked is the single teardown routine for the tick subscription.
// Every transition out of IN_PROGRESS goes through here. Caller holds e.mu.
func (e *Engine) stopTimerLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) runTimer(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.tick() {
				e.submit(context.Background(), true)
				return
			}
		}
	}
}

// tick decrements the remaining time by one second, clamped at 0. It
// returns true exactly once, when the countdown reaches 0, regardless of
// how many further ticks arrive.
func (e *Engine) tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress || e.frozen {
		return false
	}
	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining == 0 && !e.expiredOnce {
		e.expiredOnce = true
		return true
	}
	return false
}

// ─── Submission ────────────────────────────────────────────────────────

// submit drives IN_PROGRESS → SUBMITTING → COMPLETED, or back to
// IN_PROGRESS on pipeline failure with every counter left untouched.
func (e *Engine) submit(ctx context.Context, forced bool) {
	e.mu.Lock()
	if e.phase != PhaseInProgress {
		// Double-submission guard: a stray trigger after the phase moved on
		// (e.g. a zero-tick racing a manual submit) is dropped here.
		e.mu.Unlock()
		return
	}
	e.phase = PhaseSubmitting
	e.forced = forced
	e.stopTimerLocked()
	outcome := e.buildOutcomeLocked(forced)
	e.mu.Unlock()

	resultID, err := e.submitter.Submit(ctx, outcome)

	e.mu.Lock()
	if err != nil {
		e.phase = PhaseInProgress
		if forced {
			// Re-entering the live countdown at 0 would instantly re-trigger
			// submission and loop on a backend outage. Freeze instead and
			// wait for an explicit retry.
			e.frozen = true
		} else {
			e.startTimerLocked()
		}
		e.mu.Unlock()

		e.log.Error().Err(err).Bool("forced", forced).Msg("Submission failed, session reverted")
		e.emit(Event{Kind: EventSubmitFailed, Forced: forced, Err: err})
		return
	}
	e.phase = PhaseCompleted
	cheats := e.cheats
	e.mu.Unlock()

	e.log.Info().Str("result_id", resultID.String()).Bool("forced", forced).Msg("Session completed")
	e.emit(Event{Kind: EventCompleted, ResultID: resultID, CheatingAttempts: cheats, Forced: forced})
}

// buildOutcomeLocked snapshots the final state. Caller holds e.mu.
func (e *Engine) buildOutcomeLocked(forced bool) *Outcome {
	answers := make(map[uuid.UUID]string, len(e.answers))
	for k, v := range e.answers {
		answers[k] = v
	}
	return &Outcome{
		AssessmentID:     e.def.ID,
		Role:             e.def.Role,
		Invitation:       e.inv,
		Questions:        e.def.Questions,
		Answers:          answers,
		TimeSpentSeconds: e.def.TimeLimitSeconds - e.remaining,
		CheatingAttempts: e.cheats,
		ForcedSubmission: forced,
	}
}

// emit pushes an event without ever blocking the state machine.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Warn().Str("kind", string(ev.Kind)).Msg("Event channel full, dropping event")
	}
}
