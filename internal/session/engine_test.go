package session

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// fakeSubmitter records outcomes and fails on demand.
type fakeSubmitter struct {
	err      error
	calls    int
	lastID   uuid.UUID
	outcomes []*Outcome
}

func (f *fakeSubmitter) Submit(_ context.Context, o *Outcome) (uuid.UUID, error) {
	f.calls++
	f.outcomes = append(f.outcomes, o)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.lastID = uuid.New()
	return f.lastID, nil
}

func strptr(s string) *string { return &s }

// threeQuestionDef builds the canonical paper: one gradeable multiple-choice
// question (correct answer "B"), one code question and one open-text
// question, with a 5 second limit.
func threeQuestionDef() *model.Definition {
	def := &model.Definition{
		Assessment: model.Assessment{
			ID:               uuid.New(),
			Title:            "Backend Screening",
			Role:             "Go Developer",
			TimeLimitSeconds: 5,
		},
	}
	def.Questions = []model.Question{
		{ID: uuid.New(), AssessmentID: def.ID, Type: model.QuestionTypeMultipleChoice, Text: "Pick one", CorrectAnswer: strptr("B"), OrderNum: 0},
		{ID: uuid.New(), AssessmentID: def.ID, Type: model.QuestionTypeCode, Text: "Write code", OrderNum: 1},
		{ID: uuid.New(), AssessmentID: def.ID, Type: model.QuestionTypeOpenText, Text: "Tell us more", OrderNum: 2},
	}
	return def
}

// newTestEngine starts an engine and immediately detaches the wall-clock
// ticker so tests can drive tick() deterministically.
func newTestEngine(t *testing.T, def *model.Definition, sub Submitter) *Engine {
	t.Helper()
	e := New(def, nil, sub, zerolog.Nop())
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Teardown()
	return e
}

func drainEvent(t *testing.T, e *Engine, want EventKind) Event {
	t.Helper()
	select {
	case ev := <-e.Events():
		if ev.Kind != want {
			t.Fatalf("event = %s, want %s", ev.Kind, want)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no %s event", want)
	}
	return Event{}
}

func TestStartTwice(t *testing.T) {
	e := newTestEngine(t, threeQuestionDef(), &fakeSubmitter{})
	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestAnswerReplacement(t *testing.T) {
	def := threeQuestionDef()
	e := newTestEngine(t, def, &fakeSubmitter{})
	qid := def.Questions[1].ID

	if err := e.Answer(qid, "first draft"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Answer(qid, "second draft"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	answers := e.Answers()
	if len(answers) != 1 {
		t.Fatalf("answers len = %d, want 1", len(answers))
	}
	if answers[qid] != "second draft" {
		t.Fatalf("answers[qid] = %q, want %q", answers[qid], "second draft")
	}
}

func TestAnswerUnknownQuestion(t *testing.T) {
	e := newTestEngine(t, threeQuestionDef(), &fakeSubmitter{})
	if err := e.Answer(uuid.New(), "x"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("Answer = %v, want ErrUnknownQuestion", err)
	}
}

func TestNavigationGate(t *testing.T) {
	def := threeQuestionDef()
	e := newTestEngine(t, def, &fakeSubmitter{})
	ctx := context.Background()

	// Multiple choice with no selection blocks Next.
	if err := e.Next(ctx); !errors.Is(err, ErrAnswerRequired) {
		t.Fatalf("Next on unanswered MC = %v, want ErrAnswerRequired", err)
	}

	if err := e.Answer(def.Questions[0].ID, "B"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next after answering MC: %v", err)
	}

	// Blank CODE question does not block.
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next on blank code question: %v", err)
	}
	if got := e.Snapshot().CurrentQuestionIndex; got != 2 {
		t.Fatalf("index = %d, want 2", got)
	}
}

func TestNextClearsFocusWarning(t *testing.T) {
	def := threeQuestionDef()
	e := newTestEngine(t, def, &fakeSubmitter{})

	e.RecordSignal(SignalBlur)
	drainEvent(t, e, EventFocusLost)
	if !e.Snapshot().FocusWarning {
		t.Fatal("focus warning not raised")
	}

	if err := e.Answer(def.Questions[0].ID, "B"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if e.Snapshot().FocusWarning {
		t.Fatal("focus warning not cleared by navigation")
	}
}

func TestProctorCountingOnlyInProgress(t *testing.T) {
	def := threeQuestionDef()
	sub := &fakeSubmitter{}
	e := New(def, nil, sub, zerolog.Nop())

	// Before start: dropped.
	if _, counted := e.RecordSignal(SignalHidden); counted {
		t.Fatal("signal counted before start")
	}

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Teardown()

	// Hidden and blur are counted identically, no dedup.
	for i := 0; i < 3; i++ {
		e.RecordSignal(SignalHidden)
		e.RecordSignal(SignalBlur)
	}
	if got := e.Snapshot().CheatingAttempts; got != 6 {
		t.Fatalf("cheating attempts = %d, want 6", got)
	}

	// After completion: dropped.
	e.submit(context.Background(), false)
	if _, counted := e.RecordSignal(SignalBlur); counted {
		t.Fatal("signal counted after completion")
	}
	if got := e.Snapshot().CheatingAttempts; got != 6 {
		t.Fatalf("cheating attempts after completion = %d, want 6", got)
	}
}

func TestTimerMonotonicExactlyOnce(t *testing.T) {
	def := threeQuestionDef()
	def.TimeLimitSeconds = 3
	e := newTestEngine(t, def, &fakeSubmitter{})

	prev := e.Snapshot().TimeRemainingSeconds
	expiries := 0
	for i := 0; i < 10; i++ {
		if e.tick() {
			expiries++
		}
		cur := e.Snapshot().TimeRemainingSeconds
		if cur > prev {
			t.Fatalf("time increased from %d to %d", prev, cur)
		}
		if cur < 0 {
			t.Fatalf("time went negative: %d", cur)
		}
		prev = cur
	}

	if expiries != 1 {
		t.Fatalf("expiry signalled %d times, want exactly 1", expiries)
	}
	if prev != 0 {
		t.Fatalf("time remaining = %d, want 0", prev)
	}
}

func TestForcedSubmissionOnExpiry(t *testing.T) {
	def := threeQuestionDef()
	def.TimeLimitSeconds = 2
	sub := &fakeSubmitter{}
	e := newTestEngine(t, def, sub)

	if err := e.Answer(def.Questions[0].ID, "A"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	for !e.tick() {
	}
	e.submit(context.Background(), true)

	if sub.calls != 1 {
		t.Fatalf("submitter calls = %d, want 1", sub.calls)
	}
	o := sub.outcomes[0]
	if !o.ForcedSubmission {
		t.Fatal("outcome not marked as forced submission")
	}
	if o.TimeSpentSeconds != 2 {
		t.Fatalf("time spent = %d, want 2", o.TimeSpentSeconds)
	}
	// Whatever was recorded at expiry is submitted as-is.
	if o.Answers[def.Questions[0].ID] != "A" {
		t.Fatalf("answers not snapshotted at expiry: %v", o.Answers)
	}
	if got := e.Snapshot().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want %s", got, PhaseCompleted)
	}
	drainEvent(t, e, EventCompleted)
}

func TestFailedSubmissionPreservesState(t *testing.T) {
	def := threeQuestionDef()
	sub := &fakeSubmitter{err: errors.New("store unavailable")}
	e := newTestEngine(t, def, sub)
	ctx := context.Background()

	if err := e.Answer(def.Questions[0].ID, "B"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Answer(def.Questions[1].ID, "package main"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	e.RecordSignal(SignalHidden)
	drainEvent(t, e, EventFocusLost)

	for i := 0; i < 2; i++ {
		if err := e.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	before := e.Snapshot()
	beforeAnswers := e.Answers()

	// Advancing past the last question triggers a submission that fails.
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	drainEvent(t, e, EventSubmitFailed)

	after := e.Snapshot()
	if after.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want %s after failed submission", after.Phase, PhaseInProgress)
	}
	if after.CurrentQuestionIndex != before.CurrentQuestionIndex {
		t.Fatalf("index changed: %d → %d", before.CurrentQuestionIndex, after.CurrentQuestionIndex)
	}
	if after.CheatingAttempts != before.CheatingAttempts {
		t.Fatalf("cheating attempts changed: %d → %d", before.CheatingAttempts, after.CheatingAttempts)
	}
	if !reflect.DeepEqual(beforeAnswers, e.Answers()) {
		t.Fatalf("answers changed: %v → %v", beforeAnswers, e.Answers())
	}

	// A user-triggered retry succeeds once the store recovers.
	sub.err = nil
	e.Teardown() // detach the resumed wall-clock ticker
	if err := e.Next(ctx); err != nil {
		t.Fatalf("retry Next: %v", err)
	}
	if got := e.Snapshot().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want %s", got, PhaseCompleted)
	}
}

func TestForcedFailureFreezesTimer(t *testing.T) {
	def := threeQuestionDef()
	def.TimeLimitSeconds = 1
	sub := &fakeSubmitter{err: errors.New("store down")}
	e := newTestEngine(t, def, sub)

	if !e.tick() {
		t.Fatal("expected expiry on first tick")
	}
	e.submit(context.Background(), true)
	drainEvent(t, e, EventSubmitFailed)

	st := e.Snapshot()
	if st.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want %s", st.Phase, PhaseInProgress)
	}
	if !st.RetryAvailable {
		t.Fatal("retry not armed after failed forced submission")
	}
	if st.TimeRemainingSeconds != 0 {
		t.Fatalf("time remaining = %d, want frozen 0", st.TimeRemainingSeconds)
	}

	// The tick path must not re-trigger submission while frozen.
	for i := 0; i < 5; i++ {
		if e.tick() {
			t.Fatal("frozen timer re-triggered expiry")
		}
	}
	if sub.calls != 1 {
		t.Fatalf("submitter calls = %d, want 1 (no automatic retry)", sub.calls)
	}

	// Retry is rejected until armed, and only the explicit action resubmits.
	sub.err = nil
	if err := e.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if sub.calls != 2 {
		t.Fatalf("submitter calls = %d, want 2", sub.calls)
	}
	if !sub.outcomes[1].ForcedSubmission {
		t.Fatal("retried submission lost its forced flag")
	}
	if got := e.Snapshot().Phase; got != PhaseCompleted {
		t.Fatalf("phase = %s, want %s", got, PhaseCompleted)
	}
	drainEvent(t, e, EventCompleted)
}

func TestRetryUnavailableWithoutFreeze(t *testing.T) {
	e := newTestEngine(t, threeQuestionDef(), &fakeSubmitter{})
	if err := e.Retry(context.Background()); !errors.Is(err, ErrRetryUnavailable) {
		t.Fatalf("Retry = %v, want ErrRetryUnavailable", err)
	}
}

func TestManualFlowEndToEnd(t *testing.T) {
	def := threeQuestionDef()
	sub := &fakeSubmitter{}
	e := newTestEngine(t, def, sub)
	ctx := context.Background()

	if err := e.Answer(def.Questions[0].ID, "B"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := e.Answer(def.Questions[1].ID, "func add(a, b int) int { return a + b }"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	// Open text left blank, still advances and submits.
	if err := e.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	if sub.calls != 1 {
		t.Fatalf("submitter calls = %d, want 1", sub.calls)
	}
	o := sub.outcomes[0]
	if o.ForcedSubmission {
		t.Fatal("manual submission marked as forced")
	}
	if len(o.Questions) != 3 {
		t.Fatalf("questions total = %d, want 3", len(o.Questions))
	}
	if len(o.Answers) != 2 {
		t.Fatalf("answers = %d, want 2", len(o.Answers))
	}
	ev := drainEvent(t, e, EventCompleted)
	if ev.ResultID != sub.lastID {
		t.Fatalf("completion callback id = %s, want %s", ev.ResultID, sub.lastID)
	}
}

func TestResumeWithProgress(t *testing.T) {
	def := threeQuestionDef()
	qid := def.Questions[0].ID
	saved := map[uuid.UUID]string{
		qid:        "B",
		uuid.New(): "stale key from another paper", // must be dropped
	}

	e := New(def, nil, &fakeSubmitter{}, zerolog.Nop(), WithProgress(saved, 2))
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Teardown()

	if got := e.Snapshot().TimeRemainingSeconds; got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}
	answers := e.Answers()
	if len(answers) != 1 || answers[qid] != "B" {
		t.Fatalf("restored answers = %v", answers)
	}
}
