package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/session"
)

type fakeResultStore struct {
	err  error
	last *model.AssessmentResult
	id   uuid.UUID
}

func (f *fakeResultStore) Create(_ context.Context, res *model.AssessmentResult) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.last = res
	if f.id == uuid.Nil {
		f.id = uuid.New()
	}
	return f.id, nil
}

type fakeInvitationStore struct {
	err    error
	marked []uuid.UUID
}

func (f *fakeInvitationStore) MarkCompleted(_ context.Context, id uuid.UUID, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

func submissionOutcome() *session.Outcome {
	correct := "B"
	q1 := model.Question{ID: uuid.New(), Text: "pick", Type: model.QuestionTypeMultipleChoice, CorrectAnswer: &correct, OrderNum: 1}
	q2 := model.Question{ID: uuid.New(), Text: "write", Type: model.QuestionTypeOpenText, OrderNum: 2}
	return &session.Outcome{
		AssessmentID: uuid.New(),
		Role:         "Backend Engineer",
		Invitation:   &model.Invitation{ID: uuid.New()},
		Questions:    []model.Question{q1, q2},
		Answers: map[uuid.UUID]string{
			q2.ID: "free text",
			q1.ID: "B",
		},
		TimeSpentSeconds: 120,
		CheatingAttempts: 3,
		ForcedSubmission: true,
	}
}

func TestSubmitPersistsResultAndCompletesInvitation(t *testing.T) {
	results := &fakeResultStore{}
	invitations := &fakeInvitationStore{}
	svc := NewSubmissionService(results, invitations, zerolog.Nop())

	o := submissionOutcome()
	id, err := svc.Submit(context.Background(), o)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != results.id {
		t.Fatalf("result id = %s, want %s", id, results.id)
	}

	res := results.last
	if res == nil {
		t.Fatal("result not persisted")
	}
	if res.Score != 100 {
		t.Fatalf("score = %d, want 100", res.Score)
	}
	if res.QuestionsTotal != 2 {
		t.Fatalf("questions total = %d, want 2", res.QuestionsTotal)
	}
	if res.InvitationID == nil || *res.InvitationID != o.Invitation.ID {
		t.Fatal("invitation id not recorded on result")
	}
	if !res.Metadata.ForcedSubmission || res.Metadata.CheatingAttempts != 3 {
		t.Fatalf("metadata = %+v", res.Metadata)
	}

	if len(invitations.marked) != 1 || invitations.marked[0] != o.Invitation.ID {
		t.Fatalf("marked invitations = %v", invitations.marked)
	}
}

func TestSubmitOrdersAnswersByQuestionOrder(t *testing.T) {
	results := &fakeResultStore{}
	svc := NewSubmissionService(results, &fakeInvitationStore{}, zerolog.Nop())

	o := submissionOutcome()
	if _, err := svc.Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ans := results.last.Answers
	if len(ans) != 2 {
		t.Fatalf("answer count = %d, want 2", len(ans))
	}
	if ans[0].QuestionID != o.Questions[0].ID || ans[1].QuestionID != o.Questions[1].ID {
		t.Fatal("answers not in question order")
	}
}

func TestSubmitOmitsUnansweredQuestions(t *testing.T) {
	results := &fakeResultStore{}
	svc := NewSubmissionService(results, &fakeInvitationStore{}, zerolog.Nop())

	o := submissionOutcome()
	delete(o.Answers, o.Questions[1].ID)
	if _, err := svc.Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(results.last.Answers) != 1 {
		t.Fatalf("answer count = %d, want 1", len(results.last.Answers))
	}
}

func TestSubmitResultPersistFailure(t *testing.T) {
	results := &fakeResultStore{err: errors.New("db down")}
	invitations := &fakeInvitationStore{}
	svc := NewSubmissionService(results, invitations, zerolog.Nop())

	_, err := svc.Submit(context.Background(), submissionOutcome())
	if !errors.Is(err, ErrResultPersist) {
		t.Fatalf("err = %v, want ErrResultPersist", err)
	}
	if len(invitations.marked) != 0 {
		t.Fatal("invitation updated despite result failure")
	}
}

func TestSubmitInvitationUpdateFailure(t *testing.T) {
	results := &fakeResultStore{}
	invitations := &fakeInvitationStore{err: errors.New("db down")}
	svc := NewSubmissionService(results, invitations, zerolog.Nop())

	_, err := svc.Submit(context.Background(), submissionOutcome())
	if !errors.Is(err, ErrInvitationUpdate) {
		t.Fatalf("err = %v, want ErrInvitationUpdate", err)
	}
}

func TestSubmitPreviewWithoutInvitation(t *testing.T) {
	results := &fakeResultStore{}
	invitations := &fakeInvitationStore{}
	svc := NewSubmissionService(results, invitations, zerolog.Nop())

	o := submissionOutcome()
	o.Invitation = nil
	if _, err := svc.Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if results.last.InvitationID != nil {
		t.Fatal("preview result should not carry an invitation id")
	}
	if len(invitations.marked) != 0 {
		t.Fatal("preview must not touch invitations")
	}
}
