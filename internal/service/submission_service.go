package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/scoring"
	"github.com/cybershaman666/jobshaman-backend/internal/session"
)

// Pipeline failure classes. Both abort the submission; they are kept apart
// so user-facing messaging can tell "your result was not saved" from "your
// result was saved but the invitation status update failed".
var (
	ErrResultPersist    = errors.New("persist result")
	ErrInvitationUpdate = errors.New("update invitation status")
)

// ResultStore persists assessment results.
type ResultStore interface {
	Create(ctx context.Context, res *model.AssessmentResult) (uuid.UUID, error)
}

// InvitationStore transitions invitations on completion.
type InvitationStore interface {
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SubmissionService is the submission pipeline: score, build the immutable
// result record, persist it, complete the invitation. Any step failing
// fails the whole submission; the session engine reverts and the user may
// retry. The pipeline itself never retries.
type SubmissionService struct {
	results     ResultStore
	invitations InvitationStore
	log         zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(results ResultStore, invitations InvitationStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		results:     results,
		invitations: invitations,
		log:         log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit implements session.Submitter.
func (s *SubmissionService) Submit(ctx context.Context, o *session.Outcome) (uuid.UUID, error) {
	score := scoring.Score(o.Questions, o.Answers)

	res := &model.AssessmentResult{
		AssessmentID:     o.AssessmentID,
		Role:             o.Role,
		QuestionsTotal:   len(o.Questions),
		Score:            score,
		TimeSpentSeconds: o.TimeSpentSeconds,
		Answers:          orderedAnswers(o.Questions, o.Answers),
		Metadata: model.ResultMetadata{
			CheatingAttempts: o.CheatingAttempts,
			ForcedSubmission: o.ForcedSubmission,
		},
	}
	if o.Invitation != nil {
		id := o.Invitation.ID
		res.InvitationID = &id
	}

	resultID, err := s.results.Create(ctx, res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrResultPersist, err)
	}

	if o.Invitation != nil {
		if err := s.invitations.MarkCompleted(ctx, o.Invitation.ID, time.Now()); err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrInvitationUpdate, err)
		}
	}

	s.log.Info().
		Str("result_id", resultID.String()).
		Str("assessment_id", o.AssessmentID.String()).
		Int("score", score).
		Int("cheating_attempts", o.CheatingAttempts).
		Bool("forced", o.ForcedSubmission).
		Msg("Submission persisted")

	return resultID, nil
}

// orderedAnswers snapshots the answer map as {questionId, answer} pairs in
// question presentation order. Unanswered questions are omitted.
func orderedAnswers(questions []model.Question, answers map[uuid.UUID]string) []model.AnswerRecord {
	out := make([]model.AnswerRecord, 0, len(answers))
	for i := range questions {
		if ans, ok := answers[questions[i].ID]; ok {
			out = append(out, model.AnswerRecord{QuestionID: questions[i].ID, Answer: ans})
		}
	}
	return out
}
