package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is one {questionId, answer} pair of a result snapshot, in
// question presentation order.
type AnswerRecord struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// ResultMetadata carries proctoring details of the session that produced a result.
type ResultMetadata struct {
	CheatingAttempts int  `json:"cheating_attempts"`
	ForcedSubmission bool `json:"forced_submission"`
}

// AssessmentResult is the immutable record created once per completed session.
// A later asynchronous evaluation step may attach an evaluation keyed by the
// result id; this record itself is never mutated.
type AssessmentResult struct {
	ID               uuid.UUID      `json:"id"`
	AssessmentID     uuid.UUID      `json:"assessment_id"`
	InvitationID     *uuid.UUID     `json:"invitation_id,omitempty"`
	Role             string         `json:"role"`
	QuestionsTotal   int            `json:"questions_total"`
	Score            int            `json:"score"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	Answers          []AnswerRecord `json:"answers"`
	Metadata         ResultMetadata `json:"metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}
