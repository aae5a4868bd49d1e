package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType enumerates supported question kinds. Only MULTIPLE_CHOICE
// questions carry options and are eligible for auto-grading; CODE and
// OPEN_TEXT answers are recorded for later human/AI review.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeCode           QuestionType = "CODE"
	QuestionTypeOpenText       QuestionType = "OPEN_TEXT"
)

// Question represents a single assessment question.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	AssessmentID  uuid.UUID       `json:"assessment_id"`
	Text          string          `json:"text"`
	Type          QuestionType    `json:"type"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer *string         `json:"correct_answer,omitempty"`
	OrderNum      int             `json:"order_num"`
}

// Gradeable reports whether the question counts toward the numeric score.
func (q *Question) Gradeable() bool {
	return q.CorrectAnswer != nil
}

// QuestionForCandidate is a question without the correct answer, sent to candidates.
type QuestionForCandidate struct {
	ID       uuid.UUID       `json:"id"`
	Text     string          `json:"text"`
	Type     QuestionType    `json:"type"`
	Options  json.RawMessage `json:"options,omitempty"`
	OrderNum int             `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to an assessment.
type AddQuestionRequest struct {
	Text          string          `json:"text" binding:"required,min=1,max=4000"`
	Type          string          `json:"type" binding:"required,oneof=MULTIPLE_CHOICE CODE OPEN_TEXT"`
	Options       json.RawMessage `json:"options" binding:"omitempty"`
	CorrectAnswer *string         `json:"correct_answer" binding:"omitempty,max=2000"`
	OrderNum      int             `json:"order_num" binding:"min=0"`
}
