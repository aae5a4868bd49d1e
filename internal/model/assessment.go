package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the possible states of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "DRAFT"
	AssessmentStatusPublished AssessmentStatus = "PUBLISHED"
	AssessmentStatusArchived  AssessmentStatus = "ARCHIVED"
)

// Assessment represents a timed assessment owned by a company.
type Assessment struct {
	ID               uuid.UUID        `json:"id"`
	CompanyID        int              `json:"company_id"`
	Title            string           `json:"title"`
	Role             string           `json:"role"`
	Description      string           `json:"description"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	Status           AssessmentStatus `json:"status"`
	QuestionCount    int              `json:"question_count"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Definition is a fully loaded assessment: the row plus its ordered questions.
// It is immutable once handed to a running session.
type Definition struct {
	Assessment
	Questions []Question `json:"questions"`
}

// CreateAssessmentRequest is the payload for creating an assessment with questions.
type CreateAssessmentRequest struct {
	Title            string               `json:"title" binding:"required,min=3,max=255"`
	Role             string               `json:"role" binding:"required,min=2,max=120"`
	Description      string               `json:"description" binding:"omitempty,max=4000"`
	TimeLimitSeconds int                  `json:"time_limit_seconds" binding:"omitempty,min=0,max=14400"`
	Questions        []AddQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// AssessmentPayload is the Redis-cached payload sent to candidates (no correct answers).
type AssessmentPayload struct {
	AssessmentID     uuid.UUID              `json:"assessment_id"`
	Title            string                 `json:"title"`
	Role             string                 `json:"role"`
	Description      string                 `json:"description"`
	TimeLimitSeconds int                    `json:"time_limit_seconds"`
	Questions        []QuestionForCandidate `json:"questions"`
}
