package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus enumerates invitation states.
type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusCompleted InvitationStatus = "completed"
	InvitationStatusExpired   InvitationStatus = "expired"
)

// Invitation links a candidate email to an assessment with an expiry and a
// possession token for the unauthenticated landing flow. Its status moves to
// completed as a side effect of a successful submission.
type Invitation struct {
	ID             uuid.UUID        `json:"id"`
	AssessmentID   uuid.UUID        `json:"assessment_id"`
	CandidateEmail string           `json:"candidate_email"`
	AccessToken    string           `json:"access_token,omitempty"`
	Status         InvitationStatus `json:"status"`
	Metadata       json.RawMessage  `json:"metadata"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// CreateInvitationRequest is the payload for a company inviting a candidate.
type CreateInvitationRequest struct {
	CandidateEmail string          `json:"candidate_email" binding:"required,email"`
	ExpiresInHours int             `json:"expires_in_hours" binding:"omitempty,min=1,max=720"`
	Metadata       json.RawMessage `json:"metadata" binding:"omitempty"`
}

// InvitationListItem is an invitation joined with display fields from its assessment.
type InvitationListItem struct {
	Invitation
	AssessmentTitle string `json:"assessment_title"`
	AssessmentRole  string `json:"assessment_role"`
}
