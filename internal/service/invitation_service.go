package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/repository"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotPending = errors.New("invitation is not pending")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrInvalidAccessToken   = errors.New("invalid access token")
)

const defaultInvitationTTL = 7 * 24 * time.Hour

// InvitationService handles the invitation directory: companies create
// invitations, candidates list theirs, and the unauthenticated landing
// flow resolves an invitation by id plus possession token.
type InvitationService struct {
	invitationRepo *repository.InvitationRepository
	assessmentRepo *repository.AssessmentRepository
	log            zerolog.Logger
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	invitationRepo *repository.InvitationRepository,
	assessmentRepo *repository.AssessmentRepository,
	log zerolog.Logger,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		assessmentRepo: assessmentRepo,
		log:            log.With().Str("component", "invitation_service").Logger(),
	}
}

// Create issues a pending invitation for a published assessment owned by the
// company. The access token is generated server-side and returned once.
func (s *InvitationService) Create(ctx context.Context, companyID int, assessmentID uuid.UUID, req *model.CreateInvitationRequest) (*model.Invitation, error) {
	assessment, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if assessment.CompanyID != companyID {
		return nil, ErrNotAssessmentOwner
	}
	if assessment.Status != model.AssessmentStatusPublished {
		return nil, ErrAssessmentNotPublished
	}

	ttl := defaultInvitationTTL
	if req.ExpiresInHours > 0 {
		ttl = time.Duration(req.ExpiresInHours) * time.Hour
	}

	token, err := generateAccessToken()
	if err != nil {
		return nil, err
	}

	metadata := req.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	inv := &model.Invitation{
		AssessmentID:   assessmentID,
		CandidateEmail: req.CandidateEmail,
		AccessToken:    token,
		Status:         model.InvitationStatusPending,
		Metadata:       metadata,
		ExpiresAt:      time.Now().Add(ttl),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invitation_id", inv.ID.String()).
		Str("assessment_id", assessmentID.String()).
		Str("candidate_email", req.CandidateEmail).
		Msg("Invitation created")

	return inv, nil
}

// ListForCandidate returns a candidate's invitations. Overdue pending
// invitations are swept to expired first so the listing never shows a
// pending invitation that can no longer be launched.
func (s *InvitationService) ListForCandidate(ctx context.Context, email string) ([]model.InvitationListItem, error) {
	if n, err := s.invitationRepo.ExpireOverdue(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to sweep overdue invitations")
	} else if n > 0 {
		s.log.Info().Int64("count", n).Msg("Swept overdue invitations")
	}

	items, err := s.invitationRepo.ListByCandidateEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Access tokens stay server-side; the candidate listing is informational.
	for i := range items {
		items[i].AccessToken = ""
	}
	return items, nil
}

// ListByAssessment returns all invitations of a company's assessment.
func (s *InvitationService) ListByAssessment(ctx context.Context, companyID int, assessmentID uuid.UUID) ([]model.Invitation, error) {
	assessment, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if assessment.CompanyID != companyID {
		return nil, ErrNotAssessmentOwner
	}
	return s.invitationRepo.ListByAssessment(ctx, assessmentID)
}

// GetForCandidate retrieves an invitation owned by the candidate's email.
func (s *InvitationService) GetForCandidate(ctx context.Context, id uuid.UUID, email string) (*model.Invitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	if inv.CandidateEmail != email {
		return nil, ErrInvitationNotFound
	}
	return inv, nil
}

// ResolveByToken retrieves an invitation for the unauthenticated landing
// flow. The caller must present both the invitation id and its possession
// token; a mismatch is indistinguishable from a missing invitation.
func (s *InvitationService) ResolveByToken(ctx context.Context, id uuid.UUID, token string) (*model.Invitation, error) {
	if token == "" {
		return nil, ErrInvalidAccessToken
	}
	inv, err := s.invitationRepo.GetByIDAndToken(ctx, id, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAccessToken
		}
		return nil, err
	}
	return inv, nil
}

// CheckLaunchable verifies an invitation can still start a session.
func (s *InvitationService) CheckLaunchable(inv *model.Invitation) error {
	if inv.Status == model.InvitationStatusExpired || time.Now().After(inv.ExpiresAt) {
		return ErrInvitationExpired
	}
	if inv.Status != model.InvitationStatusPending {
		return ErrInvitationNotPending
	}
	return nil
}

func generateAccessToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
