package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/middleware"
	"github.com/cybershaman666/jobshaman-backend/internal/response"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
)

// CandidateHandler handles the candidate portal: the invitation directory
// and assessment launch data.
type CandidateHandler struct {
	invitationService *service.InvitationService
	assessmentService *service.AssessmentService
	sessionService    *service.SessionService
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(
	invitationService *service.InvitationService,
	assessmentService *service.AssessmentService,
	sessionService *service.SessionService,
) *CandidateHandler {
	return &CandidateHandler{
		invitationService: invitationService,
		assessmentService: assessmentService,
		sessionService:    sessionService,
	}
}

// ListInvitations godoc
// GET /api/v1/candidate/invitations
// Returns the candidate's invitations with assessment display fields.
func (h *CandidateHandler) ListInvitations(c *gin.Context) {
	claims := middleware.GetClaims(c)

	items, err := h.invitationService.ListForCandidate(c.Request.Context(), claims.Email)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitations": items})
}

// GetInvitation godoc
// GET /api/v1/candidate/invitations/:invitation_id
func (h *CandidateHandler) GetInvitation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitationService.GetForCandidate(c.Request.Context(), invitationID, claims.Email)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	inv.AccessToken = ""

	response.Success(c, http.StatusOK, gin.H{"invitation": inv})
}

// GetAssessmentPayload godoc
// GET /api/v1/candidate/invitations/:invitation_id/assessment
// Returns the candidate-safe assessment payload (no correct answers) for a
// launchable invitation.
func (h *CandidateHandler) GetAssessmentPayload(c *gin.Context) {
	claims := middleware.GetClaims(c)

	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitationService.GetForCandidate(c.Request.Context(), invitationID, claims.Email)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if err := h.invitationService.CheckLaunchable(inv); err != nil {
		failLaunch(c, err)
		return
	}

	payload, err := h.assessmentService.GetPayload(c.Request.Context(), inv.AssessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": payload})
}

// GetSessionState godoc
// GET /api/v1/candidate/invitations/:invitation_id/state
// Returns the session snapshot: live when a connection is attached,
// otherwise rebuilt from the autosaved progress.
func (h *CandidateHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)

	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitationService.GetForCandidate(c.Request.Context(), invitationID, claims.Email)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), inv)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// failLaunch maps invitation launch errors to API error codes.
func failLaunch(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvitationExpired):
		response.Fail(c, http.StatusGone, response.ErrInvitationExpired)
	case errors.Is(err, service.ErrInvitationNotPending):
		response.Fail(c, http.StatusConflict, response.ErrInvitationNotPending)
	case errors.Is(err, service.ErrAssessmentNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentNotPublished)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
