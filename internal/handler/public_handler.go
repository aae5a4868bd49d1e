package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/response"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
	"github.com/cybershaman666/jobshaman-backend/internal/validator"
)

// PublicHandler handles the unauthenticated invitation landing flow: a
// candidate arriving from an email link proves possession of the access
// token and exchanges it for a guest JWT scoped to that one invitation.
type PublicHandler struct {
	invitationService *service.InvitationService
	assessmentService *service.AssessmentService
	authService       *service.AuthService
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(
	invitationService *service.InvitationService,
	assessmentService *service.AssessmentService,
	authService *service.AuthService,
) *PublicHandler {
	return &PublicHandler{
		invitationService: invitationService,
		assessmentService: assessmentService,
		authService:       authService,
	}
}

// GetInvitation godoc
// GET /api/v1/public/invitations/:invitation_id?token=...
// Returns the invitation and assessment display fields for the landing page.
func (h *PublicHandler) GetInvitation(c *gin.Context) {
	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitationService.ResolveByToken(c.Request.Context(), invitationID, c.Query("token"))
	if err != nil {
		failPublic(c, err)
		return
	}
	inv.AccessToken = ""

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), inv.AssessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"invitation": inv,
		"assessment": gin.H{
			"id":                 assessment.ID,
			"title":              assessment.Title,
			"role":               assessment.Role,
			"description":        assessment.Description,
			"time_limit_seconds": assessment.TimeLimitSeconds,
			"question_count":     assessment.QuestionCount,
		},
	})
}

type exchangeRequest struct {
	Token string `json:"token" binding:"required,min=16"`
}

// ExchangeToken godoc
// POST /api/v1/public/invitations/:invitation_id/exchange
// Exchanges a valid access token for a short-lived guest JWT. Only pending,
// unexpired invitations are exchangeable.
func (h *PublicHandler) ExchangeToken(c *gin.Context) {
	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req exchangeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inv, err := h.invitationService.ResolveByToken(c.Request.Context(), invitationID, req.Token)
	if err != nil {
		failPublic(c, err)
		return
	}

	if err := h.invitationService.CheckLaunchable(inv); err != nil {
		failLaunch(c, err)
		return
	}

	token, err := h.authService.GenerateGuestToken(inv.ID, inv.CandidateEmail)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}

func failPublic(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidAccessToken) {
		response.Fail(c, http.StatusNotFound, response.ErrInvalidAccessToken)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
