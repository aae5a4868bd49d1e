package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/middleware"
	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/response"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
	"github.com/cybershaman666/jobshaman-backend/internal/validator"
)

// CompanyHandler handles the company portal: assessment management,
// invitations and results.
type CompanyHandler struct {
	assessmentService *service.AssessmentService
	invitationService *service.InvitationService
	resultService     *service.ResultService
	cfg               companyConfig
}

type companyConfig struct {
	DefaultTimeLimit int
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(
	assessmentService *service.AssessmentService,
	invitationService *service.InvitationService,
	resultService *service.ResultService,
	defaultTimeLimit int,
) *CompanyHandler {
	return &CompanyHandler{
		assessmentService: assessmentService,
		invitationService: invitationService,
		resultService:     resultService,
		cfg:               companyConfig{DefaultTimeLimit: defaultTimeLimit},
	}
}

// CreateAssessment godoc
// POST /api/v1/company/assessments
// Creates a DRAFT assessment with its questions.
func (h *CompanyHandler) CreateAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment := &model.Assessment{
		CompanyID:        claims.UserID,
		Title:            req.Title,
		Role:             req.Role,
		Description:      req.Description,
		TimeLimitSeconds: req.TimeLimitSeconds,
	}
	if err := h.assessmentService.Create(c.Request.Context(), assessment, req.Questions, h.cfg.DefaultTimeLimit); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": assessment})
}

// ListAssessments godoc
// GET /api/v1/company/assessments?page=1&per_page=10
func (h *CompanyHandler) ListAssessments(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	assessments, total, err := h.assessmentService.ListByCompany(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": assessments}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// GetAssessment godoc
// GET /api/v1/company/assessments/:assessment_id
// Returns the full definition including correct answers; owner only.
func (h *CompanyHandler) GetAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assessmentID, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	def, err := h.assessmentService.GetDefinitionForOwner(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		failCompany(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": def})
}

// PublishAssessment godoc
// POST /api/v1/company/assessments/:assessment_id/publish
// Moves a DRAFT assessment to PUBLISHED and warms the payload cache.
func (h *CompanyHandler) PublishAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assessmentID, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	if err := h.assessmentService.Publish(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		failCompany(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "published"})
}

// CreateInvitation godoc
// POST /api/v1/company/assessments/:assessment_id/invitations
// Invites a candidate; the response carries the access token exactly once.
func (h *CompanyHandler) CreateInvitation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assessmentID, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	var req model.CreateInvitationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inv, err := h.invitationService.Create(c.Request.Context(), claims.UserID, assessmentID, &req)
	if err != nil {
		failCompany(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"invitation": inv})
}

// ListInvitations godoc
// GET /api/v1/company/assessments/:assessment_id/invitations
func (h *CompanyHandler) ListInvitations(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assessmentID, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	items, err := h.invitationService.ListByAssessment(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		failCompany(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitations": items})
}

// ListResults godoc
// GET /api/v1/company/assessments/:assessment_id/results
func (h *CompanyHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assessmentID, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	results, err := h.resultService.ListByAssessment(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		failCompany(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// GetResult godoc
// GET /api/v1/company/results/:result_id
func (h *CompanyHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)

	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.resultService.GetByID(c.Request.Context(), claims.UserID, resultID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

func parseAssessmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failCompany maps company-side service errors to API error codes.
func failCompany(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotAssessmentOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAssessmentNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
	case errors.Is(err, service.ErrAssessmentNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
