package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/repository"
)

// ErrResultNotFound means the result does not exist or the caller cannot see it.
var ErrResultNotFound = errors.New("result not found")

// ResultService exposes a company's view of persisted results.
type ResultService struct {
	resultRepo     *repository.ResultRepository
	assessmentRepo *repository.AssessmentRepository
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, assessmentRepo *repository.AssessmentRepository) *ResultService {
	return &ResultService{resultRepo: resultRepo, assessmentRepo: assessmentRepo}
}

// ListByAssessment returns all results of a company's assessment, newest first.
func (s *ResultService) ListByAssessment(ctx context.Context, companyID int, assessmentID uuid.UUID) ([]model.AssessmentResult, error) {
	if err := s.checkOwner(ctx, companyID, assessmentID); err != nil {
		return nil, err
	}
	return s.resultRepo.ListByAssessment(ctx, assessmentID)
}

// GetByID retrieves one result, scoped to the owning company.
func (s *ResultService) GetByID(ctx context.Context, companyID int, resultID uuid.UUID) (*model.AssessmentResult, error) {
	res, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	if err := s.checkOwner(ctx, companyID, res.AssessmentID); err != nil {
		return nil, ErrResultNotFound
	}
	return res, nil
}

func (s *ResultService) checkOwner(ctx context.Context, companyID int, assessmentID uuid.UUID) error {
	assessment, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssessmentNotFound
		}
		return err
	}
	if assessment.CompanyID != companyID {
		return ErrNotAssessmentOwner
	}
	return nil
}
