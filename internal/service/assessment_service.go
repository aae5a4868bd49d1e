package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/repository"
)

// Domain errors.
var (
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrNotAssessmentOwner     = errors.New("not the owner of this assessment")
	ErrNoQuestions            = errors.New("assessment has no questions")
	ErrAssessmentNotDraft     = errors.New("assessment status is not DRAFT")
	ErrAssessmentNotPublished = errors.New("assessment status is not PUBLISHED")
)

// AssessmentService handles assessment business logic and Redis payload caching.
type AssessmentService struct {
	repo *repository.AssessmentRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(repo *repository.AssessmentRepository, rdb *redis.Client, log zerolog.Logger) *AssessmentService {
	return &AssessmentService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "assessment_service").Logger(),
	}
}

// GetByID retrieves an assessment row.
func (s *AssessmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByCompany retrieves a company's assessments with pagination bounds applied.
func (s *AssessmentService) ListByCompany(ctx context.Context, companyID, page, perPage int) ([]model.Assessment, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.repo.ListByCompany(ctx, companyID, perPage, (page-1)*perPage)
}

// Create inserts a new DRAFT assessment with its questions. A missing time
// limit falls back to the configured default.
func (s *AssessmentService) Create(ctx context.Context, a *model.Assessment, questions []model.AddQuestionRequest, defaultTimeLimit int) error {
	a.Status = model.AssessmentStatusDraft
	if a.TimeLimitSeconds == 0 {
		a.TimeLimitSeconds = defaultTimeLimit
	}
	return s.repo.Create(ctx, a, questions)
}

// Publish moves an assessment to PUBLISHED and caches the candidate-safe
// payload in Redis so session launches never read correct answers into a
// candidate-facing path.
func (s *AssessmentService) Publish(ctx context.Context, id uuid.UUID, companyID int) error {
	def, err := s.repo.GetDefinition(ctx, id)
	if err != nil {
		return fmt.Errorf("get definition: %w", err)
	}

	if def.CompanyID != companyID {
		return ErrNotAssessmentOwner
	}
	if def.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}
	if len(def.Questions) == 0 {
		return ErrNoQuestions
	}

	if err := s.warmPayloadCache(ctx, def); err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, id, model.AssessmentStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("assessment_id", id.String()).Int("questions", len(def.Questions)).Msg("Assessment published")
	return nil
}

// GetDefinition loads the full definition (correct answers included) for a
// session engine. Only published assessments can be launched.
func (s *AssessmentService) GetDefinition(ctx context.Context, id uuid.UUID) (*model.Definition, error) {
	def, err := s.repo.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.Status != model.AssessmentStatusPublished {
		return nil, ErrAssessmentNotPublished
	}
	if len(def.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return def, nil
}

// GetDefinitionForOwner loads a definition for the owning company regardless
// of publish status. Used by the preview session path.
func (s *AssessmentService) GetDefinitionForOwner(ctx context.Context, companyID int, id uuid.UUID) (*model.Definition, error) {
	def, err := s.repo.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.CompanyID != companyID {
		return nil, ErrNotAssessmentOwner
	}
	if len(def.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return def, nil
}

// GetPayload returns the candidate-safe payload, preferring the Redis cache
// and self-healing it from PostgreSQL on a miss.
func (s *AssessmentService) GetPayload(ctx context.Context, id uuid.UUID) (*model.AssessmentPayload, error) {
	key := config.CacheKey.AssessmentPayloadKey(id.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		payload := &model.AssessmentPayload{}
		if err := json.Unmarshal([]byte(raw), payload); err == nil {
			return payload, nil
		}
		// Corrupt cache entry falls through to the rebuild path.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload cache: %w", err)
	}

	def, err := s.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.warmPayloadCache(ctx, def); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", id.String()).Msg("Payload cache rewarm failed")
	}
	return buildPayload(def), nil
}

// warmPayloadCache serializes the candidate-safe payload into Redis.
func (s *AssessmentService) warmPayloadCache(ctx context.Context, def *model.Definition) error {
	payload := buildPayload(def)
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AssessmentPayloadKey(def.ID.String()), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}
	return nil
}

// PrewarmAllCaches loads every published assessment's payload into Redis.
// Called before accepting traffic to avoid lazy-load races under a
// thundering herd of session launches.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.repo.ListPublishedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}

	for _, id := range ids {
		def, err := s.repo.GetDefinition(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("assessment_id", id.String()).Msg("Prewarm skip")
			continue
		}
		if err := s.warmPayloadCache(ctx, def); err != nil {
			return err
		}
	}

	s.log.Info().Int("count", len(ids)).Msg("Assessment payload caches warmed")
	return nil
}

func buildPayload(def *model.Definition) *model.AssessmentPayload {
	payload := &model.AssessmentPayload{
		AssessmentID:     def.ID,
		Title:            def.Title,
		Role:             def.Role,
		Description:      def.Description,
		TimeLimitSeconds: def.TimeLimitSeconds,
		Questions:        make([]model.QuestionForCandidate, 0, len(def.Questions)),
	}
	for _, q := range def.Questions {
		payload.Questions = append(payload.Questions, model.QuestionForCandidate{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		})
	}
	return payload
}
