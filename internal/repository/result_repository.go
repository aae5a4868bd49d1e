package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// ResultRepository handles assessment result data access. Results are
// append-only: there is no update path.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result and returns its generated id.
func (r *ResultRepository) Create(ctx context.Context, res *model.AssessmentResult) (uuid.UUID, error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal answers: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO assessment_results
		   (assessment_id, invitation_id, role, questions_total, score, time_spent_seconds,
		    answers, cheating_attempts, forced_submission)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		res.AssessmentID, res.InvitationID, res.Role, res.QuestionsTotal, res.Score,
		res.TimeSpentSeconds, answers, res.Metadata.CheatingAttempts, res.Metadata.ForcedSubmission,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	res.ID = id
	return id, nil
}

// GetByID retrieves a result by id.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentResult, error) {
	res := &model.AssessmentResult{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, assessment_id, invitation_id, role, questions_total, score, time_spent_seconds,
		        answers, cheating_attempts, forced_submission, created_at
		 FROM assessment_results
		 WHERE id = $1`, id,
	).Scan(&res.ID, &res.AssessmentID, &res.InvitationID, &res.Role, &res.QuestionsTotal,
		&res.Score, &res.TimeSpentSeconds, &answers,
		&res.Metadata.CheatingAttempts, &res.Metadata.ForcedSubmission, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return res, nil
}

// ListByAssessment retrieves all results of an assessment, newest first.
func (r *ResultRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.AssessmentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, invitation_id, role, questions_total, score, time_spent_seconds,
		        answers, cheating_attempts, forced_submission, created_at
		 FROM assessment_results
		 WHERE assessment_id = $1
		 ORDER BY created_at DESC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.AssessmentResult
	for rows.Next() {
		var res model.AssessmentResult
		var answers []byte
		if err := rows.Scan(&res.ID, &res.AssessmentID, &res.InvitationID, &res.Role, &res.QuestionsTotal,
			&res.Score, &res.TimeSpentSeconds, &answers,
			&res.Metadata.CheatingAttempts, &res.Metadata.ForcedSubmission, &res.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &res.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
