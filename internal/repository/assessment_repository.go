package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// AssessmentRepository handles assessment and question data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// GetByID retrieves an assessment row by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.company_id, a.title, a.role, a.description, a.time_limit_seconds, a.status,
		        (SELECT COUNT(*) FROM questions q WHERE q.assessment_id = a.id),
		        a.created_at, a.updated_at
		 FROM assessments a
		 WHERE a.id = $1`, id,
	).Scan(&a.ID, &a.CompanyID, &a.Title, &a.Role, &a.Description, &a.TimeLimitSeconds,
		&a.Status, &a.QuestionCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetDefinition retrieves an assessment together with its ordered questions,
// correct answers included. Never hand this to a candidate-facing response.
func (r *AssessmentRepository) GetDefinition(ctx context.Context, id uuid.UUID) (*model.Definition, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, question_text, question_type, options, correct_answer, order_num
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY order_num ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	def := &model.Definition{Assessment: *a}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Type, &q.Options, &q.CorrectAnswer, &q.OrderNum); err != nil {
			return nil, err
		}
		def.Questions = append(def.Questions, q)
	}
	return def, rows.Err()
}

// Create inserts a new assessment with its questions.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment, questions []model.AddQuestionRequest) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO assessments (company_id, title, role, description, time_limit_seconds, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		a.CompanyID, a.Title, a.Role, a.Description, a.TimeLimitSeconds, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	for i, q := range questions {
		orderNum := q.OrderNum
		if orderNum == 0 {
			orderNum = i
		}
		_, err := r.pool.Exec(ctx,
			`INSERT INTO questions (assessment_id, question_text, question_type, options, correct_answer, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, q.Text, q.Type, q.Options, q.CorrectAnswer, orderNum,
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	a.QuestionCount = len(questions)
	return nil
}

// ListByCompany retrieves assessments owned by a company, newest first.
func (r *AssessmentRepository) ListByCompany(ctx context.Context, companyID, limit, offset int) ([]model.Assessment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE company_id = $1`, companyID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.company_id, a.title, a.role, a.description, a.time_limit_seconds, a.status,
		        (SELECT COUNT(*) FROM questions q WHERE q.assessment_id = a.id),
		        a.created_at, a.updated_at
		 FROM assessments a
		 WHERE a.company_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT $2 OFFSET $3`, companyID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Title, &a.Role, &a.Description, &a.TimeLimitSeconds,
			&a.Status, &a.QuestionCount, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// ListPublishedIDs returns the ids of all published assessments.
func (r *AssessmentRepository) ListPublishedIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM assessments WHERE status = $1`, model.AssessmentStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatus changes an assessment's lifecycle status.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}
