package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// InvitationRepository handles invitation data access.
type InvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

const invitationColumns = `id, assessment_id, candidate_email, access_token, status, metadata, expires_at, created_at, completed_at`

func scanInvitation(row interface{ Scan(...any) error }) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := row.Scan(&inv.ID, &inv.AssessmentID, &inv.CandidateEmail, &inv.AccessToken,
		&inv.Status, &inv.Metadata, &inv.ExpiresAt, &inv.CreatedAt, &inv.CompletedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Create inserts a new pending invitation.
func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO invitations (assessment_id, candidate_email, access_token, status, metadata, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		inv.AssessmentID, inv.CandidateEmail, inv.AccessToken, inv.Status, inv.Metadata, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
}

// GetByID retrieves an invitation by id.
func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id))
}

// GetByIDAndToken retrieves an invitation only when the possession token
// matches. Used by the unauthenticated landing flow.
func (r *InvitationRepository) GetByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*model.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1 AND access_token = $2`, id, token))
}

// ListByCandidateEmail retrieves a candidate's invitations joined with
// assessment display fields, newest first.
func (r *InvitationRepository) ListByCandidateEmail(ctx context.Context, email string) ([]model.InvitationListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.assessment_id, i.candidate_email, i.status, i.metadata, i.expires_at,
		        i.created_at, i.completed_at, a.title, a.role
		 FROM invitations i
		 JOIN assessments a ON a.id = i.assessment_id
		 WHERE i.candidate_email = $1
		 ORDER BY i.created_at DESC`, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.InvitationListItem
	for rows.Next() {
		var it model.InvitationListItem
		if err := rows.Scan(&it.ID, &it.AssessmentID, &it.CandidateEmail, &it.Status, &it.Metadata,
			&it.ExpiresAt, &it.CreatedAt, &it.CompletedAt, &it.AssessmentTitle, &it.AssessmentRole); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByAssessment retrieves all invitations of an assessment (company view).
func (r *InvitationRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+`
		 FROM invitations
		 WHERE assessment_id = $1
		 ORDER BY created_at DESC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inv)
	}
	return items, rows.Err()
}

// MarkCompleted transitions an invitation to completed with a timestamp.
func (r *InvitationRepository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE invitations SET status = $1, completed_at = $2 WHERE id = $3`,
		model.InvitationStatusCompleted, at, id)
	return err
}

// ExpireOverdue sweeps pending invitations past their expiry to expired.
// Returns the number of rows transitioned.
func (r *InvitationRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET status = $1 WHERE status = $2 AND expires_at < NOW()`,
		model.InvitationStatusExpired, model.InvitationStatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
