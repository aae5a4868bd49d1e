package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

// CompanyRepository handles company account data access.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// GetByEmail retrieves a company by email.
func (r *CompanyRepository) GetByEmail(ctx context.Context, email string) (*model.Company, error) {
	c := &model.Company{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM companies WHERE email = $1`, email,
	).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a company by id.
func (r *CompanyRepository) GetByID(ctx context.Context, id int) (*model.Company, error) {
	c := &model.Company{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new company account.
func (r *CompanyRepository) Create(ctx context.Context, c *model.Company) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO companies (name, email, password_hash) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.Name, c.Email, c.PasswordHash,
	).Scan(&c.ID, &c.CreatedAt)
}
