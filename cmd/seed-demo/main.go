package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/database"
	"github.com/cybershaman666/jobshaman-backend/internal/logger"
	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/repository"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
)

// Seeds a demo company, one published assessment with three questions and a
// batch of pending invitations. Intended for local development only.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	companyRepo := repository.NewCompanyRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)

	assessmentService := service.NewAssessmentService(assessmentRepo, rdb, log)
	invitationService := service.NewInvitationService(invitationRepo, assessmentRepo, log)

	fmt.Println("=== Seeding Demo Data ===")

	// ─── Company ───────────────────────────────────────────────────────
	var company model.Company
	err = pool.QueryRow(ctx,
		"SELECT id, name, email FROM companies WHERE email = $1", "demo@acme.test",
	).Scan(&company.ID, &company.Name, &company.Email)

	if err != nil {
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Msg("Failed to check existing company")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		company = model.Company{
			Name:         "Acme Corp",
			Email:        "demo@acme.test",
			PasswordHash: string(hash),
		}
		if err := companyRepo.Create(ctx, &company); err != nil {
			log.Fatal().Err(err).Msg("Failed to create company")
		}
		fmt.Printf("Created company with ID: %d\n", company.ID)
	} else {
		fmt.Printf("Found existing company with ID: %d\n", company.ID)
	}

	// ─── Assessment ────────────────────────────────────────────────────
	correctAnswer := "B"
	assessment := &model.Assessment{
		CompanyID:   company.ID,
		Title:       "Backend Engineer Screening",
		Role:        "Backend Engineer",
		Description: "Timed screening covering HTTP fundamentals and a short coding exercise.",
	}
	questions := []model.AddQuestionRequest{
		{
			Text:          "Which HTTP status code indicates that a resource was created?",
			Type:          string(model.QuestionTypeMultipleChoice),
			Options:       []byte(`["200 OK", "201 Created", "204 No Content", "301 Moved Permanently"]`),
			CorrectAnswer: &correctAnswer,
			OrderNum:      1,
		},
		{
			Text:     "Write a function that returns the n-th Fibonacci number.",
			Type:     string(model.QuestionTypeCode),
			OrderNum: 2,
		},
		{
			Text:     "Describe a production incident you handled and what you changed afterwards.",
			Type:     string(model.QuestionTypeOpenText),
			OrderNum: 3,
		},
	}
	if err := assessmentService.Create(ctx, assessment, questions, int(cfg.DefaultTimeLimit.Seconds())); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assessment")
	}
	fmt.Printf("Created assessment %s\n", assessment.ID)

	if err := assessmentService.Publish(ctx, assessment.ID, company.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assessment")
	}
	fmt.Println("Assessment published")

	// ─── Invitations ───────────────────────────────────────────────────
	emails := []string{
		"ada@example.test", "grace@example.test", "linus@example.test",
		"barbara@example.test", "dennis@example.test",
	}

	successCount := 0
	for _, email := range emails {
		inv, err := invitationService.Create(ctx, company.ID, assessment.ID, &model.CreateInvitationRequest{
			CandidateEmail: email,
			ExpiresInHours: 72,
		})
		if err != nil {
			fmt.Printf("Error inviting %s: %v\n", email, err)
			continue
		}
		successCount++
		fmt.Printf("Invited %s (invitation %s, token %s)\n", email, inv.ID, inv.AccessToken)
	}

	fmt.Printf("\nSeed completed! Assessment %s with %d invitations.\n", assessment.ID, successCount)
}
