package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/database"
	"github.com/cybershaman666/jobshaman-backend/internal/handler"
	"github.com/cybershaman666/jobshaman-backend/internal/logger"
	"github.com/cybershaman666/jobshaman-backend/internal/repository"
	"github.com/cybershaman666/jobshaman-backend/internal/router"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
	"github.com/cybershaman666/jobshaman-backend/internal/validator"
	"github.com/cybershaman666/jobshaman-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Assessment Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	assessmentService := service.NewAssessmentService(assessmentRepo, rdb, log)
	invitationService := service.NewInvitationService(invitationRepo, assessmentRepo, log)
	submissionService := service.NewSubmissionService(resultRepo, invitationRepo, log)
	sessionService := service.NewSessionService(assessmentService, submissionService, rdb, log)
	monitorService := service.NewMonitorService(monitorRepo)
	resultService := service.NewResultService(resultRepo, assessmentRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, candidateRepo, companyRepo),
		Candidate: handler.NewCandidateHandler(invitationService, assessmentService, sessionService),
		Company:   handler.NewCompanyHandler(assessmentService, invitationService, resultService, int(cfg.DefaultTimeLimit.Seconds())),
		Public:    handler.NewPublicHandler(invitationService, assessmentService, authService),
		Monitor:   handler.NewMonitorHandler(rdb, assessmentService, invitationService, monitorService, log),
		WS:        handler.NewWSHandler(sessionService, invitationService, authService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewSnapshotWorker(pool, rdb, log)
	proctorWorker := worker.NewProctorWorker(pool, rdb, log)

	go snapshotWorker.Start(workerCtx)
	go proctorWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published assessment payloads into Redis BEFORE accepting
	// traffic. This avoids race conditions from lazy loading under a
	// thundering herd of session launches.
	if err := assessmentService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
