package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/handler"
	"github.com/cybershaman666/jobshaman-backend/internal/middleware"
	"github.com/cybershaman666/jobshaman-backend/internal/response"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Candidate *handler.CandidateHandler
	Company   *handler.CompanyHandler
	Public    *handler.PublicHandler
	Monitor   *handler.MonitorHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for unauthenticated routes (30 requests per minute per IP).
	publicLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 0. Public Group (Possession Token, Rate Limited) ──────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(publicLimiter.Middleware())
	{
		publicAPI.GET("/invitations/:invitation_id", handlers.Public.GetInvitation)
		publicAPI.POST("/invitations/:invitation_id/exchange", handlers.Public.ExchangeToken)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(publicLimiter.Middleware())
	{
		auth.POST("/candidate/register", handlers.Auth.RegisterCandidate)
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/company/login", handlers.Auth.CompanyLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
		auth.GET("/company/me", middleware.RequireCompanyJWT(authService), handlers.Auth.GetCompanyProfile)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		candidateAPI.GET("/invitations", handlers.Candidate.ListInvitations)
		candidateAPI.GET("/invitations/:invitation_id", handlers.Candidate.GetInvitation)
		candidateAPI.GET("/invitations/:invitation_id/assessment", handlers.Candidate.GetAssessmentPayload)
		candidateAPI.GET("/invitations/:invitation_id/state", handlers.Candidate.GetSessionState)
	}

	// ─── 3. WebSocket Group (Candidate/Guest WS Auth) ──────────────────
	wsAPI := router.Group("/ws/v1")
	{
		wsAPI.GET("/session/invitations/:invitation_id/stream",
			middleware.RequireSessionWSAuth(authService),
			handlers.WS.SessionStream,
		)
		// Preview authenticates its company token inside the handler.
		wsAPI.GET("/session/assessments/:assessment_id/preview", handlers.WS.PreviewStream)
	}

	// ─── 4. Company Group (JWT) ────────────────────────────────────────
	companyAPI := router.Group("/api/v1/company")
	companyAPI.Use(middleware.RequireCompanyJWT(authService))
	{
		companyAPI.POST("/assessments", handlers.Company.CreateAssessment)
		companyAPI.GET("/assessments", handlers.Company.ListAssessments)
		companyAPI.GET("/assessments/:assessment_id", handlers.Company.GetAssessment)
		companyAPI.POST("/assessments/:assessment_id/publish", handlers.Company.PublishAssessment)

		companyAPI.POST("/assessments/:assessment_id/invitations", handlers.Company.CreateInvitation)
		companyAPI.GET("/assessments/:assessment_id/invitations", handlers.Company.ListInvitations)

		companyAPI.GET("/assessments/:assessment_id/results", handlers.Company.ListResults)
		companyAPI.GET("/results/:result_id", handlers.Company.GetResult)

		companyAPI.GET("/assessments/:assessment_id/monitor", handlers.Monitor.MonitorAssessmentSSE)
	}

	return router
}
