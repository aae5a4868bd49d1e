package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/middleware"
	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/response"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live assessment progress to company dashboards
// over SSE: an initial snapshot, Redis pub/sub passthrough for session
// events, and periodic database refreshes.
type MonitorHandler struct {
	rdb               *redis.Client
	assessmentService *service.AssessmentService
	invitationService *service.InvitationService
	monitorService    *service.MonitorService
	log               zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	assessmentService *service.AssessmentService,
	invitationService *service.InvitationService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:               rdb,
		assessmentService: assessmentService,
		invitationService: invitationService,
		monitorService:    monitorService,
		log:               log.With().Str("component", "monitor_handler").Logger(),
	}
}

// refreshGate tracks session activity between refresh ticks. consume reports
// whether anything happened since the last call and rearms the gate, so DB
// refreshes stop as soon as the monitored sessions go quiet.
type refreshGate struct {
	active bool
}

func (g *refreshGate) mark() {
	g.active = true
}

func (g *refreshGate) consume() bool {
	active := g.active
	g.active = false
	return active
}

// MonitorAssessmentSSE godoc
// GET /api/v1/company/assessments/:assessment_id/monitor
func (h *MonitorHandler) MonitorAssessmentSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if assessment.CompanyID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendInitialSnapshot(c, reqCtx, assessmentID, assessment)

	channelName := config.CacheKey.AssessmentMonitorChannel(assessmentID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Coalesce pub/sub activity into at most one DB refresh per tick; an
	// idle assessment stops polling once the last event has been flushed.
	gate := &refreshGate{}

	h.log.Info().Str("assessment_id", assessmentID.String()).Msg("Company attached to live monitor SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("assessment_id", assessmentID.String()).Msg("Company disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

			gate.mark()

		case <-refreshTicker.C:
			if !gate.consume() {
				continue
			}
			h.sendRefresh(c, reqCtx, assessmentID, assessment.QuestionCount)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendInitialSnapshot gathers data and writes the first SSE event.
func (h *MonitorHandler) sendInitialSnapshot(
	c *gin.Context,
	ctx context.Context,
	assessmentID uuid.UUID,
	assessment *model.Assessment,
) {
	invitations, _ := h.invitationService.ListByAssessment(ctx, assessment.CompanyID, assessmentID)

	totalInvited := len(invitations)
	totalCompleted := 0
	totalExpired := 0

	candidateSnapshot := make([]map[string]interface{}, 0, len(invitations))
	for _, inv := range invitations {
		switch inv.Status {
		case model.InvitationStatusCompleted:
			totalCompleted++
		case model.InvitationStatusExpired:
			totalExpired++
		}

		candidateSnapshot = append(candidateSnapshot, map[string]interface{}{
			"invitation_id":   inv.ID.String(),
			"candidate_email": inv.CandidateEmail,
			"status":          inv.Status,
			"expires_at":      inv.ExpiresAt,
			"completed_at":    inv.CompletedAt,
			"answered_count":  int64(0),
			"proctor_count":   int64(0),
			"total_questions": assessment.QuestionCount,
		})
	}

	// Fetch counts with a timeout so a slow query doesn't block the connection
	var totalProctorEvents int64
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if progress, err := h.monitorService.GetProgress(fetchCtx, assessmentID); err == nil {
		totalProctorEvents = progress.TotalProctorEvents
		for i, s := range candidateSnapshot {
			id, err := uuid.Parse(s["invitation_id"].(string))
			if err != nil {
				continue
			}
			if count, found := progress.AnsweredCounts[id]; found {
				candidateSnapshot[i]["answered_count"] = count
			}
			if count, found := progress.ProctorCounts[id]; found {
				candidateSnapshot[i]["proctor_count"] = count
			}
		}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"assessment": map[string]interface{}{
				"id":                 assessmentID.String(),
				"title":              assessment.Title,
				"role":               assessment.Role,
				"time_limit_seconds": assessment.TimeLimitSeconds,
				"total_questions":    assessment.QuestionCount,
			},
			"stats": map[string]interface{}{
				"total_invited":        totalInvited,
				"total_completed":      totalCompleted,
				"total_expired":        totalExpired,
				"total_proctor_events": totalProctorEvents,
			},
			"candidates": candidateSnapshot,
		},
	})
	c.Writer.Flush()
}

// sendRefresh polls DB+Redis for current progress and sends a compact refresh event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, assessmentID uuid.UUID, totalQuestions int) {
	// Scoped timeout prevents a slow query from stalling the SSE loop
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	progress, err := h.monitorService.GetProgress(ctx, assessmentID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch candidate progress for refresh")
		return
	}

	// Single-pass merge: iterate answered counts, decorate with proctor counts
	progressData := make([]map[string]interface{}, 0, len(progress.AnsweredCounts)+len(progress.ProctorCounts))

	for id, answered := range progress.AnsweredCounts {
		progressData = append(progressData, map[string]interface{}{
			"invitation_id":  id.String(),
			"answered_count": answered,
			"proctor_count":  progress.ProctorCounts[id], // 0 if missing
		})
		delete(progress.ProctorCounts, id) // mark as handled
	}

	// Remaining proctor-only invitations (signals without a single saved answer)
	for id, events := range progress.ProctorCounts {
		progressData = append(progressData, map[string]interface{}{
			"invitation_id":  id.String(),
			"answered_count": int64(0),
			"proctor_count":  events,
		})
	}

	c.SSEvent("message", map[string]interface{}{
		"type":                 "refresh",
		"total_questions":      totalQuestions,
		"total_proctor_events": progress.TotalProctorEvents,
		"candidates":           progressData,
	})
	c.Writer.Flush()
}
