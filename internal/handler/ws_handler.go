package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/middleware"
	"github.com/cybershaman666/jobshaman-backend/internal/service"
	"github.com/cybershaman666/jobshaman-backend/internal/session"
	ws "github.com/cybershaman666/jobshaman-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// safeConn serializes writes; the event forwarder and the action loop both
// write to the socket.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *safeConn) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *safeConn) writeError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws.WriteError(s.conn, msg)
}

// WSHandler handles the WebSocket assessment session stream.
type WSHandler struct {
	sessionService    *service.SessionService
	invitationService *service.InvitationService
	authService       *service.AuthService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.SessionService,
	invitationService *service.InvitationService,
	authService *service.AuthService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		sessionService:    sessionService,
		invitationService: invitationService,
		authService:       authService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/invitations/:invitation_id/stream?token=...
// Upgrades to WebSocket and drives one assessment session end to end.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	invitationID, err := uuid.Parse(c.Param("invitation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invitation ID"})
		return
	}

	inv, err := h.invitationService.GetForCandidate(c.Request.Context(), invitationID, claims.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
		return
	}

	// Guest tokens are scoped to exactly one invitation.
	if claims.TokenType == service.TokenTypeGuest && claims.InvitationID != invitationID.String() {
		c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for this invitation"})
		return
	}

	if err := h.invitationService.CheckLaunchable(inv); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	eng, err := h.sessionService.Attach(c.Request.Context(), inv)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	defer h.sessionService.Detach(eng)

	wsLog := h.log.With().
		Str("invitation_id", invitationID.String()).
		Str("assessment_id", eng.Definition().ID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	h.stream(conn, eng, wsLog)
}

// PreviewStream godoc
// WS /ws/v1/session/assessments/:assessment_id/preview?token=...
// Lets a company run through its own assessment. No invitation is involved;
// the submission persists a result without an invitation reference.
func (h *WSHandler) PreviewStream(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}
	claims, err := h.authService.ValidateToken(tokenStr)
	if err != nil || claims.TokenType != service.TokenTypeCompany {
		c.JSON(http.StatusForbidden, gin.H{"error": "company token required"})
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	eng, err := h.sessionService.AttachPreview(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	defer h.sessionService.Detach(eng)

	wsLog := h.log.With().
		Str("assessment_id", assessmentID.String()).
		Int("company_id", claims.UserID).
		Logger()
	wsLog.Info().Msg("Preview session connected")

	h.stream(conn, eng, wsLog)
}

// stream runs the event forwarder plus the action loop until the connection drops.
func (h *WSHandler) stream(conn *websocket.Conn, eng *session.Engine, wsLog zerolog.Logger) {
	sc := &safeConn{conn: conn}

	done := make(chan struct{})
	defer close(done)
	go h.forwardEvents(sc, eng, done, wsLog)

	sc.write(ws.StateResponse{Event: ws.EventState, State: eng.Snapshot()})

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionStart:
			h.handleStart(sc, eng, &msg, wsLog)
		case ws.ActionAnswer:
			h.handleAnswer(sc, eng, &msg)
		case ws.ActionNext:
			h.handleNext(sc, eng)
		case ws.ActionProctor:
			h.handleProctor(sc, eng, &msg)
		case ws.ActionRetry:
			h.handleRetry(sc, eng)
		case ws.ActionPing:
			sc.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			sc.writeError("unknown action: " + string(msg.Action))
		}
	}
}

// forwardEvents pushes asynchronous engine notifications to the client.
// Forced submissions originate in the timer goroutine, so completion and
// failure can arrive without a preceding client action.
func (h *WSHandler) forwardEvents(sc *safeConn, eng *session.Engine, done <-chan struct{}, wsLog zerolog.Logger) {
	for {
		select {
		case <-done:
			return
		case ev := <-eng.Events():
			switch ev.Kind {
			case session.EventFocusLost:
				sc.write(ws.WarningResponse{Event: ws.EventWarning, CheatingAttempts: ev.CheatingAttempts})
			case session.EventSubmitFailed:
				st := eng.Snapshot()
				errMsg := "submission failed"
				if ev.Err != nil {
					errMsg = ev.Err.Error()
				}
				sc.write(ws.SubmitFailedResponse{
					Event:          ws.EventSubmitFailed,
					Forced:         ev.Forced,
					RetryAvailable: st.RetryAvailable,
					Error:          errMsg,
				})
				sc.write(ws.StateResponse{Event: ws.EventState, State: st})
			case session.EventCompleted:
				h.sessionService.Finish(context.Background(), eng)
				sc.write(ws.CompletedResponse{
					Event:    ws.EventCompleted,
					ResultID: ev.ResultID.String(),
					Forced:   ev.Forced,
				})
				sc.write(ws.StateResponse{Event: ws.EventState, State: eng.Snapshot()})
				wsLog.Info().Str("result_id", ev.ResultID.String()).Bool("forced", ev.Forced).Msg("Session completed")
			}
		}
	}
}

func (h *WSHandler) handleStart(sc *safeConn, eng *session.Engine, msg *ws.RequestPayload, wsLog zerolog.Logger) {
	if msg.FullscreenDenied {
		// Fullscreen refusal is logged, never blocking.
		wsLog.Warn().Msg("Client reported fullscreen denied")
	}

	if err := eng.Start(); err != nil {
		sc.writeError(err.Error())
		return
	}
	h.sessionService.MarkStarted(context.Background(), eng)
	sc.write(ws.StateResponse{Event: ws.EventState, State: eng.Snapshot()})
}

func (h *WSHandler) handleAnswer(sc *safeConn, eng *session.Engine, msg *ws.RequestPayload) {
	if msg.QID == "" {
		sc.writeError("q_id is required")
		return
	}
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		sc.writeError("invalid q_id format")
		return
	}

	if err := h.sessionService.Autosave(context.Background(), eng, questionID, msg.Answer); err != nil {
		sc.writeError(err.Error())
		return
	}
	sc.write(ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
}

func (h *WSHandler) handleNext(sc *safeConn, eng *session.Engine) {
	if err := eng.Next(context.Background()); err != nil {
		sc.writeError(err.Error())
		return
	}
	sc.write(ws.StateResponse{Event: ws.EventState, State: eng.Snapshot()})
}

func (h *WSHandler) handleProctor(sc *safeConn, eng *session.Engine, msg *ws.RequestPayload) {
	kind := session.SignalKind(msg.Signal)
	if kind != session.SignalHidden && kind != session.SignalBlur {
		sc.writeError("invalid proctor signal")
		return
	}
	// The counted signal comes back asynchronously as a warning event.
	h.sessionService.RecordProctor(context.Background(), eng, kind, msg.Detail)
}

func (h *WSHandler) handleRetry(sc *safeConn, eng *session.Engine) {
	if err := eng.Retry(context.Background()); err != nil {
		sc.writeError(err.Error())
		return
	}
}
