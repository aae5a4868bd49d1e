package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cybershaman666/jobshaman-backend/internal/config"
	"github.com/cybershaman666/jobshaman-backend/internal/model"
	"github.com/cybershaman666/jobshaman-backend/internal/session"
)

// ErrSessionBusy means another connection currently drives this invitation's session.
var ErrSessionBusy = errors.New("session is already attached on another connection")

// MonitorEvent is published on the assessment's Redis channel for live
// company dashboards.
type MonitorEvent struct {
	Kind                 string    `json:"kind"` // started | answered | proctor | completed
	InvitationID         uuid.UUID `json:"invitation_id"`
	CandidateEmail       string    `json:"candidate_email,omitempty"`
	AnsweredCount        int       `json:"answered_count"`
	CheatingAttempts     int       `json:"cheating_attempts"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds"`
	At                   int64     `json:"at"`
}

// SessionService owns the live session engines, one per invitation. Engines
// are ephemeral: the durable truth is the Redis answer hash plus the session
// start timestamp, from which a reconnect rebuilds the engine.
type SessionService struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*session.Engine

	assessments *AssessmentService
	submitter   session.Submitter
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(assessments *AssessmentService, submitter session.Submitter, rdb *redis.Client, log zerolog.Logger) *SessionService {
	return &SessionService{
		engines:     make(map[uuid.UUID]*session.Engine),
		assessments: assessments,
		submitter:   submitter,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Attach builds (or resumes) the engine for an invitation and claims it for
// one connection. A second concurrent attach is rejected; the durable state
// lives in Redis, so a dropped connection just reattaches.
func (s *SessionService) Attach(ctx context.Context, inv *model.Invitation) (*session.Engine, error) {
	def, err := s.assessments.GetDefinition(ctx, inv.AssessmentID)
	if err != nil {
		return nil, err
	}

	answers, err := s.restoreAnswers(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	remaining, started, err := s.restoreRemaining(ctx, inv.ID, def.TimeLimitSeconds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.engines[inv.ID]; busy {
		return nil, ErrSessionBusy
	}

	eng := session.New(def, inv, s.submitter, s.log, session.WithProgress(answers, remaining))
	s.engines[inv.ID] = eng

	s.log.Info().
		Str("invitation_id", inv.ID.String()).
		Str("assessment_id", def.ID.String()).
		Bool("resumed", started).
		Int("restored_answers", len(answers)).
		Msg("Session attached")
	return eng, nil
}

// AttachPreview builds an unclaimed engine for a company previewing its own
// assessment. Nothing is autosaved and no invitation is touched; the result
// row is persisted without an invitation reference.
func (s *SessionService) AttachPreview(ctx context.Context, companyID int, assessmentID uuid.UUID) (*session.Engine, error) {
	def, err := s.assessments.GetDefinitionForOwner(ctx, companyID, assessmentID)
	if err != nil {
		return nil, err
	}
	return session.New(def, nil, s.submitter, s.log), nil
}

// MarkStarted anchors the session start timestamp in Redis exactly once, so
// the countdown survives reconnects. No-op for previews.
func (s *SessionService) MarkStarted(ctx context.Context, eng *session.Engine) {
	inv := eng.Invitation()
	if inv == nil {
		return
	}
	key := config.CacheKey.InvitationSessionStartKey(inv.ID.String())
	if err := s.rdb.SetNX(ctx, key, time.Now().Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("invitation_id", inv.ID.String()).Msg("Failed to anchor session start")
	}
	s.publish(ctx, eng, "started")
}

// Autosave records an answer in the engine, mirrors it to the Redis hash
// and queues it for PostgreSQL persistence.
func (s *SessionService) Autosave(ctx context.Context, eng *session.Engine, questionID uuid.UUID, answer string) error {
	if err := eng.Answer(questionID, answer); err != nil {
		return err
	}

	inv := eng.Invitation()
	if inv == nil {
		return nil
	}

	key := config.CacheKey.InvitationAnswersKey(inv.ID.String())
	if err := s.rdb.HSet(ctx, key, questionID.String(), answer).Err(); err != nil {
		return fmt.Errorf("autosave cache: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"invitation_id": inv.ID.String(),
		"question_id":   questionID.String(),
		"answer":        answer,
	})
	if err != nil {
		s.log.Error().Err(err).Str("invitation_id", inv.ID.String()).Msg("Failed to marshal snapshot payload")
	} else {
		s.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, payload)
	}

	s.publish(ctx, eng, "answered")
	return nil
}

// RecordProctor counts a focus-loss signal and queues it for persistence.
// Signals arriving outside IN_PROGRESS are dropped by the engine; dropped
// signals are not queued.
func (s *SessionService) RecordProctor(ctx context.Context, eng *session.Engine, kind session.SignalKind, detail string) (int, bool) {
	count, counted := eng.RecordSignal(kind)
	if !counted {
		return count, false
	}

	inv := eng.Invitation()
	if inv != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"invitation_id": inv.ID.String(),
			"assessment_id": eng.Definition().ID.String(),
			"kind":          string(kind),
			"detail":        detail,
			"timestamp":     time.Now().Unix(),
		})
		if err != nil {
			s.log.Error().Err(err).Str("invitation_id", inv.ID.String()).Msg("Failed to marshal proctor payload")
		} else {
			s.rdb.RPush(ctx, config.WorkerKey.PersistProctorQueue, payload)
		}
	}

	s.publish(ctx, eng, "proctor")
	return count, true
}

// Finish cleans up the Redis session state after a completed submission and
// notifies the monitor channel.
func (s *SessionService) Finish(ctx context.Context, eng *session.Engine) {
	s.publish(ctx, eng, "completed")

	inv := eng.Invitation()
	if inv == nil {
		return
	}
	s.rdb.Del(ctx,
		config.CacheKey.InvitationAnswersKey(inv.ID.String()),
		config.CacheKey.InvitationSessionStartKey(inv.ID.String()),
	)
}

// Detach releases the invitation's engine claim and stops its countdown.
func (s *SessionService) Detach(eng *session.Engine) {
	eng.Teardown()

	inv := eng.Invitation()
	if inv == nil {
		return
	}
	s.mu.Lock()
	if s.engines[inv.ID] == eng {
		delete(s.engines, inv.ID)
	}
	s.mu.Unlock()
}

// State returns the session snapshot for an invitation: the live engine's
// when one is attached, otherwise a detached view rebuilt from Redis.
func (s *SessionService) State(ctx context.Context, inv *model.Invitation) (*session.State, error) {
	s.mu.Lock()
	eng := s.engines[inv.ID]
	s.mu.Unlock()

	if eng != nil {
		st := eng.Snapshot()
		return &st, nil
	}

	def, err := s.assessments.GetDefinition(ctx, inv.AssessmentID)
	if err != nil {
		return nil, err
	}
	answers, err := s.restoreAnswers(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	remaining, started, err := s.restoreRemaining(ctx, inv.ID, def.TimeLimitSeconds)
	if err != nil {
		return nil, err
	}

	phase := session.PhaseNotStarted
	if started {
		phase = session.PhaseInProgress
	}
	if inv.Status == model.InvitationStatusCompleted {
		phase = session.PhaseCompleted
	}
	if remaining < 0 {
		remaining = def.TimeLimitSeconds
	}
	return &session.State{
		Phase:                phase,
		TimeRemainingSeconds: remaining,
		QuestionsTotal:       len(def.Questions),
		AnsweredCount:        len(answers),
	}, nil
}

// restoreAnswers loads the autosaved answer hash for an invitation.
func (s *SessionService) restoreAnswers(ctx context.Context, invitationID uuid.UUID) (map[uuid.UUID]string, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.InvitationAnswersKey(invitationID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("restore answers: %w", err)
	}

	answers := make(map[uuid.UUID]string, len(raw))
	for k, v := range raw {
		qid, err := uuid.Parse(k)
		if err != nil {
			s.log.Warn().Str("key", k).Msg("Dropping malformed autosave entry")
			continue
		}
		answers[qid] = v
	}
	return answers, nil
}

// restoreRemaining computes the authoritative remaining seconds from the
// anchored start timestamp. Returns remaining = -1 when the session has
// never started (the engine then uses the full time limit).
func (s *SessionService) restoreRemaining(ctx context.Context, invitationID uuid.UUID, limitSeconds int) (int, bool, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.InvitationSessionStartKey(invitationID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return -1, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("restore session start: %w", err)
	}

	startUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid session start in cache: %w", err)
	}

	elapsed := int(time.Since(time.Unix(startUnix, 0)).Seconds())
	remaining := limitSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

// publish pushes a monitor event on the assessment's channel. Best effort;
// dashboard updates are never worth failing a session action.
func (s *SessionService) publish(ctx context.Context, eng *session.Engine, kind string) {
	st := eng.Snapshot()
	ev := MonitorEvent{
		Kind:                 kind,
		AnsweredCount:        st.AnsweredCount,
		CheatingAttempts:     st.CheatingAttempts,
		TimeRemainingSeconds: st.TimeRemainingSeconds,
		At:                   time.Now().Unix(),
	}
	if inv := eng.Invitation(); inv != nil {
		ev.InvitationID = inv.ID
		ev.CandidateEmail = inv.CandidateEmail
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal monitor event")
		return
	}
	channel := config.CacheKey.AssessmentMonitorChannel(eng.Definition().ID.String())
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Monitor publish failed")
	}
}
