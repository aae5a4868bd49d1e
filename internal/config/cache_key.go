package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session (single device).
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:candidate:%d", candidateID)
}

// AssessmentPayloadKey returns the cache key for a published assessment's
// candidate-safe payload (questions without correct answers).
func (r *CacheKeyStruct) AssessmentPayloadKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:payload", assessmentID)
}

// InvitationAnswersKey returns the hash key holding autosaved answers for an invitation.
func (r *CacheKeyStruct) InvitationAnswersKey(invitationID string) string {
	return fmt.Sprintf("invitation:%s:answers", invitationID)
}

// InvitationSessionStartKey returns the cache key for an invitation's session start time.
func (r *CacheKeyStruct) InvitationSessionStartKey(invitationID string) string {
	return fmt.Sprintf("invitation:%s:session_start", invitationID)
}

// AssessmentMonitorChannel returns the Redis PubSub channel for an assessment's live monitor.
func (r *CacheKeyStruct) AssessmentMonitorChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:monitor", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
