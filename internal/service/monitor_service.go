package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cybershaman666/jobshaman-backend/internal/repository"
)

// MonitorService orchestrates live assessment monitoring business logic.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo}
}

// ProgressSnapshot holds the answered count and proctor event count for
// every invitation with recorded activity.
type ProgressSnapshot struct {
	AnsweredCounts     map[uuid.UUID]int64 `json:"answered_counts"`
	ProctorCounts      map[uuid.UUID]int64 `json:"proctor_counts"`
	TotalProctorEvents int64               `json:"total_proctor_events"`
}

// GetProgress returns answered counts and proctor counts. The two fetches
// are independent and run in parallel to minimize latency.
func (s *MonitorService) GetProgress(ctx context.Context, assessmentID uuid.UUID) (*ProgressSnapshot, error) {
	snapshot := &ProgressSnapshot{
		AnsweredCounts: make(map[uuid.UUID]int64),
		ProctorCounts:  make(map[uuid.UUID]int64),
	}

	var (
		answeredCounts map[uuid.UUID]int64
		proctorCounts  map[uuid.UUID]int64
		answeredErr    error
		proctorErr     error
		wg             sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		answeredCounts, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, assessmentID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		proctorCounts, proctorErr = s.monitorRepo.GetProctorCounts(ctx, assessmentID)
	}()

	wg.Wait()

	// Answered counts are critical; proctor counts are best-effort.
	if answeredErr != nil {
		return nil, answeredErr
	}
	if answeredCounts != nil {
		snapshot.AnsweredCounts = answeredCounts
	}
	if proctorErr == nil && proctorCounts != nil {
		snapshot.ProctorCounts = proctorCounts
		for _, count := range proctorCounts {
			snapshot.TotalProctorEvents += count
		}
	}

	return snapshot, nil
}
