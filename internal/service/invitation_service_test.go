package service

import (
	"errors"
	"testing"
	"time"

	"github.com/cybershaman666/jobshaman-backend/internal/model"
)

func TestCheckLaunchablePending(t *testing.T) {
	s := &InvitationService{}
	inv := &model.Invitation{
		Status:    model.InvitationStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CheckLaunchable(inv); err != nil {
		t.Fatalf("expected launchable, got %v", err)
	}
}

func TestCheckLaunchableExpiredStatus(t *testing.T) {
	s := &InvitationService{}
	inv := &model.Invitation{
		Status:    model.InvitationStatusExpired,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CheckLaunchable(inv); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}
}

func TestCheckLaunchableOverdueDeadline(t *testing.T) {
	// Still marked pending in the row but the deadline has passed; the
	// launch check must not depend on the sweep having run.
	s := &InvitationService{}
	inv := &model.Invitation{
		Status:    model.InvitationStatusPending,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := s.CheckLaunchable(inv); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}
}

func TestCheckLaunchableCompleted(t *testing.T) {
	s := &InvitationService{}
	inv := &model.Invitation{
		Status:    model.InvitationStatusCompleted,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CheckLaunchable(inv); !errors.Is(err, ErrInvitationNotPending) {
		t.Fatalf("expected ErrInvitationNotPending, got %v", err)
	}
}

func TestGenerateAccessToken(t *testing.T) {
	a, err := generateAccessToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := generateAccessToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 48 {
		t.Errorf("expected 48 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("tokens must be unique")
	}
}
