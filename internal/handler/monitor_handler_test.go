package handler

import "testing"

func TestRefreshGateIdleByDefault(t *testing.T) {
	g := &refreshGate{}
	if g.consume() {
		t.Fatal("expected no refresh without activity")
	}
}

func TestRefreshGateConsumesActivityOnce(t *testing.T) {
	g := &refreshGate{}
	g.mark()
	if !g.consume() {
		t.Fatal("expected refresh after activity")
	}
	// Quiet sessions must not keep triggering DB refreshes.
	if g.consume() {
		t.Fatal("expected gate rearmed after consume")
	}
}

func TestRefreshGateCoalescesBurst(t *testing.T) {
	g := &refreshGate{}
	g.mark()
	g.mark()
	g.mark()
	if !g.consume() {
		t.Fatal("expected one refresh for a burst of events")
	}
	if g.consume() {
		t.Fatal("burst must collapse into a single refresh")
	}
}
