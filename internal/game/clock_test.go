package game

import (
	"testing"
	"time"
)

func ts(t time.Time) *time.Time { return &t }

func TestSessionRemaining(t *testing.T) {
	now := time.Now()
	started := now.Add(-100 * time.Second)

	if got := SessionRemaining(StatusActive, ts(started), 900, now); got != 800 {
		t.Fatalf("active: got %d want 800", got)
	}
	if got := SessionRemaining(StatusPaused, ts(started), 900, now); got != 900 {
		t.Fatalf("paused clock should not run: got %d", got)
	}
	if got := SessionRemaining(StatusActive, nil, 900, now); got != 900 {
		t.Fatalf("no start stamp: got %d", got)
	}
	if got := SessionRemaining(StatusActive, ts(now.Add(-2*time.Hour)), 900, now); got != 0 {
		t.Fatalf("elapsed session should clamp to 0: got %d", got)
	}
}

func TestRoundRemaining(t *testing.T) {
	now := time.Now()
	if got := RoundRemaining(StatusActive, ts(now.Add(-30*time.Second)), 300, now); got != 270 {
		t.Fatalf("got %d want 270", got)
	}
	if got := RoundRemaining(StatusLobby, nil, 300, now); got != 300 {
		t.Fatalf("lobby should show the full round: got %d", got)
	}
}

func TestEvaluateBoundary(t *testing.T) {
	now := time.Now()
	base := MarketState{
		Status:          StatusActive,
		StartedAt:       ts(now.Add(-100 * time.Second)),
		SessionDuration: 900,
		RoundStartedAt:  ts(now.Add(-100 * time.Second)),
		RoundDuration:   300,
		CurrentRound:    1,
	}

	if got := EvaluateBoundary(base, DefaultRounds, now); got != BoundaryNone {
		t.Fatalf("mid-round: got %v", got)
	}

	m := base
	m.RoundStartedAt = ts(now.Add(-300 * time.Second))
	if got := EvaluateBoundary(m, DefaultRounds, now); got != BoundaryPause {
		t.Fatalf("round 1 boundary should pause: got %v", got)
	}

	m.CurrentRound = DefaultRounds
	if got := EvaluateBoundary(m, DefaultRounds, now); got != BoundaryEnd {
		t.Fatalf("final round boundary should end: got %v", got)
	}

	// Session timeout coinciding with a round pause still ends the game.
	m = base
	m.RoundStartedAt = ts(now.Add(-300 * time.Second))
	m.StartedAt = ts(now.Add(-900 * time.Second))
	if got := EvaluateBoundary(m, DefaultRounds, now); got != BoundaryEnd {
		t.Fatalf("session timeout should win over pause: got %v", got)
	}

	m = base
	m.Status = StatusPaused
	m.RoundStartedAt = ts(now.Add(-900 * time.Second))
	if got := EvaluateBoundary(m, DefaultRounds, now); got != BoundaryNone {
		t.Fatalf("inactive session never transitions: got %v", got)
	}
}
