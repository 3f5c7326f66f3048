package game

import "time"

// BoundaryAction is the lifecycle transition a tick must apply after
// checking the round and session clocks.
type BoundaryAction int

const (
	BoundaryNone BoundaryAction = iota
	// BoundaryPause ends the current round and waits for an explicit
	// round advance. The round number is not incremented here.
	BoundaryPause
	// BoundaryEnd finishes the session.
	BoundaryEnd
)

// SessionRemaining reports the whole-session countdown in seconds. Clocks
// only run while the session is active; otherwise the full configured
// duration is shown.
func SessionRemaining(status Status, startedAt *time.Time, durationSeconds int, now time.Time) int {
	if status != StatusActive || startedAt == nil {
		return durationSeconds
	}
	elapsed := int(now.Sub(*startedAt).Seconds())
	if remaining := durationSeconds - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// RoundRemaining reports the current round countdown in seconds, with the
// same frozen-while-inactive behavior as SessionRemaining.
func RoundRemaining(status Status, roundStartedAt *time.Time, roundSeconds int, now time.Time) int {
	if status != StatusActive || roundStartedAt == nil {
		return roundSeconds
	}
	elapsed := int(now.Sub(*roundStartedAt).Seconds())
	if remaining := roundSeconds - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// EvaluateBoundary decides the lifecycle transition for an active tick.
// A finished round pauses the session (rounds 1 and 2) or ends it (round 3).
// The whole-session timeout ends the session regardless of round, and wins
// over a pause when both fire on the same tick.
func EvaluateBoundary(m MarketState, rounds int, now time.Time) BoundaryAction {
	if m.Status != StatusActive {
		return BoundaryNone
	}

	action := BoundaryNone
	if m.RoundStartedAt != nil {
		elapsed := int(now.Sub(*m.RoundStartedAt).Seconds())
		if elapsed >= m.RoundDuration {
			if m.CurrentRound < rounds {
				action = BoundaryPause
			} else {
				action = BoundaryEnd
			}
		}
	}

	if m.StartedAt != nil {
		elapsed := int(now.Sub(*m.StartedAt).Seconds())
		if elapsed >= m.SessionDuration {
			action = BoundaryEnd
		}
	}
	return action
}
