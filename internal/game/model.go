package game

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLen = 20

	// DefaultRounds is the number of trading rounds in one session.
	DefaultRounds = 3

	// DefaultHistoryWindow bounds the persisted price history.
	DefaultHistoryWindow = 50
)

var (
	ErrInvalidName        = errors.New("team name must be 1-20 characters")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTargetNotFound     = errors.New("sabotage target not found")
	ErrAccountFrozen      = errors.New("account is frozen")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrSelfSabotage       = errors.New("cannot sabotage yourself")
	ErrInvalidLifecycle   = errors.New("invalid session lifecycle transition")
	ErrTxConflict         = errors.New("transaction conflict, retry")
)

// Params are the fixed game parameters. They come from configuration, not
// from business logic; DefaultParams matches the deployed game.
type Params struct {
	StartingCash    decimal.Decimal
	StartingPrice   decimal.Decimal
	SabotageCost    decimal.Decimal
	FreezeFor       time.Duration
	SessionDuration time.Duration
	RoundDuration   time.Duration
	Rounds          int
	HistoryWindow   int
	StimulusAmount  decimal.Decimal
}

func DefaultParams() Params {
	return Params{
		StartingCash:    decimal.NewFromInt(10_000),
		StartingPrice:   decimal.NewFromInt(100),
		SabotageCost:    decimal.NewFromInt(5_000),
		FreezeFor:       30 * time.Second,
		SessionDuration: 15 * time.Minute,
		RoundDuration:   5 * time.Minute,
		Rounds:          DefaultRounds,
		HistoryWindow:   DefaultHistoryWindow,
		StimulusAmount:  decimal.NewFromInt(500),
	}
}

// ValidateTeamName enforces the join-form constraints: non-empty after
// trimming, at most MaxNameLen characters.
func ValidateTeamName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" || len([]rune(clean)) > MaxNameLen {
		return ErrInvalidName
	}
	return nil
}
