package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusLobby  Status = "lobby"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
)

type Trend string

const (
	TrendBull  Trend = "bull"
	TrendBear  Trend = "bear"
	TrendCrash Trend = "crash"
	TrendSpike Trend = "spike"
)

func ParseTrend(s string) (Trend, bool) {
	switch Trend(s) {
	case TrendBull, TrendBear, TrendCrash, TrendSpike:
		return Trend(s), true
	}
	return "", false
}

type PricePoint struct {
	Time  int             `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// MarketState is the singleton market/session aggregate, row id 1.
type MarketState struct {
	CurrentPrice        decimal.Decimal `json:"current_price"`
	PriceHistory        []PricePoint    `json:"price_history"`
	Trend               Trend           `json:"market_trend"`
	CrashTicksRemaining int             `json:"crash_ticks_remaining"`
	Status              Status          `json:"game_status"`
	StartedAt           *time.Time      `json:"game_started_at"`
	SessionDuration     int             `json:"game_duration_seconds"`
	CurrentRound        int             `json:"current_round"`
	RoundDuration       int             `json:"round_duration_seconds"`
	RoundStartedAt      *time.Time      `json:"round_started_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Account is one player's ledger row.
type Account struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Cash        decimal.Decimal `json:"cash"`
	Shares      int64           `json:"shares_owned"`
	NetWorth    decimal.Decimal `json:"net_worth"`
	Frozen      bool            `json:"is_frozen"`
	FrozenUntil *time.Time      `json:"frozen_until"`
	CreatedAt   time.Time       `json:"created_at"`
}

type NewsItem struct {
	ID               string          `json:"id"`
	Headline         string          `json:"headline"`
	Effect           NewsEffect      `json:"effect"`
	ImpactMultiplier decimal.Decimal `json:"impact_multiplier"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// GameStateView is the countdown snapshot served to presentation.
type GameStateView struct {
	Status             Status `json:"status"`
	TimeRemaining      int    `json:"time_remaining"`
	CurrentRound       int    `json:"current_round"`
	RoundTimeRemaining int    `json:"round_time_remaining"`
	SessionDuration    int    `json:"game_duration_seconds"`
	RoundDuration      int    `json:"round_duration_seconds"`
}

type TradeResult struct {
	Cash     decimal.Decimal `json:"cash"`
	Shares   int64           `json:"shares_owned"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Price    decimal.Decimal `json:"price"`
}
