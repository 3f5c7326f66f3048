package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Notification channels raised inside mutating transactions. Listeners treat
// a notification as "this table changed, re-fetch the snapshot", so duplicate
// or lost deliveries are harmless.
const (
	ChanMarket = "ecell_market"
	ChanTeams  = "ecell_teams"
	ChanNews   = "ecell_news"
)

// TickResult reports what a tick did, for logging and the event feed.
type TickResult struct {
	Ticked       bool            `json:"ticked"`
	Price        decimal.Decimal `json:"price"`
	Trend        Trend           `json:"market_trend"`
	CrashTicks   int             `json:"crash_ticks_remaining"`
	Status       Status          `json:"game_status"`
	CurrentRound int             `json:"current_round"`
}

type Service struct {
	db     *pgxpool.Pool
	log    *slog.Logger
	params Params

	mu   sync.Mutex
	rand *mathrand.Rand

	// tickMu guards against overlapping ticks: a contended tick is
	// skipped, never queued.
	tickMu sync.Mutex
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, params Params) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		log:    logger,
		params: params,
		rand:   mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) Params() Params { return s.params }

// EnsureMarketState creates the singleton market row on first boot.
func (s *Service) EnsureMarketState(ctx context.Context) error {
	history, err := json.Marshal([]PricePoint{{Time: 0, Price: s.params.StartingPrice}})
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO market_state
		    (id, current_price, price_history, market_trend, crash_ticks_remaining,
		     game_status, game_duration_seconds, current_round, round_duration_seconds, updated_at)
		VALUES (1, $1, $2, $3, 0, $4, $5, 1, $6, now())
		ON CONFLICT (id) DO NOTHING
	`, s.params.StartingPrice, history, TrendBull, StatusLobby,
		int(s.params.SessionDuration.Seconds()), int(s.params.RoundDuration.Seconds()))
	if err != nil {
		return fmt.Errorf("ensure market state: %w", err)
	}
	return nil
}

// Tick runs one price-update cycle: next price, net-worth recompute for every
// team, freeze expiry, then round/session boundary evaluation. It is a no-op
// unless the session is active. All effects commit in one transaction; on any
// failure the tick is abandoned and the next one re-reads fresh state.
func (s *Service) Tick(ctx context.Context) (TickResult, error) {
	if !s.tickMu.TryLock() {
		s.log.Warn("tick skipped, previous tick still in flight")
		return TickResult{}, nil
	}
	defer s.tickMu.Unlock()

	var out TickResult
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	m, err := lockMarketTx(ctx, tx)
	if err != nil {
		return out, err
	}
	if m.Status != StatusActive {
		return out, nil
	}

	now := time.Now()
	next := NextPrice(m.CurrentPrice, m.Trend, m.CrashTicksRemaining, s.nextFloat())
	crashTicks := m.CrashTicksRemaining
	if crashTicks > 0 {
		crashTicks--
	}
	trend := TrendAfterTick(m.Trend, crashTicks)

	tickIndex := 0
	if n := len(m.PriceHistory); n > 0 {
		tickIndex = m.PriceHistory[n-1].Time + 1
	}
	history := AppendHistory(m.PriceHistory, PricePoint{Time: tickIndex, Price: next}, s.params.HistoryWindow)
	rawHistory, err := json.Marshal(history)
	if err != nil {
		return out, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE market_state
		SET current_price = $1,
		    price_history = $2,
		    market_trend = $3,
		    crash_ticks_remaining = $4,
		    updated_at = now()
		WHERE id = 1
	`, next, rawHistory, trend, crashTicks); err != nil {
		return out, err
	}

	// Derived net worth follows the new price; each row update is atomic.
	if _, err := tx.Exec(ctx, `
		UPDATE teams
		SET net_worth = cash + shares_owned * $1
	`, next); err != nil {
		return out, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE teams
		SET is_frozen = false, frozen_until = NULL
		WHERE is_frozen AND frozen_until IS NOT NULL AND frozen_until <= $1
	`, now); err != nil {
		return out, err
	}

	status := m.Status
	switch EvaluateBoundary(m, s.params.Rounds, now) {
	case BoundaryPause:
		status = StatusPaused
	case BoundaryEnd:
		status = StatusEnded
	}
	if status != m.Status {
		if _, err := tx.Exec(ctx, `
			UPDATE market_state SET game_status = $1, updated_at = now() WHERE id = 1
		`, status); err != nil {
			return out, err
		}
		s.log.Info("session boundary", "from", m.Status, "to", status, "round", m.CurrentRound)
	}

	if err := notifyTx(ctx, tx, ChanMarket, "market_state"); err != nil {
		return out, err
	}
	if err := notifyTx(ctx, tx, ChanTeams, "teams"); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	return TickResult{
		Ticked:       true,
		Price:        next,
		Trend:        trend,
		CrashTicks:   crashTicks,
		Status:       status,
		CurrentRound: m.CurrentRound,
	}, nil
}

// TriggerCrash starts (or restarts) a forced crash of five ticks. Calling it
// again while one is running resets the counter instead of stacking.
func (s *Service) TriggerCrash(ctx context.Context) error {
	return s.updateMarket(ctx, `
		UPDATE market_state
		SET crash_ticks_remaining = 5, market_trend = $1, updated_at = now()
		WHERE id = 1
	`, TrendCrash)
}

// SetTrend overwrites the market trend. Last write wins; an active forced
// crash keeps overriding the pricing regime until its counter is spent.
func (s *Service) SetTrend(ctx context.Context, trend Trend) error {
	return s.updateMarket(ctx, `
		UPDATE market_state SET market_trend = $1, updated_at = now() WHERE id = 1
	`, trend)
}

// StartSession moves the session to active from lobby or paused, stamping
// fresh session and round clocks. A finished session must be reset first.
func (s *Service) StartSession(ctx context.Context) error {
	return s.lifecycle(ctx, func(m MarketState) (pgx.NamedArgs, error) {
		switch m.Status {
		case StatusActive:
			return nil, nil
		case StatusEnded:
			return nil, ErrInvalidLifecycle
		}
		now := time.Now()
		return pgx.NamedArgs{"status": StatusActive, "started": &now, "roundStarted": &now}, nil
	}, `
		UPDATE market_state
		SET game_status = @status, game_started_at = @started, round_started_at = @roundStarted, updated_at = now()
		WHERE id = 1
	`)
}

// PauseSession halts the clocks and the tick until resumed.
func (s *Service) PauseSession(ctx context.Context) error {
	return s.lifecycle(ctx, func(m MarketState) (pgx.NamedArgs, error) {
		if m.Status == StatusEnded {
			return nil, ErrInvalidLifecycle
		}
		return pgx.NamedArgs{"status": StatusPaused}, nil
	}, `
		UPDATE market_state SET game_status = @status, updated_at = now() WHERE id = 1
	`)
}

// AdvanceRound starts the next round from a round-boundary pause. It returns
// the new round number; the caller announces it.
func (s *Service) AdvanceRound(ctx context.Context) (int, error) {
	nextRound := 0
	err := s.lifecycle(ctx, func(m MarketState) (pgx.NamedArgs, error) {
		if m.Status != StatusPaused || m.CurrentRound >= s.params.Rounds {
			return nil, ErrInvalidLifecycle
		}
		nextRound = m.CurrentRound + 1
		now := time.Now()
		return pgx.NamedArgs{"round": nextRound, "roundStarted": &now}, nil
	}, `
		UPDATE market_state
		SET game_status = 'active', current_round = @round, round_started_at = @roundStarted, updated_at = now()
		WHERE id = 1
	`)
	if err != nil {
		return 0, err
	}
	return nextRound, nil
}

// ResetSession wipes every team and news row and restores the market
// singleton to its lobby defaults.
func (s *Service) ResetSession(ctx context.Context) error {
	history, err := json.Marshal([]PricePoint{{Time: 0, Price: s.params.StartingPrice}})
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE market_state
		SET current_price = $1,
		    price_history = $2,
		    market_trend = $3,
		    crash_ticks_remaining = 0,
		    game_status = $4,
		    game_started_at = NULL,
		    current_round = 1,
		    round_started_at = NULL,
		    updated_at = now()
		WHERE id = 1
	`, s.params.StartingPrice, history, TrendBull, StatusLobby); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM teams`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM news_events`); err != nil {
		return err
	}
	for _, ch := range []string{ChanMarket, ChanTeams, ChanNews} {
		if err := notifyTx(ctx, tx, ch, "reset"); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Join creates a team with the starting balances and no holdings.
func (s *Service) Join(ctx context.Context, name string) (Account, error) {
	var out Account
	if err := ValidateTeamName(name); err != nil {
		return out, err
	}
	name = strings.TrimSpace(name)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	out = Account{
		ID:       uuid.NewString(),
		Name:     name,
		Cash:     s.params.StartingCash,
		Shares:   0,
		NetWorth: s.params.StartingCash,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO teams (id, name, cash, shares_owned, net_worth, is_frozen)
		VALUES ($1, $2, $3, 0, $3, false)
		RETURNING created_at
	`, out.ID, out.Name, out.Cash).Scan(&out.CreatedAt); err != nil {
		return out, err
	}
	if err := notifyTx(ctx, tx, ChanTeams, "teams"); err != nil {
		return out, err
	}
	return out, tx.Commit(ctx)
}

// Buy purchases qty shares at the canonical current price.
func (s *Service) Buy(ctx context.Context, accountID string, qty int64) (TradeResult, error) {
	return s.trade(ctx, accountID, qty, ApplyBuy)
}

// Sell liquidates qty shares at the canonical current price.
func (s *Service) Sell(ctx context.Context, accountID string, qty int64) (TradeResult, error) {
	return s.trade(ctx, accountID, qty, ApplySell)
}

func (s *Service) trade(ctx context.Context, accountID string, qty int64, apply func(*Account, decimal.Decimal, int64) error) (TradeResult, error) {
	var out TradeResult
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var price decimal.Decimal
		if err := tx.QueryRow(ctx, `
			SELECT current_price FROM market_state WHERE id = 1
		`).Scan(&price); err != nil {
			return err
		}
		acct, err := lockAccountTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := apply(&acct, price, qty); err != nil {
			return err
		}
		if err := persistAccountTx(ctx, tx, acct); err != nil {
			return err
		}
		out = TradeResult{Cash: acct.Cash, Shares: acct.Shares, NetWorth: acct.NetWorth, Price: price}
		return notifyTx(ctx, tx, ChanTeams, "teams")
	})
	return out, err
}

// Sabotage charges the attacker and freezes the target. The target row is
// validated before the attacker is debited; a missing target costs nothing.
func (s *Service) Sabotage(ctx context.Context, attackerID, targetID string) error {
	if attackerID == targetID {
		return ErrSelfSabotage
	}
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		var price decimal.Decimal
		if err := tx.QueryRow(ctx, `
			SELECT current_price FROM market_state WHERE id = 1
		`).Scan(&price); err != nil {
			return err
		}

		// Lock the two rows in id order so crossing sabotages cannot
		// deadlock; rules still run attacker-first.
		first, second := attackerID, targetID
		if second < first {
			first, second = second, first
		}
		accounts := make(map[string]*Account, 2)
		for _, id := range []string{first, second} {
			acct, err := lockAccountTx(ctx, tx, id)
			if err != nil {
				if errors.Is(err, ErrAccountNotFound) && id == targetID {
					continue // target validated below, attacker stays unchanged
				}
				return err
			}
			a := acct
			accounts[id] = &a
		}

		attacker := accounts[attackerID]
		if attacker == nil {
			return ErrAccountNotFound
		}
		target := accounts[targetID]
		until := time.Now().Add(s.params.FreezeFor)
		if err := ApplySabotage(attacker, target, s.params.SabotageCost, price, until); err != nil {
			return err
		}
		if err := persistAccountTx(ctx, tx, *attacker); err != nil {
			return err
		}
		if err := persistAccountTx(ctx, tx, *target); err != nil {
			return err
		}
		return notifyTx(ctx, tx, ChanTeams, "teams")
	})
}

// GiveStimulus credits every team's cash and net worth, frozen or not.
func (s *Service) GiveStimulus(ctx context.Context, amount decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `
		UPDATE teams SET cash = cash + $1, net_worth = net_worth + $1
	`, amount); err != nil {
		return err
	}
	if err := notifyTx(ctx, tx, ChanTeams, "teams"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// BroadcastNews deactivates every prior item and inserts the new active one.
func (s *Service) BroadcastNews(ctx context.Context, headline string, effect NewsEffect) (NewsItem, error) {
	out := NewsItem{
		ID:               uuid.NewString(),
		Headline:         strings.TrimSpace(headline),
		Effect:           effect,
		ImpactMultiplier: ImpactMultiplier(effect),
		IsActive:         true,
	}
	if out.Headline == "" {
		return out, fmt.Errorf("headline is required")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE news_events SET is_active = false WHERE is_active
	`); err != nil {
		return out, err
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO news_events (id, headline, impact_multiplier, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING created_at
	`, out.ID, out.Headline, out.ImpactMultiplier).Scan(&out.CreatedAt); err != nil {
		return out, err
	}
	if err := notifyTx(ctx, tx, ChanNews, "news_events"); err != nil {
		return out, err
	}
	return out, tx.Commit(ctx)
}

// LatestNews returns the most recent active item, or nil when there is none.
func (s *Service) LatestNews(ctx context.Context) (*NewsItem, error) {
	var item NewsItem
	err := s.db.QueryRow(ctx, `
		SELECT id, headline, impact_multiplier, is_active, created_at
		FROM news_events
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&item.ID, &item.Headline, &item.ImpactMultiplier, &item.IsActive, &item.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Effect = EffectFromMultiplier(item.ImpactMultiplier)
	return &item, nil
}

// MarketSnapshot reads the market singleton.
func (s *Service) MarketSnapshot(ctx context.Context) (MarketState, error) {
	return scanMarket(s.db.QueryRow(ctx, marketSelect))
}

// GameState derives the countdown view from the market singleton.
func (s *Service) GameState(ctx context.Context) (GameStateView, error) {
	m, err := s.MarketSnapshot(ctx)
	if err != nil {
		return GameStateView{}, err
	}
	now := time.Now()
	return GameStateView{
		Status:             m.Status,
		TimeRemaining:      SessionRemaining(m.Status, m.StartedAt, m.SessionDuration, now),
		CurrentRound:       m.CurrentRound,
		RoundTimeRemaining: RoundRemaining(m.Status, m.RoundStartedAt, m.RoundDuration, now),
		SessionDuration:    m.SessionDuration,
		RoundDuration:      m.RoundDuration,
	}, nil
}

// Players lists every team ordered by descending net worth.
func (s *Service) Players(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, cash, shares_owned, net_worth, is_frozen, frozen_until, created_at
		FROM teams
		ORDER BY net_worth DESC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Cash, &a.Shares, &a.NetWorth, &a.Frozen, &a.FrozenUntil, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Player reads a single team row.
func (s *Service) Player(ctx context.Context, id string) (Account, error) {
	var a Account
	err := s.db.QueryRow(ctx, `
		SELECT id, name, cash, shares_owned, net_worth, is_frozen, frozen_until, created_at
		FROM teams
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Cash, &a.Shares, &a.NetWorth, &a.Frozen, &a.FrozenUntil, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return a, ErrAccountNotFound
	}
	return a, err
}

const marketSelect = `
	SELECT current_price, price_history, market_trend, crash_ticks_remaining,
	       game_status, game_started_at, game_duration_seconds,
	       current_round, round_duration_seconds, round_started_at, updated_at
	FROM market_state
	WHERE id = 1
`

func scanMarket(row pgx.Row) (MarketState, error) {
	var m MarketState
	var rawHistory []byte
	err := row.Scan(&m.CurrentPrice, &rawHistory, &m.Trend, &m.CrashTicksRemaining,
		&m.Status, &m.StartedAt, &m.SessionDuration,
		&m.CurrentRound, &m.RoundDuration, &m.RoundStartedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &m.PriceHistory); err != nil {
			return m, fmt.Errorf("decode price history: %w", err)
		}
	}
	return m, nil
}

func lockMarketTx(ctx context.Context, tx pgx.Tx) (MarketState, error) {
	return scanMarket(tx.QueryRow(ctx, marketSelect+" FOR UPDATE"))
}

func lockAccountTx(ctx context.Context, tx pgx.Tx, id string) (Account, error) {
	var a Account
	err := tx.QueryRow(ctx, `
		SELECT id, name, cash, shares_owned, net_worth, is_frozen, frozen_until, created_at
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&a.ID, &a.Name, &a.Cash, &a.Shares, &a.NetWorth, &a.Frozen, &a.FrozenUntil, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return a, ErrAccountNotFound
	}
	return a, err
}

func persistAccountTx(ctx context.Context, tx pgx.Tx, a Account) error {
	_, err := tx.Exec(ctx, `
		UPDATE teams
		SET cash = $1, shares_owned = $2, net_worth = $3, is_frozen = $4, frozen_until = $5
		WHERE id = $6
	`, a.Cash, a.Shares, a.NetWorth, a.Frozen, a.FrozenUntil, a.ID)
	return err
}

func notifyTx(ctx context.Context, tx pgx.Tx, channel, payload string) error {
	_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, payload)
	return err
}

func (s *Service) updateMarket(ctx context.Context, sql string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}
	if err := notifyTx(ctx, tx, ChanMarket, "market_state"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lifecycle applies a status transition under a row lock so decisions are
// made against current state, then notifies market listeners.
func (s *Service) lifecycle(ctx context.Context, decide func(MarketState) (pgx.NamedArgs, error), sql string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	m, err := lockMarketTx(ctx, tx)
	if err != nil {
		return err
	}
	args, err := decide(m)
	if err != nil {
		return err
	}
	if args == nil {
		return tx.Commit(ctx) // already in the requested state
	}
	if _, err := tx.Exec(ctx, sql, args); err != nil {
		return err
	}
	if err := notifyTx(ctx, tx, ChanMarket, "market_state"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// withRetry runs fn in a serializable transaction, retrying serialization
// and deadlock failures with backoff.
func (s *Service) withRetry(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}
