package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SrishantKumar/E-Cell-Trading/internal/config"
	"github.com/SrishantKumar/E-Cell-Trading/internal/feed"
	"github.com/SrishantKumar/E-Cell-Trading/internal/game"
	"github.com/SrishantKumar/E-Cell-Trading/internal/identity"
)

type contextKey string

const teamContextKey contextKey = "team"

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	game     *game.Service
	sessions *identity.Store
	feed     feed.Publisher
	hub      *Hub
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service, sessions *identity.Store, publisher feed.Publisher, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = feed.New(nil, "", logger)
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		game:     gameSvc,
		sessions: sessions,
		feed:     publisher,
		hub:      hub,
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/join", s.handleJoin)
		r.Get("/market", s.handleMarket)
		r.Get("/state", s.handleState)
		r.Get("/players", s.handlePlayers)
		r.Get("/news/latest", s.handleLatestNews)
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(s.playerMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/trade/buy", s.handleBuy)
			r.Post("/trade/sell", s.handleSell)
			r.Post("/sabotage", s.handleSabotage)
			r.Post("/leave", s.handleLeave)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/start", s.handleStart)
			r.Post("/pause", s.handlePause)
			r.Post("/reset", s.handleReset)
			r.Post("/advance-round", s.handleAdvanceRound)
			r.Post("/crash", s.handleCrash)
			r.Post("/trend", s.handleTrend)
			r.Post("/news", s.handleNews)
			r.Post("/stimulus", s.handleStimulus)
			r.Post("/tick", s.handleManualTick)
		})
	})
}

func (s *Server) playerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		teamID, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid or expired session token")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), teamContextKey, teamID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := strings.TrimSpace(r.Header.Get("X-Admin-Secret"))
		if secret == "" || secret != s.cfg.AdminSecret {
			writeError(w, http.StatusForbidden, "invalid admin secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func teamFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(teamContextKey).(string)
	if !ok || id == "" {
		return "", errors.New("missing player context")
	}
	return id, nil
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	team, err := s.game.Join(r.Context(), in.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.sessions.Issue(r.Context(), team.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.feed.Publish(r.Context(), feed.EventJoin, map[string]any{"team_id": team.ID, "name": team.Name})
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "team": team})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.MarketSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.GameState(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Players(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": out})
}

func (s *Server) handleLatestNews(w http.ResponseWriter, r *http.Request) {
	item, err := s.game.LatestNews(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": item})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Player(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "buy", s.game.Buy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "sell", s.game.Sell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, side string, trade func(context.Context, string, int64) (game.TradeResult, error)) {
	teamID, err := teamFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := trade(r.Context(), teamID, in.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventTrade, map[string]any{
		"team_id":  teamID,
		"side":     side,
		"quantity": in.Quantity,
		"price":    out.Price,
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSabotage(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		TargetID string `json:"target_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.Sabotage(r.Context(), teamID, strings.TrimSpace(in.TargetID)); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventSabotage, map[string]any{"attacker_id": teamID, "target_id": in.TargetID})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "stream is not enabled")
		return
	}
	s.hub.ServeWS(w, r)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.game.StartSession(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "start"})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.game.PauseSession(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "pause"})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.ResetSession(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "reset"})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.game.AdvanceRound(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	headline := fmt.Sprintf("Round %d has started! Good luck traders!", round)
	if _, err := s.game.BroadcastNews(r.Context(), headline, game.EffectBoost); err != nil {
		s.log.Error("announce round start", "round", round, "err", err)
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "advance_round", "round": round})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "round": round})
}

func (s *Server) handleCrash(w http.ResponseWriter, r *http.Request) {
	if err := s.game.TriggerCrash(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "crash"})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Trend string `json:"trend"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trend, ok := game.ParseTrend(strings.ToLower(strings.TrimSpace(in.Trend)))
	if !ok {
		writeError(w, http.StatusBadRequest, "trend must be one of bull, bear, crash, spike")
		return
	}
	if err := s.game.SetTrend(r.Context(), trend); err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventLifecycle, map[string]any{"action": "set_trend", "trend": trend})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Headline string `json:"headline"`
		Effect   string `json:"effect"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	effect, ok := game.ParseEffect(strings.ToUpper(strings.TrimSpace(in.Effect)))
	if !ok {
		writeError(w, http.StatusBadRequest, "effect must be one of BOOST, DROP, NEUTRAL")
		return
	}
	item, err := s.game.BroadcastNews(r.Context(), in.Headline, effect)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.feed.Publish(r.Context(), feed.EventNews, item)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleStimulus(w http.ResponseWriter, r *http.Request) {
	amount := s.cfg.Game.StimulusAmount
	if err := s.game.GiveStimulus(r.Context(), amount); err != nil {
		writeDomainError(w, err)
		return
	}
	headline := fmt.Sprintf("Government announces $%s stimulus for all traders!", amount)
	if _, err := s.game.BroadcastNews(r.Context(), headline, game.EffectBoost); err != nil {
		s.log.Error("announce stimulus", "err", err)
	}
	s.feed.Publish(r.Context(), feed.EventStimulus, map[string]any{"amount": amount})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "amount": amount})
}

// handleManualTick lets an operator advance the market when the worker is
// down or during rehearsals.
func (s *Server) handleManualTick(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Tick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if out.Ticked {
		s.feed.Publish(r.Context(), feed.EventTick, out)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidName),
		errors.Is(err, game.ErrInvalidQuantity),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrSelfSabotage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrAccountFrozen):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrAccountNotFound), errors.Is(err, game.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInvalidLifecycle), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
