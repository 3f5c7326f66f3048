package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SrishantKumar/E-Cell-Trading/internal/config"
	"github.com/SrishantKumar/E-Cell-Trading/internal/game"
	"github.com/SrishantKumar/E-Cell-Trading/internal/identity"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.APIConfig{
		AdminSecret: "topsecret",
		Game:        game.DefaultParams(),
	}
	return New(cfg, nil, nil, identity.NewStore(rdb, time.Hour), nil, nil)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rec.Code)
	}
}

func TestPlayerAuthRejections(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/trade/buy", strings.NewReader(`{"quantity":1}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/trade/buy", strings.NewReader(`{"quantity":1}`))
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown token: got %d want 401", rec.Code)
	}
}

func TestAdminAuthRejections(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/start", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing secret: got %d want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/admin/start", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong secret: got %d want 403", rec.Code)
	}
}

func TestStreamDisabledWithoutHub(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stream", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d want 503", rec.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: game.ErrInvalidName, want: http.StatusBadRequest},
		{err: game.ErrInvalidQuantity, want: http.StatusBadRequest},
		{err: game.ErrInsufficientFunds, want: http.StatusBadRequest},
		{err: game.ErrInsufficientShares, want: http.StatusBadRequest},
		{err: game.ErrSelfSabotage, want: http.StatusBadRequest},
		{err: game.ErrAccountFrozen, want: http.StatusForbidden},
		{err: game.ErrAccountNotFound, want: http.StatusNotFound},
		{err: game.ErrTargetNotFound, want: http.StatusNotFound},
		{err: game.ErrInvalidLifecycle, want: http.StatusConflict},
		{err: game.ErrTxConflict, want: http.StatusConflict},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: got %d want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc123", want: "abc123"},
		{header: "bearer abc123", want: "abc123"},
		{header: "Basic abc123", want: ""},
		{header: "", want: ""},
		{header: "Bearer", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q want %q", tc.header, got, tc.want)
		}
	}
}
