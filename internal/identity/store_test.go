package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestIssueAndResolve(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	token, err := s.Issue(ctx, "team-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}

	teamID, err := s.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if teamID != "team-1" {
		t.Fatalf("got %q want team-1", teamID)
	}
}

func TestResolveUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Resolve(context.Background(), "nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("want ErrTokenNotFound, got %v", err)
	}
	if _, err := s.Resolve(context.Background(), ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("empty token: want ErrTokenNotFound, got %v", err)
	}
}

func TestResolveExpired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	token, err := s.Issue(ctx, "team-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Resolve(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("want ErrTokenNotFound after expiry, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	token, err := s.Issue(ctx, "team-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := s.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Resolve(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("want ErrTokenNotFound after revoke, got %v", err)
	}
	if err := s.Revoke(ctx, "unknown"); err != nil {
		t.Fatalf("revoking unknown token should be a no-op: %v", err)
	}
}
