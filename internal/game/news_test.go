package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseEffect(t *testing.T) {
	for _, s := range []string{"BOOST", "DROP", "NEUTRAL"} {
		if _, ok := ParseEffect(s); !ok {
			t.Fatalf("expected %q to parse", s)
		}
	}
	for _, s := range []string{"boost", "", "CRASH"} {
		if _, ok := ParseEffect(s); ok {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

func TestImpactMultiplierRoundTrip(t *testing.T) {
	for _, e := range []NewsEffect{EffectBoost, EffectDrop, EffectNeutral} {
		if got := EffectFromMultiplier(ImpactMultiplier(e)); got != e {
			t.Fatalf("round trip for %s gave %s", e, got)
		}
	}
	if !ImpactMultiplier(EffectNeutral).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("neutral multiplier should be 1")
	}
}

func TestAnnounceable(t *testing.T) {
	now := time.Now()
	if !Announceable(now.Add(-2*time.Second), now) {
		t.Fatalf("fresh item should be announceable")
	}
	if Announceable(now.Add(-AnnounceWindow), now) {
		t.Fatalf("item at the window edge should not be announceable")
	}
}
