package game

import (
	"testing"

	"github.com/shopspring/decimal"
)

// A draw of 0.5 zeroes the noise term, leaving only the regime bias.
func TestNextPriceBiasOnly(t *testing.T) {
	tests := []struct {
		name       string
		trend      Trend
		crashTicks int
		want       string
	}{
		{name: "bull", trend: TrendBull, want: "104"},
		{name: "bear", trend: TrendBear, want: "90"},
		{name: "crash", trend: TrendCrash, want: "86"},
		{name: "spike", trend: TrendSpike, want: "112"},
		{name: "forced crash overrides trend", trend: TrendBull, crashTicks: 3, want: "82"},
	}
	cur := decimal.NewFromInt(100)
	for _, tc := range tests {
		got := NextPrice(cur, tc.trend, tc.crashTicks, 0.5)
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Fatalf("%s: got %s want %s", tc.name, got, want)
		}
	}
}

func TestNextPriceNoiseBounds(t *testing.T) {
	cur := decimal.NewFromInt(100)
	lo := NextPrice(cur, TrendBull, 0, 0) // r = -volatility
	hi := NextPrice(cur, TrendBull, 0, 1) // r = +volatility (exclusive in practice)
	if !lo.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("lower bound: got %s want 102", lo)
	}
	if !hi.Equal(decimal.NewFromInt(106)) {
		t.Fatalf("upper bound: got %s want 106", hi)
	}
}

func TestNextPriceFloor(t *testing.T) {
	got := NextPrice(decimal.NewFromInt(1), TrendBull, 5, 0)
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price fell through the floor: %s", got)
	}
}

func TestNextPriceRounding(t *testing.T) {
	cur, _ := decimal.NewFromString("123.45")
	got := NextPrice(cur, TrendBull, 0, 0.5)
	if got.Exponent() < -2 {
		t.Fatalf("expected at most 2 decimal places, got %s", got)
	}
}

func TestTrendAfterTick(t *testing.T) {
	if got := TrendAfterTick(TrendBull, 4); got != TrendCrash {
		t.Fatalf("active crash counter should report crash, got %s", got)
	}
	if got := TrendAfterTick(TrendCrash, 0); got != TrendBull {
		t.Fatalf("spent crash should revert to bull, got %s", got)
	}
	if got := TrendAfterTick(TrendBear, 0); got != TrendBear {
		t.Fatalf("non-crash trend should persist, got %s", got)
	}
}

// A forced crash lasts exactly five ticks, then the trend reverts on the
// tick that spends the counter.
func TestForcedCrashLifetime(t *testing.T) {
	trend := TrendCrash
	ticks := 5
	price := decimal.NewFromInt(100)
	for i := 0; i < 5; i++ {
		if trend != TrendCrash {
			t.Fatalf("tick %d: expected crash trend, got %s", i, trend)
		}
		next := NextPrice(price, trend, ticks, 0.5)
		if !next.LessThan(price) {
			t.Fatalf("tick %d: forced crash should drop the price (%s -> %s)", i, price, next)
		}
		price = next
		ticks--
		trend = TrendAfterTick(trend, ticks)
	}
	if ticks != 0 {
		t.Fatalf("counter should be spent, got %d", ticks)
	}
	if trend != TrendBull {
		t.Fatalf("trend should revert to bull after the fifth tick, got %s", trend)
	}
}

func TestAppendHistoryWindow(t *testing.T) {
	var history []PricePoint
	for i := 0; i < 60; i++ {
		history = AppendHistory(history, PricePoint{Time: i, Price: decimal.NewFromInt(int64(100 + i))}, 50)
	}
	if len(history) != 50 {
		t.Fatalf("got %d points, want 50", len(history))
	}
	if history[0].Time != 10 || history[49].Time != 59 {
		t.Fatalf("window kept wrong range: [%d, %d]", history[0].Time, history[49].Time)
	}
}
