package game

import "github.com/shopspring/decimal"

// priceFloor keeps the asset from ever reaching zero.
var priceFloor = decimal.NewFromInt(1)

type regimeParams struct {
	bias       float64
	volatility float64
}

// regimeFor maps a trend (and any active forced crash) to the drift bias and
// the half-width of the uniform noise applied per tick. A forced crash
// overrides whatever the trend says.
func regimeFor(trend Trend, crashTicksRemaining int) regimeParams {
	if crashTicksRemaining > 0 {
		return regimeParams{bias: -0.18, volatility: 0.02}
	}
	switch trend {
	case TrendCrash:
		return regimeParams{bias: -0.14, volatility: 0.03}
	case TrendBear:
		return regimeParams{bias: -0.10, volatility: 0.03}
	case TrendSpike:
		return regimeParams{bias: 0.12, volatility: 0.04}
	default:
		return regimeParams{bias: 0.04, volatility: 0.02}
	}
}

// NextPrice computes the next tick price from the current one. draw must be
// uniform in [0, 1); the caller owns the random source so this stays
// deterministic under test. The result is rounded to 2 decimal places and
// floored at 1.
func NextPrice(current decimal.Decimal, trend Trend, crashTicksRemaining int, draw float64) decimal.Decimal {
	p := regimeFor(trend, crashTicksRemaining)
	r := (draw*2 - 1) * p.volatility
	delta := current.Mul(decimal.NewFromFloat(r + p.bias))
	next := current.Add(delta).Round(2)
	if next.LessThan(priceFloor) {
		return priceFloor
	}
	return next
}

// TrendAfterTick decides the trend persisted after a tick, given the crash
// counter value after its decrement. While the counter runs the trend reads
// "crash"; once it is spent a crash trend decays back to "bull".
func TrendAfterTick(trend Trend, crashTicksRemaining int) Trend {
	if crashTicksRemaining > 0 {
		return TrendCrash
	}
	if trend == TrendCrash {
		return TrendBull
	}
	return trend
}

// AppendHistory appends a point and keeps only the most recent window
// entries, oldest dropped first.
func AppendHistory(history []PricePoint, point PricePoint, window int) []PricePoint {
	history = append(history, point)
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}
