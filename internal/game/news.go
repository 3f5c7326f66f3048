package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type NewsEffect string

const (
	EffectBoost   NewsEffect = "BOOST"
	EffectDrop    NewsEffect = "DROP"
	EffectNeutral NewsEffect = "NEUTRAL"
)

// AnnounceWindow is how long after creation an item counts as breaking news.
const AnnounceWindow = 5 * time.Second

func ParseEffect(s string) (NewsEffect, bool) {
	switch NewsEffect(s) {
	case EffectBoost, EffectDrop, EffectNeutral:
		return NewsEffect(s), true
	}
	return "", false
}

// ImpactMultiplier derives the advisory price-impact multiplier stored with
// a news item. The price engine never consumes it; it is metadata for
// presentation and external consumers.
func ImpactMultiplier(e NewsEffect) decimal.Decimal {
	switch e {
	case EffectBoost:
		return decimal.NewFromFloat(1.2)
	case EffectDrop:
		return decimal.NewFromFloat(0.8)
	default:
		return decimal.NewFromInt(1)
	}
}

// EffectFromMultiplier is the inverse mapping used when reading stored rows.
func EffectFromMultiplier(m decimal.Decimal) NewsEffect {
	one := decimal.NewFromInt(1)
	switch {
	case m.GreaterThan(one):
		return EffectBoost
	case m.LessThan(one):
		return EffectDrop
	default:
		return EffectNeutral
	}
}

// Announceable reports whether an item is still inside its "just happened"
// notification window. Afterwards it remains the latest item but is not
// re-announced.
func Announceable(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < AnnounceWindow
}
