package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// The ledger rules are pure functions over Account values. The service wraps
// them in row-locked transactions; keeping the money math here means every
// rejection path is testable without a database, and no partial mutation can
// escape: each rule either returns an error and leaves the account untouched,
// or applies the full change including the net-worth recompute.

// NetWorthAt is cash plus the mark-to-market value of held shares.
func NetWorthAt(a Account, price decimal.Decimal) decimal.Decimal {
	return a.Cash.Add(price.Mul(decimal.NewFromInt(a.Shares)))
}

// Recompute refreshes the derived net worth against a new price.
func Recompute(a *Account, price decimal.Decimal) {
	a.NetWorth = NetWorthAt(*a, price)
}

// ApplyBuy debits cash and credits shares at the given price. Frozen
// accounts and unaffordable orders are rejected without mutation.
func ApplyBuy(a *Account, price decimal.Decimal, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if a.Frozen {
		return ErrAccountFrozen
	}
	cost := price.Mul(decimal.NewFromInt(qty))
	if a.Cash.LessThan(cost) {
		return ErrInsufficientFunds
	}
	a.Cash = a.Cash.Sub(cost)
	a.Shares += qty
	Recompute(a, price)
	return nil
}

// ApplySell credits cash and debits shares at the given price.
func ApplySell(a *Account, price decimal.Decimal, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if a.Frozen {
		return ErrAccountFrozen
	}
	if a.Shares < qty {
		return ErrInsufficientShares
	}
	a.Cash = a.Cash.Add(price.Mul(decimal.NewFromInt(qty)))
	a.Shares -= qty
	Recompute(a, price)
	return nil
}

// ApplyFreeze freezes the account until the given time, overwriting any
// freeze already in place rather than stacking.
func ApplyFreeze(a *Account, until time.Time) {
	a.Frozen = true
	u := until
	a.FrozenUntil = &u
}

// ApplySabotage debits the attacker and freezes the target. The target is
// validated before any money moves so a failed sabotage never charges the
// attacker. target may be nil when the row does not exist.
func ApplySabotage(attacker, target *Account, cost, price decimal.Decimal, until time.Time) error {
	if attacker.Frozen {
		return ErrAccountFrozen
	}
	if target == nil {
		return ErrTargetNotFound
	}
	if attacker.ID == target.ID {
		return ErrSelfSabotage
	}
	if attacker.Cash.LessThan(cost) {
		return ErrInsufficientFunds
	}
	attacker.Cash = attacker.Cash.Sub(cost)
	Recompute(attacker, price)
	ApplyFreeze(target, until)
	return nil
}

// ApplyStimulus credits cash and net worth unconditionally, frozen or not.
func ApplyStimulus(a *Account, amount decimal.Decimal) {
	a.Cash = a.Cash.Add(amount)
	a.NetWorth = a.NetWorth.Add(amount)
}

// ExpireFreeze clears an elapsed freeze. Reports whether anything changed.
func ExpireFreeze(a *Account, now time.Time) bool {
	if !a.Frozen || a.FrozenUntil == nil || now.Before(*a.FrozenUntil) {
		return false
	}
	a.Frozen = false
	a.FrozenUntil = nil
	return true
}
