package game

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateTeamName(t *testing.T) {
	valid := []string{"Wolves", "The Bulls", "  padded  ", strings.Repeat("x", 20)}
	for _, name := range valid {
		if err := ValidateTeamName(name); err != nil {
			t.Fatalf("expected name %q to be valid: %v", name, err)
		}
	}

	invalid := []string{"", "   ", strings.Repeat("x", 21)}
	for _, name := range invalid {
		if err := ValidateTeamName(name); err == nil {
			t.Fatalf("expected name %q to fail", name)
		}
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if !p.StartingCash.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("starting cash: %s", p.StartingCash)
	}
	if !p.StartingPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("starting price: %s", p.StartingPrice)
	}
	if p.Rounds != 3 || p.HistoryWindow != 50 {
		t.Fatalf("rounds=%d window=%d", p.Rounds, p.HistoryWindow)
	}
	if p.SessionDuration != 3*p.RoundDuration {
		t.Fatalf("session should span the three rounds: %s vs %s", p.SessionDuration, p.RoundDuration)
	}
}
