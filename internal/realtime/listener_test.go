package realtime

import "testing"

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ecell_market", want: `"ecell_market"`},
		{in: `odd"name`, want: `"odd""name"`},
	}
	for _, tc := range tests {
		if got := quoteIdent(tc.in); got != tc.want {
			t.Fatalf("quoteIdent(%q) = %s want %s", tc.in, got, tc.want)
		}
	}
}
