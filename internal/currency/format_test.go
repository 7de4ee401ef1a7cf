package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		amount string
		cur    string
		want   string
	}{
		{"100", "USD", "$100.00 USD"},
		{"0.5", "USDC", "$0.50 USDC"},
		{"0.1234567", "ETH", "0.123457 ETH"},
		{"2", "SOL", "2.0000 SOL"},
		{"1500", "JPY", "1500 JPY"},
		{"42.5", "", "42.5"},
	}
	for _, tc := range cases {
		got := Format(decimal.RequireFromString(tc.amount), tc.cur)
		if got != tc.want {
			t.Fatalf("Format(%s, %q)=%q want %q", tc.amount, tc.cur, got, tc.want)
		}
	}
}
