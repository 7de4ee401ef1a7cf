package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Format renders an amount for display. Dollar-pegged currencies get two
// decimals and a $ prefix, majors get their conventional precision, anything
// else prints as stored. Display only; stored values never pass through.
func Format(amount decimal.Decimal, cur string) string {
	switch cur {
	case "USD", "USDC", "USDT":
		return fmt.Sprintf("$%s %s", amount.StringFixed(2), cur)
	case "ETH", "BTC":
		return fmt.Sprintf("%s %s", amount.StringFixed(6), cur)
	case "SOL", "MATIC", "AVAX":
		return fmt.Sprintf("%s %s", amount.StringFixed(4), cur)
	case "":
		return amount.String()
	default:
		return fmt.Sprintf("%s %s", amount.String(), cur)
	}
}
