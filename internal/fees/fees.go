// Package fees computes buyer-side charges on a hammer price.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

// Breakdown is the fee split for one won lot.
type Breakdown struct {
	BidAmount     decimal.Decimal `json:"bid_amount"`
	BuyersPremium decimal.Decimal `json:"buyers_premium"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// Compute applies the buyer's premium to the hammer price, then tax on the
// premium-inclusive amount. Nil percentages count as zero. Each component
// is rounded to currency precision before it is summed, so LineTotal always
// equals BidAmount + BuyersPremium + TaxAmount exactly.
func Compute(bidAmount decimal.Decimal, premiumPercent, taxPercent *decimal.Decimal) Breakdown {
	premium := model.PercentOf(bidAmount, model.DecimalOrZero(premiumPercent))
	tax := model.PercentOf(bidAmount.Add(premium), model.DecimalOrZero(taxPercent))

	return Breakdown{
		BidAmount:     bidAmount,
		BuyersPremium: premium,
		TaxAmount:     tax,
		LineTotal:     bidAmount.Add(premium).Add(tax),
	}
}

// ForItem computes fees using the item's configured percentages.
func ForItem(item model.AuctionItem, bidAmount decimal.Decimal) Breakdown {
	return Compute(bidAmount, item.BuyersPremiumPercent, item.TaxPercent)
}

// Total sums LineTotal across breakdowns.
func Total(items []Breakdown) decimal.Decimal {
	total := decimal.Zero
	for _, b := range items {
		total = total.Add(b.LineTotal)
	}
	return total
}
