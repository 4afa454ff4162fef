// Package proxy implements proxy-bid price advancement for English auctions.
//
// A proxy bid is a bidder's hidden maximum. The displayed price is the
// minimum needed for the top bidder to lead: one increment above the
// runner-up's maximum, capped at the leader's own maximum. A lone bidder
// sees the base price, so their maximum never leaks.
//
// All functions are pure and total. Money uses shopspring/decimal.
package proxy

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

type tier struct {
	below     decimal.Decimal
	increment decimal.Decimal
}

var (
	// tiers maps a price band (exclusive upper bound) to its minimum step.
	tiers = []tier{
		{below: decimal.NewFromInt(50), increment: decimal.NewFromInt(2)},
		{below: decimal.NewFromInt(100), increment: decimal.NewFromInt(5)},
		{below: decimal.NewFromInt(250), increment: decimal.NewFromInt(10)},
		{below: decimal.NewFromInt(1000), increment: decimal.NewFromInt(25)},
	}

	// topIncrement applies at and above the last tier bound.
	topIncrement = decimal.NewFromInt(50)
)

// IncrementFor returns the minimum bid step at the given price.
func IncrementFor(price decimal.Decimal) decimal.Decimal {
	for _, t := range tiers {
		if price.LessThan(t.below) {
			return t.increment
		}
	}
	return topIncrement
}

// NextMinimumBid is the lowest amount that moves the price one step.
func NextMinimumBid(current decimal.Decimal) decimal.Decimal {
	return current.Add(IncrementFor(current))
}

// ResolveDisplayPrice computes the displayed current price from the two
// highest competing maximums.
//
// With no second bidder (secondMax is zero) the result is base. Otherwise it
// is secondMax plus one increment, never above highestMax. When the two
// maximums are equal the result is that shared value; which bidder leads in
// that case is decided by bid recency, not here.
func ResolveDisplayPrice(highestMax, secondMax, base decimal.Decimal) decimal.Decimal {
	if secondMax.IsZero() {
		return base
	}
	candidate := secondMax.Add(IncrementFor(secondMax))
	return decimal.Min(candidate, highestMax)
}

// Standing summarizes competition on one item's bid ledger.
type Standing struct {
	// Leader is the bid holding the highest maximum. Nil when there are no bids.
	Leader *model.Bid

	// HighestMax is the leader's maximum.
	HighestMax decimal.Decimal

	// SecondMax is the best maximum from any other bidder, zero if none.
	SecondMax decimal.Decimal

	// DisplayPrice is the price shown to bidders.
	DisplayPrice decimal.Decimal

	// Bidders counts distinct bidders.
	Bidders int
}

// ComputeStanding reduces a bid ledger to each bidder's maximum and resolves
// the display price. A bidder raising their own maximum does not compete
// against themselves. Equal maximums are ordered by the earlier bid.
func ComputeStanding(bids []model.Bid, base decimal.Decimal) Standing {
	best := make(map[string]model.Bid, len(bids))
	for _, b := range bids {
		cur, ok := best[b.BidderID]
		if !ok || Outranks(b, cur) {
			best[b.BidderID] = b
		}
	}

	maxima := make([]model.Bid, 0, len(best))
	for _, b := range best {
		maxima = append(maxima, b)
	}
	sort.Slice(maxima, func(i, j int) bool { return Outranks(maxima[i], maxima[j]) })

	st := Standing{DisplayPrice: base, Bidders: len(maxima)}
	if len(maxima) == 0 {
		return st
	}
	leader := maxima[0]
	st.Leader = &leader
	st.HighestMax = leader.Amount
	if len(maxima) > 1 {
		st.SecondMax = maxima[1].Amount
	}
	st.DisplayPrice = ResolveDisplayPrice(st.HighestMax, st.SecondMax, base)
	return st
}

// Outranks reports whether a sorts ahead of b in a bid ledger: higher amount
// first, then earlier creation time, then lower ID so the order is total.
func Outranks(a, b model.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
