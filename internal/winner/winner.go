// Package winner resolves the winning bid on each lot of an auction and
// groups the wins by bidder for invoicing.
package winner

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/fees"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/proxy"
	"github.com/atmx/auction-settlement/internal/store"
)

// Win is one lot won by a bidder, billed at the winning bid amount.
type Win struct {
	Item model.AuctionItem `json:"item"`
	Bid  model.Bid         `json:"bid"`
	fees.Breakdown
}

// Group collects every lot one bidder won. TotalAmount includes fees.
type Group struct {
	BidderID    string          `json:"bidder_id"`
	Wins        []Win           `json:"wins"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ItemIDs lists the lots in the group.
func (g Group) ItemIDs() []string {
	return lo.Map(g.Wins, func(w Win, _ int) string { return w.Item.ID })
}

// Resolve picks the head of each item's bid ledger (highest amount, earliest
// on ties) and groups the wins by bidder. Items with no bids, or whose head
// bid is under a set reserve price, are left out.
//
// Groups are ordered by bidder ID and wins follow the order of items, so the
// result is reproducible for the same inputs.
func Resolve(items []model.AuctionItem, bids []model.Bid) []Group {
	byItem := lo.GroupBy(bids, func(b model.Bid) string { return b.ItemID })

	groups := make(map[string]*Group)
	for _, item := range items {
		top, ok := Head(byItem[item.ID])
		if !ok || !MeetsReserve(item, top.Amount) {
			continue
		}

		g, ok := groups[top.BidderID]
		if !ok {
			g = &Group{BidderID: top.BidderID}
			groups[top.BidderID] = g
		}
		w := Win{Item: item, Bid: top, Breakdown: fees.ForItem(item, top.Amount)}
		g.Wins = append(g.Wins, w)
		g.TotalAmount = g.TotalAmount.Add(w.LineTotal)
	}

	bidders := lo.Keys(groups)
	sort.Strings(bidders)

	out := make([]Group, 0, len(bidders))
	for _, id := range bidders {
		out = append(out, *groups[id])
	}
	return out
}

// Head returns the bid that wins an item's ledger: the highest amount, the
// earliest on ties. ok is false when there are no bids.
func Head(bids []model.Bid) (top model.Bid, ok bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	top = bids[0]
	for _, b := range bids[1:] {
		if proxy.Outranks(b, top) {
			top = b
		}
	}
	return top, true
}

// MeetsReserve reports whether amount may win the item. Items without a
// reserve price accept any amount.
func MeetsReserve(item model.AuctionItem, amount decimal.Decimal) bool {
	return item.ReservePrice == nil || !amount.LessThan(*item.ReservePrice)
}

// Engine loads an auction's lots and ledger and resolves winners. It only
// reads, so it may run before or after the auction closes.
type Engine struct {
	store store.Queries
}

// NewEngine creates a winner engine.
func NewEngine(s store.Queries) *Engine {
	return &Engine{store: s}
}

// Resolve returns the winner groups for an auction.
func (e *Engine) Resolve(ctx context.Context, auctionID string) ([]Group, error) {
	return ResolveWith(ctx, e.store, auctionID)
}

// ResolveWith resolves winners using q, which may be a transaction.
func ResolveWith(ctx context.Context, q store.Queries, auctionID string) ([]Group, error) {
	if _, err := q.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("resolve winners: %w", err)
	}
	items, err := q.ListItemsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("resolve winners: list items: %w", err)
	}
	bids, err := q.ListBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("resolve winners: list bids: %w", err)
	}
	return Resolve(items, bids), nil
}
