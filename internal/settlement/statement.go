package settlement

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/winner"
)

// Outcome explains what happened to a consigned item.
type Outcome string

const (
	OutcomeSold         Outcome = "sold"
	OutcomeNoBids       Outcome = "no_bids"
	OutcomeBelowReserve Outcome = "below_reserve"
	OutcomeUnsold       Outcome = "unsold"
)

// OutcomeOf derives an item's outcome from its state and bid ledger. It is
// never stored. The reserve is judged on the head bid amount, as in winner
// resolution, not on the displayed current price. An unsold item whose head
// bid met the reserve is OutcomeUnsold: its winner was never invoiced.
func OutcomeOf(it model.AuctionItem, bids []model.Bid) Outcome {
	if it.IsSold {
		return OutcomeSold
	}
	top, ok := winner.Head(bids)
	switch {
	case !ok:
		return OutcomeNoBids
	case !winner.MeetsReserve(it, top.Amount):
		return OutcomeBelowReserve
	default:
		return OutcomeUnsold
	}
}

// StatementLine is one item on a seller statement.
type StatementLine struct {
	Item    model.AuctionItem `json:"item"`
	Outcome Outcome           `json:"outcome"`
}

// Statement is a settlement together with every item it covers.
type Statement struct {
	model.Settlement
	Lines       []StatementLine `json:"lines"`
	SoldCount   int             `json:"sold_count"`
	UnsoldCount int             `json:"unsold_count"`
}

// Statement builds the seller statement of a settlement.
func (g *Generator) Statement(ctx context.Context, id string) (*Statement, error) {
	stl, err := g.store.GetSettlement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("statement %s: %w", id, err)
	}
	items, err := g.store.ListItemsBySettlement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("statement %s: %w", id, err)
	}

	lines := make([]StatementLine, 0, len(items))
	for _, it := range items {
		var bids []model.Bid
		if !it.IsSold {
			if bids, err = g.store.ListBidsByItem(ctx, it.ID); err != nil {
				return nil, fmt.Errorf("statement %s: bids of item %s: %w", id, it.ID, err)
			}
		}
		lines = append(lines, StatementLine{Item: it, Outcome: OutcomeOf(it, bids)})
	}
	sold := lo.CountBy(lines, func(l StatementLine) bool { return l.Outcome == OutcomeSold })
	return &Statement{
		Settlement:  *stl,
		Lines:       lines,
		SoldCount:   sold,
		UnsoldCount: len(lines) - sold,
	}, nil
}
