// Package bidding writes bids to the immutable ledger and advances the
// displayed proxy price of the item.
package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/metrics"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/proxy"
	"github.com/atmx/auction-settlement/internal/store"
)

var (
	// ErrAuctionNotLive rejects bids on auctions that are upcoming or closed.
	ErrAuctionNotLive = fmt.Errorf("%w: auction is not live", model.ErrConflict)

	// ErrBidTooLow rejects bids that do not exceed the current price.
	ErrBidTooLow = fmt.Errorf("%w: bid too low", model.ErrConflict)
)

// PlaceBidInput is a bidder's proxy maximum for one item.
type PlaceBidInput struct {
	ItemID   string
	BidderID string
	Amount   decimal.Decimal
}

// Receipt describes an accepted bid and the item's price after it.
type Receipt struct {
	Bid            model.Bid       `json:"bid"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	NextMinimumBid decimal.Decimal `json:"next_minimum_bid"`
	Leading        bool            `json:"leading"`
}

// Service accepts bids. Each bid is validated and recorded in one store
// transaction that holds the item's row lock, so concurrent bids on the
// same item are serialized and the stored price never moves backwards.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a bidding service. A nil notifier discards events.
func NewService(st store.Store, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{store: st, notifier: n, now: time.Now}
}

// WithClock overrides the time source used to stamp bids.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PlaceBid records a bid. It fails with ErrNotFound when the item or its
// auction is missing, ErrAuctionNotLive unless the auction is live, and
// ErrBidTooLow unless the amount exceeds max(current price, base price).
// Rejected bids are not retried.
func (s *Service) PlaceBid(ctx context.Context, in PlaceBidInput) (*Receipt, error) {
	if err := validate(in); err != nil {
		metrics.BidsRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var (
		receipt   Receipt
		auctionID string
	)
	err := s.store.InTx(ctx, func(q store.Queries) error {
		item, err := q.LockItem(ctx, in.ItemID)
		if err != nil {
			return err
		}
		auction, err := q.GetAuction(ctx, item.AuctionID)
		if err != nil {
			return err
		}
		auctionID = auction.ID
		if auction.Status != model.AuctionLive {
			return fmt.Errorf("%w: auction %s is %s", ErrAuctionNotLive, auction.ID, auction.Status)
		}

		floor := item.BasePrice
		if item.CurrentPrice != nil {
			floor = decimal.Max(floor, *item.CurrentPrice)
		}
		if !in.Amount.GreaterThan(floor) {
			return fmt.Errorf("%w: %s must exceed current price %s (next minimum bid %s)",
				ErrBidTooLow, in.Amount.StringFixed(2), floor.StringFixed(2),
				proxy.NextMinimumBid(floor).StringFixed(2))
		}

		bid := model.Bid{
			ID:        uuid.New().String(),
			ItemID:    item.ID,
			BidderID:  in.BidderID,
			Amount:    in.Amount,
			CreatedAt: s.now().UTC(),
		}
		if err := q.InsertBid(ctx, &bid); err != nil {
			return err
		}

		ledger, err := q.ListBidsByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		standing := proxy.ComputeStanding(ledger, item.BasePrice)

		price := standing.DisplayPrice
		if item.CurrentPrice != nil {
			price = decimal.Max(price, *item.CurrentPrice)
		}
		if err := q.UpdateItemCurrentPrice(ctx, item.ID, price); err != nil {
			return err
		}

		receipt = Receipt{
			Bid:            bid,
			CurrentPrice:   price,
			NextMinimumBid: proxy.NextMinimumBid(price),
			Leading:        standing.Leader != nil && standing.Leader.BidderID == in.BidderID,
		}
		return nil
	})
	if err != nil {
		metrics.BidsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, fmt.Errorf("place bid on item %s: %w", in.ItemID, err)
	}

	metrics.BidsPlaced.Inc()
	slog.Info("bid placed",
		"bid_id", receipt.Bid.ID,
		"item_id", in.ItemID,
		"bidder_id", in.BidderID,
		"current_price", receipt.CurrentPrice.String(),
	)

	// The bidder's maximum stays private; subscribers only see the price.
	s.notifier.Notify(ctx, notify.Event{
		Type:       notify.BidPlaced,
		AuctionID:  auctionID,
		ItemID:     in.ItemID,
		BidderID:   in.BidderID,
		Amount:     receipt.CurrentPrice.StringFixed(2),
		OccurredAt: receipt.Bid.CreatedAt,
	})
	return &receipt, nil
}

func validate(in PlaceBidInput) error {
	switch {
	case in.ItemID == "":
		return fmt.Errorf("%w: item_id is required", model.ErrInvalid)
	case in.BidderID == "":
		return fmt.Errorf("%w: bidder_id is required", model.ErrInvalid)
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", model.ErrInvalid)
	case !in.Amount.Equal(model.RoundMoney(in.Amount)):
		return fmt.Errorf("%w: amount has more than %d decimal places", model.ErrInvalid, model.MoneyScale)
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuctionNotLive):
		return "auction_not_live"
	case errors.Is(err, ErrBidTooLow):
		return "too_low"
	case errors.Is(err, model.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
