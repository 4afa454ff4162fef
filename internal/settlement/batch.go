package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/atmx/auction-settlement/internal/model"
)

// DefaultBatchConcurrency bounds parallel generation when the caller does
// not set one.
const DefaultBatchConcurrency = 4

// BatchInput settles every seller that has unsettled items, optionally
// limited to one auction, at a single commission rate.
type BatchInput struct {
	AuctionID      *string
	CommissionRate decimal.Decimal
	Concurrency    int
}

// BatchFailure is a seller whose settlement could not be generated.
type BatchFailure struct {
	SellerID string `json:"seller_id"`
	Error    string `json:"error"`
}

// BatchResult lists the generated settlements in seller order.
type BatchResult struct {
	Settlements []model.Settlement `json:"settlements"`
	Failed      []BatchFailure     `json:"failed,omitempty"`
}

// GenerateBatch generates one settlement per seller in parallel. Sellers own
// disjoint item sets so their transactions never compete for the same rows.
// A seller that fails is reported in the result; a store outage stops the
// batch.
func (g *Generator) GenerateBatch(ctx context.Context, in BatchInput) (*BatchResult, error) {
	if err := validateRate(in.CommissionRate); err != nil {
		return nil, err
	}
	if in.Concurrency <= 0 {
		in.Concurrency = DefaultBatchConcurrency
	}

	sellers, err := g.store.ListSellersWithUnsettledItems(ctx, in.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}

	settled := make([]*model.Settlement, len(sellers))
	errs := make([]error, len(sellers))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(in.Concurrency)
	for i, seller := range sellers {
		eg.Go(func() error {
			stl, err := g.Generate(egCtx, GenerateInput{
				SellerID:       seller,
				AuctionID:      in.AuctionID,
				CommissionRate: in.CommissionRate,
			})
			settled[i], errs[i] = stl, err
			if errors.Is(err, model.ErrUnavailable) {
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("settlement batch: %w", err)
	}

	res := &BatchResult{Settlements: make([]model.Settlement, 0, len(sellers))}
	for i, seller := range sellers {
		if errs[i] != nil {
			res.Failed = append(res.Failed, BatchFailure{SellerID: seller, Error: errs[i].Error()})
			slog.Warn("seller settlement failed", "seller_id", seller, "err", errs[i])
			continue
		}
		res.Settlements = append(res.Settlements, *settled[i])
	}
	slog.Info("settlement batch done", "sellers", len(sellers), "generated", len(res.Settlements), "failed", len(res.Failed))
	return res, nil
}
