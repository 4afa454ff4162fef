// Package settlement computes seller payouts over consigned items and
// drives the settlement lifecycle.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/metrics"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/reference"
	"github.com/atmx/auction-settlement/internal/store"
)

var (
	// ErrNoItems is returned when the seller has nothing left to settle.
	ErrNoItems = fmt.Errorf("%w: no unsettled items", model.ErrNotFound)

	// ErrNotDraft rejects adjustment edits once a settlement has left draft.
	ErrNotDraft = fmt.Errorf("%w: settlement is not a draft", model.ErrConflict)
)

var maxRate = decimal.NewFromInt(100)

// GenerateInput selects the items to settle and the seller-side charges.
type GenerateInput struct {
	SellerID       string
	AuctionID      *string
	CommissionRate decimal.Decimal
	Adjustments    []model.Adjustment
}

// Totals is the arithmetic of a settlement.
type Totals struct {
	TotalSales decimal.Decimal
	Commission decimal.Decimal
	Expenses   decimal.Decimal
	NetPayout  decimal.Decimal
}

// Compute derives settlement totals. Only sold items contribute to sales;
// commission is charged on sales and expenses combine both adjustment types.
func Compute(items []model.AuctionItem, rate decimal.Decimal, adjustments []model.Adjustment) Totals {
	sales := decimal.Zero
	for _, it := range items {
		if it.IsSold && it.SoldPrice != nil {
			sales = sales.Add(*it.SoldPrice)
		}
	}
	commission := model.PercentOf(sales, rate)
	return withAdjustments(sales, commission, adjustments)
}

func withAdjustments(sales, commission decimal.Decimal, adjustments []model.Adjustment) Totals {
	expenses := decimal.Zero
	for _, a := range adjustments {
		expenses = expenses.Add(a.Amount)
	}
	expenses = model.RoundMoney(expenses)
	return Totals{
		TotalSales: sales,
		Commission: commission,
		Expenses:   expenses,
		NetPayout:  sales.Sub(commission).Sub(expenses),
	}
}

// Generator creates settlements and moves them through their lifecycle.
type Generator struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewGenerator creates a settlement generator. A nil notifier discards events.
func NewGenerator(st store.Store, n notify.Notifier) *Generator {
	if n == nil {
		n = notify.Nop{}
	}
	return &Generator{store: st, notifier: n, now: time.Now}
}

// WithClock overrides the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate settles every unsettled item of a seller, optionally limited to
// one auction. The settlement is created in draft and all selected items are
// linked to it in the same transaction; if another settlement claims any of
// them first the whole generation rolls back with model.ErrConflict.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*model.Settlement, error) {
	if err := validateGenerate(in); err != nil {
		return nil, err
	}
	adjustments := normalizeAdjustments(in.Adjustments)

	var stl model.Settlement
	err := g.store.InTx(ctx, func(q store.Queries) error {
		items, err := q.ListUnsettledItems(ctx, store.ItemFilter{SellerID: in.SellerID, AuctionID: in.AuctionID})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w for seller %s", ErrNoItems, in.SellerID)
		}

		now := g.now().UTC()
		seq, err := q.NextSettlementSequence(ctx, now.Year())
		if err != nil {
			return err
		}

		totals := Compute(items, in.CommissionRate, adjustments)
		stl = model.Settlement{
			ID:             uuid.New().String(),
			Reference:      reference.FormatSettlementRef(now.Year(), seq),
			SellerID:       in.SellerID,
			AuctionID:      in.AuctionID,
			CommissionRate: in.CommissionRate,
			TotalSales:     totals.TotalSales,
			Commission:     totals.Commission,
			Expenses:       totals.Expenses,
			Adjustments:    adjustments,
			NetPayout:      totals.NetPayout,
			Status:         model.SettlementDraft,
			GeneratedAt:    now,
		}
		if err := q.CreateSettlement(ctx, &stl); err != nil {
			return err
		}

		ids := lo.Map(items, func(it model.AuctionItem, _ int) string { return it.ID })
		linked, err := q.LinkItemsToSettlement(ctx, stl.ID, ids)
		if err != nil {
			return err
		}
		if linked != int64(len(ids)) {
			return fmt.Errorf("%w: %d of %d items were settled concurrently", model.ErrConflict, int64(len(ids))-linked, len(ids))
		}
		stl.ItemIDs = ids
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate settlement for seller %s: %w", in.SellerID, err)
	}

	metrics.Settlements.WithLabelValues(string(stl.Status)).Inc()
	metrics.SettlementPayout.Observe(stl.NetPayout.InexactFloat64())
	slog.Info("settlement generated",
		"settlement_id", stl.ID,
		"reference", stl.Reference,
		"seller_id", stl.SellerID,
		"items", len(stl.ItemIDs),
		"total_sales", stl.TotalSales.String(),
		"net_payout", stl.NetPayout.String(),
	)
	g.notify(ctx, notify.SettlementGenerated, &stl, stl.GeneratedAt)
	return &stl, nil
}

// Get returns a settlement with its linked item IDs.
func (g *Generator) Get(ctx context.Context, id string) (*model.Settlement, error) {
	return g.store.GetSettlement(ctx, id)
}

// Submit sends a draft to the seller for payment.
func (g *Generator) Submit(ctx context.Context, id string) (*model.Settlement, error) {
	return g.transition(ctx, id, model.SettlementPendingPayment, notify.SettlementSubmitted)
}

// MarkPaid records the payout of a pending settlement.
func (g *Generator) MarkPaid(ctx context.Context, id string) (*model.Settlement, error) {
	return g.transition(ctx, id, model.SettlementPaid, notify.SettlementPaid)
}

// Cancel voids a draft or pending settlement. Its items stay linked.
func (g *Generator) Cancel(ctx context.Context, id string) (*model.Settlement, error) {
	return g.transition(ctx, id, model.SettlementCancelled, notify.SettlementCancelled)
}

func (g *Generator) transition(ctx context.Context, id string, next model.SettlementStatus, evt notify.EventType) (*model.Settlement, error) {
	var stl *model.Settlement
	now := g.now().UTC()
	err := g.store.InTx(ctx, func(q store.Queries) error {
		var err error
		stl, err = q.LockSettlement(ctx, id)
		if err != nil {
			return err
		}
		if stl.Status, err = stl.Status.TransitionTo(next); err != nil {
			return err
		}
		if next == model.SettlementPaid {
			stl.PaidAt = &now
		}
		return q.UpdateSettlement(ctx, stl)
	})
	if err != nil {
		return nil, fmt.Errorf("settlement %s to %s: %w", id, next, err)
	}

	metrics.Settlements.WithLabelValues(string(next)).Inc()
	slog.Info("settlement status changed", "settlement_id", id, "status", next)
	g.notify(ctx, evt, stl, now)
	return stl, nil
}

// UpdateAdjustments replaces the adjustments of a draft settlement and
// recomputes expenses and net payout. Sales and commission keep their
// stored values.
func (g *Generator) UpdateAdjustments(ctx context.Context, id string, adjustments []model.Adjustment) (*model.Settlement, error) {
	if err := validateAdjustments(adjustments); err != nil {
		return nil, err
	}
	adjustments = normalizeAdjustments(adjustments)

	var stl *model.Settlement
	err := g.store.InTx(ctx, func(q store.Queries) error {
		var err error
		stl, err = q.LockSettlement(ctx, id)
		if err != nil {
			return err
		}
		if stl.Status != model.SettlementDraft {
			return fmt.Errorf("%w (status %s)", ErrNotDraft, stl.Status)
		}
		totals := withAdjustments(stl.TotalSales, stl.Commission, adjustments)
		stl.Adjustments = adjustments
		stl.Expenses = totals.Expenses
		stl.NetPayout = totals.NetPayout
		return q.UpdateSettlement(ctx, stl)
	})
	if err != nil {
		return nil, fmt.Errorf("update adjustments of settlement %s: %w", id, err)
	}
	slog.Info("settlement adjusted", "settlement_id", id, "expenses", stl.Expenses.String(), "net_payout", stl.NetPayout.String())
	return stl, nil
}

func (g *Generator) notify(ctx context.Context, t notify.EventType, stl *model.Settlement, at time.Time) {
	e := notify.Event{
		Type:         t,
		SellerID:     stl.SellerID,
		SettlementID: stl.ID,
		Reference:    stl.Reference,
		Amount:       stl.NetPayout.StringFixed(2),
		OccurredAt:   at,
	}
	if stl.AuctionID != nil {
		e.AuctionID = *stl.AuctionID
	}
	g.notifier.Notify(ctx, e)
}

func validateGenerate(in GenerateInput) error {
	if in.SellerID == "" {
		return fmt.Errorf("%w: seller id is required", model.ErrInvalid)
	}
	if in.AuctionID != nil && *in.AuctionID == "" {
		return fmt.Errorf("%w: auction id must not be empty", model.ErrInvalid)
	}
	if err := validateRate(in.CommissionRate); err != nil {
		return err
	}
	return validateAdjustments(in.Adjustments)
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return fmt.Errorf("%w: commission rate %s outside [0, 100]", model.ErrInvalid, rate)
	}
	return nil
}

func validateAdjustments(adjustments []model.Adjustment) error {
	for i, a := range adjustments {
		if _, err := model.ParseAdjustmentType(string(a.Type)); err != nil {
			return fmt.Errorf("adjustment %d: %w", i, err)
		}
		if a.Amount.IsNegative() {
			return fmt.Errorf("%w: adjustment %d: amount must not be negative", model.ErrInvalid, i)
		}
	}
	return nil
}

func normalizeAdjustments(adjustments []model.Adjustment) []model.Adjustment {
	return lo.Map(adjustments, func(a model.Adjustment, _ int) model.Adjustment {
		a.Amount = model.RoundMoney(a.Amount)
		return a
	})
}
