package settlement_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/reference"
	"github.com/atmx/auction-settlement/internal/settlement"
	"github.com/atmx/auction-settlement/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// lot describes a seeded item. top is the amount of its only bid and
// display its current price, when set.
type lot struct {
	id, auction, seller string
	sold                *float64
	top, display        *float64
	reserve             *float64
}

func price(f float64) *float64 { return &f }

// seed creates the lots and a closed auction for each of them.
func seed(t *testing.T, lots ...lot) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	auctions := map[string]bool{}
	for _, l := range lots {
		if !auctions[l.auction] {
			if err := st.CreateAuction(ctx, &model.Auction{ID: l.auction, Status: model.AuctionClosed, CreatedAt: t0}); err != nil {
				t.Fatal(err)
			}
			auctions[l.auction] = true
		}
		it := &model.AuctionItem{ID: l.id, AuctionID: l.auction, SellerID: l.seller, BasePrice: d(10), CreatedAt: t0}
		if l.display != nil {
			it.CurrentPrice = model.DecimalPtr(d(*l.display))
		}
		if l.reserve != nil {
			it.ReservePrice = model.DecimalPtr(d(*l.reserve))
		}
		if err := st.CreateItem(ctx, it); err != nil {
			t.Fatal(err)
		}
		if l.top != nil {
			bid := &model.Bid{ID: "bid-" + l.id, ItemID: l.id, BidderID: "alice", Amount: d(*l.top), CreatedAt: t0}
			if err := st.InsertBid(ctx, bid); err != nil {
				t.Fatal(err)
			}
		}
		if l.sold != nil {
			if err := st.MarkItemSold(ctx, l.id, d(*l.sold)); err != nil {
				t.Fatal(err)
			}
		}
	}
	return st
}

func newGenerator(st store.Store, n notify.Notifier) *settlement.Generator {
	return settlement.NewGenerator(st, n).WithClock(func() time.Time { return t0 })
}

func generate(t *testing.T, gen *settlement.Generator, in settlement.GenerateInput) *model.Settlement {
	t.Helper()
	stl, err := gen.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("generate for %s: %v", in.SellerID, err)
	}
	return stl
}

func TestCompute(t *testing.T) {
	items := []model.AuctionItem{
		{ID: "i1", IsSold: true, SoldPrice: model.DecimalPtr(d(3000))},
		{ID: "i2", IsSold: true, SoldPrice: model.DecimalPtr(d(2000))},
		{ID: "i3"},
	}
	adjustments := []model.Adjustment{
		{Type: model.AdjustmentExpense, Amount: d(50)},
		{Type: model.AdjustmentDeduction, Amount: d(20)},
	}
	got := settlement.Compute(items, d(10), adjustments)

	if !got.TotalSales.Equal(d(5000)) || !got.Commission.Equal(d(500)) {
		t.Errorf("expected sales 5000 and commission 500, got %s and %s", got.TotalSales, got.Commission)
	}
	if !got.Expenses.Equal(d(70)) || !got.NetPayout.Equal(d(4430)) {
		t.Errorf("expected expenses 70 and net payout 4430, got %s and %s", got.Expenses, got.NetPayout)
	}
}

func TestCompute_RoundsCommission(t *testing.T) {
	items := []model.AuctionItem{{ID: "i1", IsSold: true, SoldPrice: model.DecimalPtr(d(33.33))}}
	got := settlement.Compute(items, d(12.5), nil)

	// 33.33 * 12.5% = 4.16625
	if got.Commission.StringFixed(2) != "4.17" || got.NetPayout.StringFixed(2) != "29.16" {
		t.Errorf("expected commission 4.17 and net 29.16, got %s and %s", got.Commission, got.NetPayout)
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	st := seed(t,
		lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(3000)},
		lot{id: "i2", auction: "auc-1", seller: "seller-1", sold: price(2000)},
		lot{id: "i3", auction: "auc-1", seller: "seller-1"},
		lot{id: "i4", auction: "auc-1", seller: "seller-2", sold: price(999)},
	)
	notes := &recorder{}
	gen := newGenerator(st, notes)

	stl := generate(t, gen, settlement.GenerateInput{
		SellerID:       "seller-1",
		CommissionRate: d(10),
		Adjustments: []model.Adjustment{
			{Type: model.AdjustmentExpense, Amount: d(50), Note: "photography"},
			{Type: model.AdjustmentDeduction, Amount: d(20)},
		},
	})

	if stl.Status != model.SettlementDraft || stl.Reference != "STL-2026-000001" {
		t.Errorf("expected draft STL-2026-000001, got %s %s", stl.Status, stl.Reference)
	}
	if !stl.TotalSales.Equal(d(5000)) || !stl.Commission.Equal(d(500)) ||
		!stl.Expenses.Equal(d(70)) || !stl.NetPayout.Equal(d(4430)) {
		t.Errorf("unexpected totals sales=%s commission=%s expenses=%s net=%s",
			stl.TotalSales, stl.Commission, stl.Expenses, stl.NetPayout)
	}
	ids := slices.Sorted(slices.Values(stl.ItemIDs))
	if !slices.Equal(ids, []string{"i1", "i2", "i3"}) {
		t.Errorf("expected i1..i3 settled, got %v", stl.ItemIDs)
	}

	for _, id := range ids {
		it, err := st.GetItem(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if it.SettlementID == nil || *it.SettlementID != stl.ID {
			t.Errorf("%s not linked to %s", id, stl.ID)
		}
	}
	if other, _ := st.GetItem(ctx, "i4"); other.SettlementID != nil {
		t.Error("another seller's item was settled")
	}

	if got := notes.types(); !slices.Equal(got, []notify.EventType{notify.SettlementGenerated}) {
		t.Errorf("unexpected events %v", got)
	}

	_, err := gen.Generate(ctx, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})
	if !errors.Is(err, settlement.ErrNoItems) || !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected no items, got %v", err)
	}

	next := generate(t, gen, settlement.GenerateInput{SellerID: "seller-2", CommissionRate: d(0)})
	ref, err := reference.ParseSettlementRef(next.Reference)
	if err != nil {
		t.Fatal(err)
	}
	if next.Reference != "STL-2026-000002" || ref.Sequence != 2 {
		t.Errorf("expected second reference, got %s", next.Reference)
	}
}

func TestGenerate_ScopedToAuction(t *testing.T) {
	st := seed(t,
		lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(100)},
		lot{id: "i2", auction: "auc-2", seller: "seller-1", sold: price(200)},
	)
	gen := newGenerator(st, nil)

	auc := "auc-2"
	stl := generate(t, gen, settlement.GenerateInput{SellerID: "seller-1", AuctionID: &auc, CommissionRate: d(5)})
	if !slices.Equal(stl.ItemIDs, []string{"i2"}) {
		t.Errorf("expected [i2], got %v", stl.ItemIDs)
	}
	if !stl.TotalSales.Equal(d(200)) || !stl.Commission.Equal(d(10)) {
		t.Errorf("expected sales 200 and commission 10, got %s and %s", stl.TotalSales, stl.Commission)
	}
}

func TestGenerate_WaitsForAuctionClose(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.CreateAuction(ctx, &model.Auction{ID: "auc-1", Status: model.AuctionLive, CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateItem(ctx, &model.AuctionItem{ID: "i1", AuctionID: "auc-1", SellerID: "seller-1", BasePrice: d(100), CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	gen := newGenerator(st, nil)

	_, err := gen.Generate(ctx, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})
	if !errors.Is(err, settlement.ErrNoItems) {
		t.Fatalf("a live auction's items must not be settled, got %v", err)
	}
	if it, _ := st.GetItem(ctx, "i1"); it.SettlementID != nil {
		t.Fatal("item was frozen into a settlement while its auction was live")
	}

	closedAt := t0.Add(time.Hour)
	if err := st.UpdateAuctionStatus(ctx, "auc-1", model.AuctionClosed, &closedAt); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkItemSold(ctx, "i1", d(500)); err != nil {
		t.Fatal(err)
	}

	stl := generate(t, gen, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})
	if !stl.TotalSales.Equal(d(500)) || !stl.NetPayout.Equal(d(450)) {
		t.Errorf("expected the sale in the settlement, got sales=%s net=%s", stl.TotalSales, stl.NetPayout)
	}
}

func TestGenerate_Validation(t *testing.T) {
	gen := newGenerator(store.NewMemoryStore(), nil)
	tests := []struct {
		name string
		in   settlement.GenerateInput
	}{
		{"missing seller", settlement.GenerateInput{CommissionRate: d(10)}},
		{"negative rate", settlement.GenerateInput{SellerID: "s", CommissionRate: d(-1)}},
		{"rate over 100", settlement.GenerateInput{SellerID: "s", CommissionRate: d(100.5)}},
		{"unknown adjustment type", settlement.GenerateInput{SellerID: "s", Adjustments: []model.Adjustment{{Type: "bonus", Amount: d(1)}}}},
		{"negative adjustment", settlement.GenerateInput{SellerID: "s", Adjustments: []model.Adjustment{{Type: model.AdjustmentExpense, Amount: d(-5)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := gen.Generate(context.Background(), tt.in); !errors.Is(err, model.ErrInvalid) {
				t.Errorf("expected invalid, got %v", err)
			}
		})
	}
}

// racingStore links one selected item to another settlement just before
// the generator links its own selection.
type racingStore struct {
	store.Store
}

func (s *racingStore) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	return s.Store.InTx(ctx, func(q store.Queries) error {
		return fn(&racingQueries{Queries: q})
	})
}

type racingQueries struct {
	store.Queries
}

func (q *racingQueries) LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error) {
	if _, err := q.Queries.LinkItemsToSettlement(ctx, "someone-else", itemIDs[:1]); err != nil {
		return 0, err
	}
	return q.Queries.LinkItemsToSettlement(ctx, settlementID, itemIDs)
}

func TestGenerate_LinkConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := seed(t,
		lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(100)},
		lot{id: "i2", auction: "auc-1", seller: "seller-1", sold: price(100)},
	)
	gen := newGenerator(&racingStore{Store: mem}, nil)

	_, err := gen.Generate(ctx, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	for _, id := range []string{"i1", "i2"} {
		if it, _ := mem.GetItem(ctx, id); it.SettlementID != nil {
			t.Errorf("%s must stay unsettled after rollback", id)
		}
	}
	if seq, _ := mem.NextSettlementSequence(ctx, 2026); seq != 1 {
		t.Errorf("sequence increment must roll back too, got %d", seq)
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	st := seed(t, lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(100)})
	notes := &recorder{}
	gen := newGenerator(st, notes)

	stl := generate(t, gen, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})

	if _, err := gen.MarkPaid(ctx, stl.ID); !errors.Is(err, model.ErrConflict) {
		t.Errorf("draft cannot be paid directly, got %v", err)
	}

	sub, err := gen.Submit(ctx, stl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != model.SettlementPendingPayment {
		t.Errorf("expected pending payment, got %s", sub.Status)
	}

	if _, err := gen.UpdateAdjustments(ctx, stl.ID, nil); !errors.Is(err, settlement.ErrNotDraft) {
		t.Errorf("expected not draft, got %v", err)
	}

	paid, err := gen.MarkPaid(ctx, stl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != model.SettlementPaid || paid.PaidAt == nil {
		t.Errorf("expected paid with paid_at, got %s %v", paid.Status, paid.PaidAt)
	}

	if _, err := gen.Cancel(ctx, stl.ID); !errors.Is(err, model.ErrConflict) {
		t.Errorf("paid is terminal, got %v", err)
	}

	got, err := gen.Get(ctx, stl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.SettlementPaid {
		t.Errorf("expected stored status paid, got %s", got.Status)
	}

	want := []notify.EventType{notify.SettlementGenerated, notify.SettlementSubmitted, notify.SettlementPaid}
	if got := notes.types(); !slices.Equal(got, want) {
		t.Errorf("expected events %v, got %v", want, got)
	}

	if _, err := gen.Submit(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCancelKeepsItemsLinked(t *testing.T) {
	ctx := context.Background()
	st := seed(t, lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(100)})
	gen := newGenerator(st, nil)

	stl := generate(t, gen, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})

	cancelled, err := gen.Cancel(ctx, stl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != model.SettlementCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	it, _ := st.GetItem(ctx, "i1")
	if it.SettlementID == nil || *it.SettlementID != stl.ID {
		t.Errorf("cancelled settlement must keep its items, got %v", it.SettlementID)
	}
}

func TestUpdateAdjustments_KeepsCommission(t *testing.T) {
	ctx := context.Background()
	st := seed(t,
		lot{id: "i1", auction: "auc-1", seller: "seller-1", sold: price(3000)},
		lot{id: "i2", auction: "auc-1", seller: "seller-1", sold: price(2000)},
	)
	gen := newGenerator(st, nil)

	stl := generate(t, gen, settlement.GenerateInput{SellerID: "seller-1", CommissionRate: d(10)})
	if !stl.NetPayout.Equal(d(4500)) {
		t.Fatalf("expected net 4500, got %s", stl.NetPayout)
	}

	updated, err := gen.UpdateAdjustments(ctx, stl.ID, []model.Adjustment{
		{Type: model.AdjustmentExpense, Amount: d(50)},
		{Type: model.AdjustmentDeduction, Amount: d(20)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Commission.Equal(d(500)) || !updated.Expenses.Equal(d(70)) || !updated.NetPayout.Equal(d(4430)) {
		t.Errorf("unexpected totals commission=%s expenses=%s net=%s",
			updated.Commission, updated.Expenses, updated.NetPayout)
	}
	if len(updated.Adjustments) != 2 {
		t.Errorf("expected 2 adjustments, got %d", len(updated.Adjustments))
	}

	got, err := gen.Get(ctx, stl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.NetPayout.Equal(d(4430)) {
		t.Errorf("stored net payout %s", got.NetPayout)
	}

	_, err = gen.UpdateAdjustments(ctx, stl.ID, []model.Adjustment{{Type: "refund", Amount: d(1)}})
	if !errors.Is(err, model.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}
