package bidding_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/bidding"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/proxy"
	"github.com/atmx/auction-settlement/internal/store"
)

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

type fixture struct {
	store *store.MemoryStore
	svc   *bidding.Service
	notes *recorder
}

func setup(t *testing.T, status model.AuctionStatus) fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := st.CreateAuction(ctx, &model.Auction{ID: "auc-1", Status: status, CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateItem(ctx, &model.AuctionItem{ID: "item-1", AuctionID: "auc-1", SellerID: "seller-1", BasePrice: d(100), CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}

	tick := t0
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	notes := &recorder{}
	return fixture{store: st, svc: bidding.NewService(st, notes).WithClock(clock), notes: notes}
}

func (f fixture) place(t *testing.T, bidder string, amount float64) (*bidding.Receipt, error) {
	t.Helper()
	return f.svc.PlaceBid(context.Background(), bidding.PlaceBidInput{ItemID: "item-1", BidderID: bidder, Amount: d(amount)})
}

func (f fixture) currentPrice(t *testing.T) decimal.Decimal {
	t.Helper()
	it, err := f.store.GetItem(context.Background(), "item-1")
	if err != nil {
		t.Fatal(err)
	}
	if it.CurrentPrice == nil {
		t.Fatal("expected current price to be set")
	}
	return *it.CurrentPrice
}

func TestPlaceBid_LoneBidderSeesBasePrice(t *testing.T) {
	f := setup(t, model.AuctionLive)

	r, err := f.place(t, "alice", 500)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	if !r.CurrentPrice.Equal(d(100)) {
		t.Errorf("expected display price 100, got %s", r.CurrentPrice)
	}
	if !r.Leading {
		t.Error("expected alice to lead")
	}
	if !f.currentPrice(t).Equal(d(100)) {
		t.Errorf("stored price should be 100, got %s", f.currentPrice(t))
	}
}

func TestPlaceBid_SecondBidderRaisesPriceOneIncrement(t *testing.T) {
	f := setup(t, model.AuctionLive)

	if _, err := f.place(t, "alice", 500); err != nil {
		t.Fatal(err)
	}
	r, err := f.place(t, "bob", 150)
	if err != nil {
		t.Fatalf("bob's bid above current price must be accepted: %v", err)
	}
	if r.Leading {
		t.Error("bob should not lead below alice's maximum")
	}
	// 150 + 10 increment
	if !r.CurrentPrice.Equal(d(160)) {
		t.Errorf("expected 160, got %s", r.CurrentPrice)
	}
}

func TestPlaceBid_AtOrBelowCurrentPriceIsConflict(t *testing.T) {
	f := setup(t, model.AuctionLive)

	if _, err := f.place(t, "alice", 200); err != nil {
		t.Fatal(err)
	}
	if _, err := f.place(t, "bob", 150); err != nil {
		t.Fatal(err)
	}
	price := f.currentPrice(t) // 160

	_, err := f.place(t, "carol", 160)
	if !errors.Is(err, bidding.ErrBidTooLow) || !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected too-low conflict, got %v", err)
	}
	if !f.currentPrice(t).Equal(price) {
		t.Errorf("rejected bid must not move price: %s -> %s", price, f.currentPrice(t))
	}

	bids, _ := f.store.ListBidsByItem(context.Background(), "item-1")
	if len(bids) != 2 {
		t.Errorf("rejected bid must not reach the ledger, got %d bids", len(bids))
	}
}

func TestPlaceBid_AtBasePriceIsConflict(t *testing.T) {
	f := setup(t, model.AuctionLive)
	if _, err := f.place(t, "alice", 100); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict at base price, got %v", err)
	}
}

func TestPlaceBid_AuctionNotLive(t *testing.T) {
	for _, status := range []model.AuctionStatus{model.AuctionUpcoming, model.AuctionClosed} {
		f := setup(t, status)
		_, err := f.place(t, "alice", 150)
		if !errors.Is(err, bidding.ErrAuctionNotLive) {
			t.Errorf("%s: expected ErrAuctionNotLive, got %v", status, err)
		}
	}
}

func TestPlaceBid_ItemNotFound(t *testing.T) {
	f := setup(t, model.AuctionLive)
	_, err := f.svc.PlaceBid(context.Background(), bidding.PlaceBidInput{ItemID: "nope", BidderID: "alice", Amount: d(150)})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceBid_InvalidInput(t *testing.T) {
	f := setup(t, model.AuctionLive)
	tests := []bidding.PlaceBidInput{
		{ItemID: "", BidderID: "alice", Amount: d(150)},
		{ItemID: "item-1", BidderID: "", Amount: d(150)},
		{ItemID: "item-1", BidderID: "alice", Amount: d(0)},
		{ItemID: "item-1", BidderID: "alice", Amount: d(-5)},
		{ItemID: "item-1", BidderID: "alice", Amount: d(150.123)},
	}
	for _, in := range tests {
		if _, err := f.svc.PlaceBid(context.Background(), in); !errors.Is(err, model.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", in, err)
		}
	}
}

func TestPlaceBid_NotifiesWithoutLeakingMaximum(t *testing.T) {
	f := setup(t, model.AuctionLive)
	if _, err := f.place(t, "alice", 900); err != nil {
		t.Fatal(err)
	}

	if len(f.notes.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.notes.events))
	}
	e := f.notes.events[0]
	if e.Type != notify.BidPlaced || e.AuctionID != "auc-1" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Amount != "100.00" {
		t.Errorf("event should carry the display price, got %s", e.Amount)
	}
}

func TestPlaceBid_ConcurrentBidsKeepPriceConsistent(t *testing.T) {
	f := setup(t, model.AuctionLive)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Rejections are expected once the price passes an amount.
			f.place(t, fmt.Sprintf("bidder-%d", i%5), float64(110+i*15))
		}(i)
	}
	wg.Wait()

	ctx := context.Background()
	bids, _ := f.store.ListBidsByItem(ctx, "item-1")
	if len(bids) == 0 {
		t.Fatal("expected at least one accepted bid")
	}
	want := proxy.ComputeStanding(bids, d(100)).DisplayPrice
	if got := f.currentPrice(t); got.LessThan(want) {
		t.Errorf("stored price %s below ledger standing %s", got, want)
	}
	for _, b := range bids {
		if !b.Amount.GreaterThan(d(100)) {
			t.Errorf("bid %s at %s accepted at or below base", b.ID, b.Amount)
		}
	}
}
