package proxy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/atmx/auction-settlement/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func bid(id, bidder string, amount float64, sec int) model.Bid {
	return model.Bid{
		ID:        id,
		ItemID:    "item-1",
		BidderID:  bidder,
		Amount:    d(amount),
		CreatedAt: t0.Add(time.Duration(sec) * time.Second),
	}
}

// --- Increment tiers ---

func TestIncrementFor_Tiers(t *testing.T) {
	tests := []struct {
		price, want float64
	}{
		{0, 2},
		{49.99, 2},
		{50, 5},
		{99, 5},
		{100, 10},
		{249.99, 10},
		{250, 25},
		{999, 25},
		{1000, 50},
		{25000, 50},
	}
	for _, tt := range tests {
		got := IncrementFor(d(tt.price))
		if !got.Equal(d(tt.want)) {
			t.Errorf("IncrementFor(%v) = %s, want %v", tt.price, got, tt.want)
		}
	}
}

func TestNextMinimumBid(t *testing.T) {
	if got := NextMinimumBid(d(100)); !got.Equal(d(110)) {
		t.Errorf("expected 110, got %s", got)
	}
	if got := NextMinimumBid(d(48)); !got.Equal(d(50)) {
		t.Errorf("expected 50, got %s", got)
	}
}

// --- Display price ---

func TestResolveDisplayPrice_NoSecondBidder(t *testing.T) {
	got := ResolveDisplayPrice(d(500), decimal.Zero, d(100))
	if !got.Equal(d(100)) {
		t.Errorf("lone bidder should see base price, got %s", got)
	}
}

func TestResolveDisplayPrice_OneIncrementAboveRunnerUp(t *testing.T) {
	got := ResolveDisplayPrice(d(500), d(150), d(100))
	if !got.Equal(d(160)) {
		t.Errorf("expected 160, got %s", got)
	}
}

func TestResolveDisplayPrice_CappedAtLeaderMax(t *testing.T) {
	got := ResolveDisplayPrice(d(155), d(150), d(100))
	if !got.Equal(d(155)) {
		t.Errorf("display price must not exceed leader max, got %s", got)
	}
}

func TestResolveDisplayPrice_TieResolvesToTiedValue(t *testing.T) {
	got := ResolveDisplayPrice(d(150), d(150), d(100))
	if !got.Equal(d(150)) {
		t.Errorf("tied maximums should display the tied value, got %s", got)
	}
}

// --- Standing ---

func TestComputeStanding_Empty(t *testing.T) {
	st := ComputeStanding(nil, d(100))
	if st.Leader != nil {
		t.Error("expected no leader")
	}
	if !st.DisplayPrice.Equal(d(100)) {
		t.Errorf("expected base price, got %s", st.DisplayPrice)
	}
}

func TestComputeStanding_SingleBidderRaisingOwnMax(t *testing.T) {
	bids := []model.Bid{
		bid("b1", "alice", 200, 1),
		bid("b2", "alice", 500, 2),
	}
	st := ComputeStanding(bids, d(100))

	if st.Bidders != 1 {
		t.Fatalf("expected 1 bidder, got %d", st.Bidders)
	}
	if !st.DisplayPrice.Equal(d(100)) {
		t.Errorf("own rebid should not raise display price, got %s", st.DisplayPrice)
	}
	if st.Leader.ID != "b2" {
		t.Errorf("expected leader bid b2, got %s", st.Leader.ID)
	}
}

func TestComputeStanding_TieGoesToEarlierBid(t *testing.T) {
	bids := []model.Bid{
		bid("b1", "alice", 100, 1),
		bid("b2", "bob", 150, 2),
		bid("b3", "alice", 150, 3),
	}
	st := ComputeStanding(bids, d(50))

	if st.Leader.BidderID != "bob" {
		t.Errorf("expected bob to lead on earlier equal bid, got %s", st.Leader.BidderID)
	}
	if !st.DisplayPrice.Equal(d(150)) {
		t.Errorf("expected display 150, got %s", st.DisplayPrice)
	}
}

func TestComputeStanding_RunnerUpFromOtherBidder(t *testing.T) {
	bids := []model.Bid{
		bid("b1", "alice", 400, 1),
		bid("b2", "alice", 450, 2),
		bid("b3", "bob", 120, 3),
	}
	st := ComputeStanding(bids, d(100))

	if !st.SecondMax.Equal(d(120)) {
		t.Errorf("runner-up should be bob's 120, got %s", st.SecondMax)
	}
	if !st.DisplayPrice.Equal(d(130)) {
		t.Errorf("expected 130, got %s", st.DisplayPrice)
	}
}

// --- Properties ---

func TestProperty_IncrementPositiveAndNextBidAdvances(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 10_000_000).Draw(t, "cents")
		p := decimal.New(cents, -2)

		if !IncrementFor(p).IsPositive() {
			t.Fatalf("increment for %s must be positive", p)
		}
		if !NextMinimumBid(p).GreaterThan(p) {
			t.Fatalf("next minimum bid must exceed %s", p)
		}
	})
}

func TestProperty_DisplayPriceWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := decimal.NewFromInt(rapid.Int64Range(1, 5000).Draw(t, "base"))
		second := base.Add(decimal.NewFromInt(rapid.Int64Range(1, 5000).Draw(t, "secondOver")))
		highest := second.Add(decimal.NewFromInt(rapid.Int64Range(0, 5000).Draw(t, "gap")))

		got := ResolveDisplayPrice(highest, second, base)
		if got.LessThan(base) || got.GreaterThan(highest) {
			t.Fatalf("display %s outside [%s, %s]", got, base, highest)
		}

		if lone := ResolveDisplayPrice(highest, decimal.Zero, base); !lone.Equal(base) {
			t.Fatalf("lone bidder display %s != base %s", lone, base)
		}
	})
}
