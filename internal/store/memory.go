package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// A transaction works on a copy of the whole state while holding the write
// lock; the copy replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// InTx runs fn against a private snapshot and commits it on success.
func (s *MemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.state.clone()
	if err := fn(snap); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = snap
	return nil
}

func view[T any](s *MemoryStore, fn func(st *memState) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *MemoryStore) write(fn func(st *memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// --- Auto-commit Queries ---

func (s *MemoryStore) CreateAuction(ctx context.Context, a *model.Auction) error {
	return s.write(func(st *memState) error { return st.CreateAuction(ctx, a) })
}

func (s *MemoryStore) GetAuction(ctx context.Context, id string) (*model.Auction, error) {
	return view(s, func(st *memState) (*model.Auction, error) { return st.GetAuction(ctx, id) })
}

func (s *MemoryStore) LockAuction(ctx context.Context, id string) (*model.Auction, error) {
	return s.GetAuction(ctx, id)
}

func (s *MemoryStore) UpdateAuctionStatus(ctx context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error {
	return s.write(func(st *memState) error { return st.UpdateAuctionStatus(ctx, id, status, closedAt) })
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *model.AuctionItem) error {
	return s.write(func(st *memState) error { return st.CreateItem(ctx, item) })
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	return view(s, func(st *memState) (*model.AuctionItem, error) { return st.GetItem(ctx, id) })
}

func (s *MemoryStore) LockItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	return s.GetItem(ctx, id)
}

func (s *MemoryStore) ListItemsByAuction(ctx context.Context, auctionID string) ([]model.AuctionItem, error) {
	return view(s, func(st *memState) ([]model.AuctionItem, error) { return st.ListItemsByAuction(ctx, auctionID) })
}

func (s *MemoryStore) ListItemsBySettlement(ctx context.Context, settlementID string) ([]model.AuctionItem, error) {
	return view(s, func(st *memState) ([]model.AuctionItem, error) { return st.ListItemsBySettlement(ctx, settlementID) })
}

func (s *MemoryStore) UpdateItemCurrentPrice(ctx context.Context, id string, price decimal.Decimal) error {
	return s.write(func(st *memState) error { return st.UpdateItemCurrentPrice(ctx, id, price) })
}

func (s *MemoryStore) MarkItemSold(ctx context.Context, id string, soldPrice decimal.Decimal) error {
	return s.write(func(st *memState) error { return st.MarkItemSold(ctx, id, soldPrice) })
}

func (s *MemoryStore) ListUnsettledItems(ctx context.Context, f ItemFilter) ([]model.AuctionItem, error) {
	return view(s, func(st *memState) ([]model.AuctionItem, error) { return st.ListUnsettledItems(ctx, f) })
}

func (s *MemoryStore) ListSellersWithUnsettledItems(ctx context.Context, auctionID *string) ([]string, error) {
	return view(s, func(st *memState) ([]string, error) { return st.ListSellersWithUnsettledItems(ctx, auctionID) })
}

func (s *MemoryStore) LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error) {
	var n int64
	err := s.write(func(st *memState) (err error) {
		n, err = st.LinkItemsToSettlement(ctx, settlementID, itemIDs)
		return err
	})
	return n, err
}

func (s *MemoryStore) InsertBid(ctx context.Context, bid *model.Bid) error {
	return s.write(func(st *memState) error { return st.InsertBid(ctx, bid) })
}

func (s *MemoryStore) ListBidsByItem(ctx context.Context, itemID string) ([]model.Bid, error) {
	return view(s, func(st *memState) ([]model.Bid, error) { return st.ListBidsByItem(ctx, itemID) })
}

func (s *MemoryStore) ListBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	return view(s, func(st *memState) ([]model.Bid, error) { return st.ListBidsByAuction(ctx, auctionID) })
}

func (s *MemoryStore) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	return s.write(func(st *memState) error { return st.CreateInvoice(ctx, inv) })
}

func (s *MemoryStore) CreateInvoiceLineItem(ctx context.Context, line *model.InvoiceLineItem) error {
	return s.write(func(st *memState) error { return st.CreateInvoiceLineItem(ctx, line) })
}

func (s *MemoryStore) FindInvoice(ctx context.Context, auctionID, bidderID string) (*model.Invoice, error) {
	return view(s, func(st *memState) (*model.Invoice, error) { return st.FindInvoice(ctx, auctionID, bidderID) })
}

func (s *MemoryStore) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	return view(s, func(st *memState) (*model.Invoice, error) { return st.GetInvoice(ctx, id) })
}

func (s *MemoryStore) ListInvoicesByAuction(ctx context.Context, auctionID string) ([]model.Invoice, error) {
	return view(s, func(st *memState) ([]model.Invoice, error) { return st.ListInvoicesByAuction(ctx, auctionID) })
}

func (s *MemoryStore) CountInvoicesByAuction(ctx context.Context, auctionID string) (int, error) {
	return view(s, func(st *memState) (int, error) { return st.CountInvoicesByAuction(ctx, auctionID) })
}

func (s *MemoryStore) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus, paidAt *time.Time) error {
	return s.write(func(st *memState) error { return st.UpdateInvoiceStatus(ctx, id, status, paidAt) })
}

func (s *MemoryStore) NextSettlementSequence(ctx context.Context, year int) (int64, error) {
	var n int64
	err := s.write(func(st *memState) (err error) {
		n, err = st.NextSettlementSequence(ctx, year)
		return err
	})
	return n, err
}

func (s *MemoryStore) CreateSettlement(ctx context.Context, stl *model.Settlement) error {
	return s.write(func(st *memState) error { return st.CreateSettlement(ctx, stl) })
}

func (s *MemoryStore) GetSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	return view(s, func(st *memState) (*model.Settlement, error) { return st.GetSettlement(ctx, id) })
}

func (s *MemoryStore) LockSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	return s.GetSettlement(ctx, id)
}

func (s *MemoryStore) UpdateSettlement(ctx context.Context, stl *model.Settlement) error {
	return s.write(func(st *memState) error { return st.UpdateSettlement(ctx, stl) })
}

// memState holds the data and implements Queries without locking. Values are
// stored by copy; pointer fields inside them are replaced, never mutated.
type memState struct {
	auctions     map[string]model.Auction
	items        map[string]model.AuctionItem
	bids         []model.Bid
	invoices     map[string]model.Invoice
	invoicePairs map[string]string // auction|bidder -> invoice id
	numbers      map[string]struct{}
	lines        map[string][]model.InvoiceLineItem
	settlements  map[string]model.Settlement
	references   map[string]struct{}
	sequences    map[int]int64
}

func newMemState() *memState {
	return &memState{
		auctions:     make(map[string]model.Auction),
		items:        make(map[string]model.AuctionItem),
		invoices:     make(map[string]model.Invoice),
		invoicePairs: make(map[string]string),
		numbers:      make(map[string]struct{}),
		lines:        make(map[string][]model.InvoiceLineItem),
		settlements:  make(map[string]model.Settlement),
		references:   make(map[string]struct{}),
		sequences:    make(map[int]int64),
	}
}

func (st *memState) clone() *memState {
	lines := make(map[string][]model.InvoiceLineItem, len(st.lines))
	for k, v := range st.lines {
		lines[k] = slices.Clone(v)
	}
	return &memState{
		auctions:     maps.Clone(st.auctions),
		items:        maps.Clone(st.items),
		bids:         slices.Clone(st.bids),
		invoices:     maps.Clone(st.invoices),
		invoicePairs: maps.Clone(st.invoicePairs),
		numbers:      maps.Clone(st.numbers),
		lines:        lines,
		settlements:  maps.Clone(st.settlements),
		references:   maps.Clone(st.references),
		sequences:    maps.Clone(st.sequences),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", model.ErrNotFound, kind, id)
}

func (st *memState) CreateAuction(_ context.Context, a *model.Auction) error {
	if _, ok := st.auctions[a.ID]; ok {
		return fmt.Errorf("%w: auction %s", model.ErrDuplicate, a.ID)
	}
	st.auctions[a.ID] = *a
	return nil
}

func (st *memState) GetAuction(_ context.Context, id string) (*model.Auction, error) {
	a, ok := st.auctions[id]
	if !ok {
		return nil, notFound("auction", id)
	}
	return &a, nil
}

func (st *memState) LockAuction(ctx context.Context, id string) (*model.Auction, error) {
	return st.GetAuction(ctx, id)
}

func (st *memState) UpdateAuctionStatus(_ context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error {
	a, ok := st.auctions[id]
	if !ok {
		return notFound("auction", id)
	}
	a.Status = status
	a.ClosedAt = closedAt
	st.auctions[id] = a
	return nil
}

func (st *memState) CreateItem(_ context.Context, item *model.AuctionItem) error {
	if _, ok := st.auctions[item.AuctionID]; !ok {
		return notFound("auction", item.AuctionID)
	}
	if _, ok := st.items[item.ID]; ok {
		return fmt.Errorf("%w: item %s", model.ErrDuplicate, item.ID)
	}
	st.items[item.ID] = *item
	return nil
}

func (st *memState) GetItem(_ context.Context, id string) (*model.AuctionItem, error) {
	it, ok := st.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	return &it, nil
}

func (st *memState) LockItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	return st.GetItem(ctx, id)
}

func (st *memState) filterItems(keep func(model.AuctionItem) bool) []model.AuctionItem {
	var out []model.AuctionItem
	for _, it := range st.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *memState) ListItemsByAuction(_ context.Context, auctionID string) ([]model.AuctionItem, error) {
	return st.filterItems(func(it model.AuctionItem) bool { return it.AuctionID == auctionID }), nil
}

func (st *memState) ListItemsBySettlement(_ context.Context, settlementID string) ([]model.AuctionItem, error) {
	return st.filterItems(func(it model.AuctionItem) bool {
		return it.SettlementID != nil && *it.SettlementID == settlementID
	}), nil
}

func (st *memState) UpdateItemCurrentPrice(_ context.Context, id string, price decimal.Decimal) error {
	it, ok := st.items[id]
	if !ok {
		return notFound("item", id)
	}
	it.CurrentPrice = model.DecimalPtr(price)
	st.items[id] = it
	return nil
}

func (st *memState) MarkItemSold(_ context.Context, id string, soldPrice decimal.Decimal) error {
	it, ok := st.items[id]
	if !ok {
		return notFound("item", id)
	}
	it.IsSold = true
	it.SoldPrice = model.DecimalPtr(soldPrice)
	st.items[id] = it
	return nil
}

func (st *memState) ListUnsettledItems(_ context.Context, f ItemFilter) ([]model.AuctionItem, error) {
	return st.filterItems(func(it model.AuctionItem) bool {
		if it.SellerID != f.SellerID || !st.settleable(it) {
			return false
		}
		return f.AuctionID == nil || it.AuctionID == *f.AuctionID
	}), nil
}

// settleable reports whether an item may enter a settlement: it has none
// yet and its auction is closed, so its sale outcome is final.
func (st *memState) settleable(it model.AuctionItem) bool {
	return it.SettlementID == nil && st.auctions[it.AuctionID].Status == model.AuctionClosed
}

func (st *memState) ListSellersWithUnsettledItems(_ context.Context, auctionID *string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, it := range st.items {
		if !st.settleable(it) {
			continue
		}
		if auctionID != nil && it.AuctionID != *auctionID {
			continue
		}
		seen[it.SellerID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (st *memState) LinkItemsToSettlement(_ context.Context, settlementID string, itemIDs []string) (int64, error) {
	var n int64
	for _, id := range itemIDs {
		it, ok := st.items[id]
		if !ok || it.SettlementID != nil {
			continue
		}
		sid := settlementID
		it.SettlementID = &sid
		st.items[id] = it
		n++
	}
	return n, nil
}

func (st *memState) InsertBid(_ context.Context, bid *model.Bid) error {
	if _, ok := st.items[bid.ItemID]; !ok {
		return notFound("item", bid.ItemID)
	}
	st.bids = append(st.bids, *bid)
	return nil
}

func sortLedger(bids []model.Bid) {
	sort.Slice(bids, func(i, j int) bool {
		a, b := bids[i], bids[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (st *memState) ListBidsByItem(_ context.Context, itemID string) ([]model.Bid, error) {
	var out []model.Bid
	for _, b := range st.bids {
		if b.ItemID == itemID {
			out = append(out, b)
		}
	}
	sortLedger(out)
	return out, nil
}

func (st *memState) ListBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	var out []model.Bid
	for _, b := range st.bids {
		if st.items[b.ItemID].AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sortLedger(out)
	return out, nil
}

func pairKey(auctionID, bidderID string) string { return auctionID + "|" + bidderID }

func (st *memState) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	key := pairKey(inv.AuctionID, inv.BidderID)
	if _, ok := st.invoicePairs[key]; ok {
		return fmt.Errorf("%w: invoice for auction %s bidder %s", model.ErrDuplicate, inv.AuctionID, inv.BidderID)
	}
	if _, ok := st.numbers[inv.Number]; ok {
		return fmt.Errorf("%w: invoice number %s", model.ErrDuplicate, inv.Number)
	}
	header := *inv
	header.LineItems = nil
	st.invoices[inv.ID] = header
	st.invoicePairs[key] = inv.ID
	st.numbers[inv.Number] = struct{}{}
	return nil
}

func (st *memState) CreateInvoiceLineItem(_ context.Context, line *model.InvoiceLineItem) error {
	if _, ok := st.invoices[line.InvoiceID]; !ok {
		return notFound("invoice", line.InvoiceID)
	}
	for _, lines := range st.lines {
		for _, l := range lines {
			if l.ItemID == line.ItemID {
				return fmt.Errorf("%w: item %s already invoiced", model.ErrDuplicate, line.ItemID)
			}
		}
	}
	st.lines[line.InvoiceID] = append(st.lines[line.InvoiceID], *line)
	return nil
}

func (st *memState) withLines(inv model.Invoice) *model.Invoice {
	inv.LineItems = slices.Clone(st.lines[inv.ID])
	return &inv
}

func (st *memState) FindInvoice(_ context.Context, auctionID, bidderID string) (*model.Invoice, error) {
	id, ok := st.invoicePairs[pairKey(auctionID, bidderID)]
	if !ok {
		return nil, fmt.Errorf("%w: invoice for auction %s bidder %s", model.ErrNotFound, auctionID, bidderID)
	}
	return st.withLines(st.invoices[id]), nil
}

func (st *memState) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	inv, ok := st.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	return st.withLines(inv), nil
}

func (st *memState) ListInvoicesByAuction(_ context.Context, auctionID string) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range st.invoices {
		if inv.AuctionID == auctionID {
			out = append(out, *st.withLines(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BidderID < out[j].BidderID })
	return out, nil
}

func (st *memState) CountInvoicesByAuction(_ context.Context, auctionID string) (int, error) {
	n := 0
	for _, inv := range st.invoices {
		if inv.AuctionID == auctionID {
			n++
		}
	}
	return n, nil
}

func (st *memState) UpdateInvoiceStatus(_ context.Context, id string, status model.InvoiceStatus, paidAt *time.Time) error {
	inv, ok := st.invoices[id]
	if !ok {
		return notFound("invoice", id)
	}
	inv.Status = status
	inv.PaidAt = paidAt
	st.invoices[id] = inv
	return nil
}

func (st *memState) NextSettlementSequence(_ context.Context, year int) (int64, error) {
	st.sequences[year]++
	return st.sequences[year], nil
}

func (st *memState) CreateSettlement(_ context.Context, stl *model.Settlement) error {
	if _, ok := st.settlements[stl.ID]; ok {
		return fmt.Errorf("%w: settlement %s", model.ErrDuplicate, stl.ID)
	}
	if _, ok := st.references[stl.Reference]; ok {
		return fmt.Errorf("%w: settlement reference %s", model.ErrDuplicate, stl.Reference)
	}
	cp := *stl
	cp.Adjustments = slices.Clone(stl.Adjustments)
	cp.ItemIDs = nil
	st.settlements[stl.ID] = cp
	st.references[stl.Reference] = struct{}{}
	return nil
}

func (st *memState) GetSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	stl, ok := st.settlements[id]
	if !ok {
		return nil, notFound("settlement", id)
	}
	stl.Adjustments = slices.Clone(stl.Adjustments)
	items, _ := st.ListItemsBySettlement(ctx, id)
	stl.ItemIDs = make([]string, 0, len(items))
	for _, it := range items {
		stl.ItemIDs = append(stl.ItemIDs, it.ID)
	}
	return &stl, nil
}

func (st *memState) LockSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	return st.GetSettlement(ctx, id)
}

func (st *memState) UpdateSettlement(_ context.Context, stl *model.Settlement) error {
	cur, ok := st.settlements[stl.ID]
	if !ok {
		return notFound("settlement", stl.ID)
	}
	cur.Status = stl.Status
	cur.Adjustments = slices.Clone(stl.Adjustments)
	cur.Expenses = stl.Expenses
	cur.NetPayout = stl.NetPayout
	cur.PaidAt = stl.PaidAt
	st.settlements[stl.ID] = cur
	return nil
}
