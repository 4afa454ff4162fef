package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision and
// cross the wire as text.
type PostgresStore struct {
	pgQueries
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgQueries: pgQueries{q: pool}, pool: pool}
}

// InTx runs fn inside a pgx transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgQueries{q: tx})
	})
	if err == nil {
		return nil
	}
	// Errors from fn are already translated; only driver errors need mapping.
	if isDomainErr(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return translate("transaction", err)
}

type pgQueries struct {
	q querier
}

func isDomainErr(err error) bool {
	return errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrInvalid) || errors.Is(err, model.ErrUnavailable)
}

// translate maps driver errors onto the model error taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w: %s", op, model.ErrDuplicate, pgErr.ConstraintName)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %v", op, model.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- NUMERIC helpers ---

func numArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseNum(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func parseNumPtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d := parseNum(*s)
	return &d
}

// --- Auctions ---

const auctionCols = `id, title, status, created_at, closed_at`

func scanAuction(row pgx.Row) (*model.Auction, error) {
	var a model.Auction
	var status string
	if err := row.Scan(&a.ID, &a.Title, &status, &a.CreatedAt, &a.ClosedAt); err != nil {
		return nil, err
	}
	a.Status = model.AuctionStatus(status)
	return &a, nil
}

func (p *pgQueries) CreateAuction(ctx context.Context, a *model.Auction) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO auctions (id, title, status, created_at, closed_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Title, string(a.Status), a.CreatedAt, a.ClosedAt)
	return translate("create auction "+a.ID, err)
}

func (p *pgQueries) GetAuction(ctx context.Context, id string) (*model.Auction, error) {
	a, err := scanAuction(p.q.QueryRow(ctx, `SELECT `+auctionCols+` FROM auctions WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get auction "+id, err)
	}
	return a, nil
}

func (p *pgQueries) LockAuction(ctx context.Context, id string) (*model.Auction, error) {
	a, err := scanAuction(p.q.QueryRow(ctx, `SELECT `+auctionCols+` FROM auctions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate("lock auction "+id, err)
	}
	return a, nil
}

func (p *pgQueries) UpdateAuctionStatus(ctx context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE auctions SET status = $2, closed_at = $3 WHERE id = $1`,
		id, string(status), closedAt)
	if err != nil {
		return translate("update auction "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update auction %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// --- Items ---

var itemCols = []string{
	"id", "auction_id", "seller_id", "title", "base_price::TEXT",
	"current_price::TEXT", "reserve_price::TEXT",
	"buyers_premium_percent::TEXT", "tax_percent::TEXT",
	"is_sold", "sold_price::TEXT", "settlement_id", "created_at",
}

func scanItem(row pgx.Row) (*model.AuctionItem, error) {
	var it model.AuctionItem
	var base string
	var current, reserve, premium, tax, sold *string
	if err := row.Scan(&it.ID, &it.AuctionID, &it.SellerID, &it.Title, &base,
		&current, &reserve, &premium, &tax,
		&it.IsSold, &sold, &it.SettlementID, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.BasePrice = parseNum(base)
	it.CurrentPrice = parseNumPtr(current)
	it.ReservePrice = parseNumPtr(reserve)
	it.BuyersPremiumPercent = parseNumPtr(premium)
	it.TaxPercent = parseNumPtr(tax)
	it.SoldPrice = parseNumPtr(sold)
	return &it, nil
}

func (p *pgQueries) queryItems(ctx context.Context, op string, b sq.SelectBuilder) ([]model.AuctionItem, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err)
	}
	defer rows.Close()

	var items []model.AuctionItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, translate(op, err)
		}
		items = append(items, *it)
	}
	return items, translate(op, rows.Err())
}

func selectItems() sq.SelectBuilder {
	return psql.Select(itemCols...).From("auction_items").OrderBy("created_at", "id")
}

func (p *pgQueries) CreateItem(ctx context.Context, it *model.AuctionItem) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO auction_items
		   (id, auction_id, seller_id, title, base_price, current_price, reserve_price,
		    buyers_premium_percent, tax_percent, is_sold, sold_price, settlement_id, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		         $8::NUMERIC, $9::NUMERIC, $10, $11::NUMERIC, $12, $13)`,
		it.ID, it.AuctionID, it.SellerID, it.Title, it.BasePrice.String(),
		numArg(it.CurrentPrice), numArg(it.ReservePrice),
		numArg(it.BuyersPremiumPercent), numArg(it.TaxPercent),
		it.IsSold, numArg(it.SoldPrice), it.SettlementID, it.CreatedAt)
	return translate("create item "+it.ID, err)
}

func (p *pgQueries) GetItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	query, args, err := psql.Select(itemCols...).From("auction_items").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	it, err := scanItem(p.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate("get item "+id, err)
	}
	return it, nil
}

func (p *pgQueries) LockItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	query, args, err := psql.Select(itemCols...).From("auction_items").
		Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	it, err := scanItem(p.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate("lock item "+id, err)
	}
	return it, nil
}

func (p *pgQueries) ListItemsByAuction(ctx context.Context, auctionID string) ([]model.AuctionItem, error) {
	return p.queryItems(ctx, "list items of auction "+auctionID,
		selectItems().Where(sq.Eq{"auction_id": auctionID}))
}

func (p *pgQueries) ListItemsBySettlement(ctx context.Context, settlementID string) ([]model.AuctionItem, error) {
	return p.queryItems(ctx, "list items of settlement "+settlementID,
		selectItems().Where(sq.Eq{"settlement_id": settlementID}))
}

func (p *pgQueries) UpdateItemCurrentPrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE auction_items SET current_price = $2::NUMERIC WHERE id = $1`, id, price.String())
	if err != nil {
		return translate("update current price "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update current price %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (p *pgQueries) MarkItemSold(ctx context.Context, id string, soldPrice decimal.Decimal) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE auction_items SET is_sold = TRUE, sold_price = $2::NUMERIC WHERE id = $1`,
		id, soldPrice.String())
	if err != nil {
		return translate("mark item sold "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark item sold %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// unsettled selects items with no settlement whose auction is closed, so a
// settlement never freezes a lot that can still sell.
func unsettled(auctionID *string) sq.Sqlizer {
	cond := sq.And{
		sq.Eq{"settlement_id": nil},
		sq.Expr("auction_id IN (SELECT id FROM auctions WHERE status = ?)", string(model.AuctionClosed)),
	}
	if auctionID != nil {
		cond = append(cond, sq.Eq{"auction_id": *auctionID})
	}
	return cond
}

func (p *pgQueries) ListUnsettledItems(ctx context.Context, f ItemFilter) ([]model.AuctionItem, error) {
	return p.queryItems(ctx, "list unsettled items of seller "+f.SellerID,
		selectItems().Where(sq.Eq{"seller_id": f.SellerID}).Where(unsettled(f.AuctionID)).Suffix("FOR UPDATE"))
}

func (p *pgQueries) ListSellersWithUnsettledItems(ctx context.Context, auctionID *string) ([]string, error) {
	query, args, err := psql.Select("DISTINCT seller_id").From("auction_items").
		Where(unsettled(auctionID)).OrderBy("seller_id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list sellers", err)
	}
	defer rows.Close()

	var sellers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translate("list sellers", err)
		}
		sellers = append(sellers, id)
	}
	return sellers, translate("list sellers", rows.Err())
}

func (p *pgQueries) LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	query, args, err := psql.Update("auction_items").
		Set("settlement_id", settlementID).
		Where(sq.Eq{"id": itemIDs, "settlement_id": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := p.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, translate("link items to settlement "+settlementID, err)
	}
	return tag.RowsAffected(), nil
}

// --- Immutable bid ledger ---

func (p *pgQueries) InsertBid(ctx context.Context, b *model.Bid) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO bids (id, item_id, bidder_id, amount, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		b.ID, b.ItemID, b.BidderID, b.Amount.String(), b.CreatedAt)
	return translate("insert bid "+b.ID, err)
}

func (p *pgQueries) queryBids(ctx context.Context, op, query string, arg string) ([]model.Bid, error) {
	rows, err := p.q.Query(ctx, query, arg)
	if err != nil {
		return nil, translate(op, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		var amount string
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BidderID, &amount, &b.CreatedAt); err != nil {
			return nil, translate(op, err)
		}
		b.Amount = parseNum(amount)
		bids = append(bids, b)
	}
	return bids, translate(op, rows.Err())
}

func (p *pgQueries) ListBidsByItem(ctx context.Context, itemID string) ([]model.Bid, error) {
	return p.queryBids(ctx, "list bids of item "+itemID,
		`SELECT id, item_id, bidder_id, amount::TEXT, created_at
		 FROM bids WHERE item_id = $1
		 ORDER BY amount DESC, created_at ASC, id ASC`, itemID)
}

func (p *pgQueries) ListBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	return p.queryBids(ctx, "list bids of auction "+auctionID,
		`SELECT b.id, b.item_id, b.bidder_id, b.amount::TEXT, b.created_at
		 FROM bids b JOIN auction_items i ON i.id = b.item_id
		 WHERE i.auction_id = $1
		 ORDER BY b.amount DESC, b.created_at ASC, b.id ASC`, auctionID)
}

// --- Invoices ---

const invoiceCols = `id, number, auction_id, bidder_id, subtotal::TEXT, total_amount::TEXT,
	status, created_at, paid_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	var subtotal, total, status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.AuctionID, &inv.BidderID,
		&subtotal, &total, &status, &inv.CreatedAt, &inv.PaidAt); err != nil {
		return nil, err
	}
	inv.Subtotal = parseNum(subtotal)
	inv.TotalAmount = parseNum(total)
	inv.Status = model.InvoiceStatus(status)
	return &inv, nil
}

func (p *pgQueries) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO invoices (id, number, auction_id, bidder_id, subtotal, total_amount, status, created_at, paid_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, $9)`,
		inv.ID, inv.Number, inv.AuctionID, inv.BidderID,
		inv.Subtotal.String(), inv.TotalAmount.String(),
		string(inv.Status), inv.CreatedAt, inv.PaidAt)
	return translate("create invoice "+inv.Number, err)
}

func (p *pgQueries) CreateInvoiceLineItem(ctx context.Context, l *model.InvoiceLineItem) error {
	_, err := p.q.Exec(ctx,
		`INSERT INTO invoice_line_items
		   (id, invoice_id, item_id, bid_id, bid_amount, buyers_premium, tax_amount, line_total)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC)`,
		l.ID, l.InvoiceID, l.ItemID, l.BidID,
		l.BidAmount.String(), l.BuyersPremium.String(), l.TaxAmount.String(), l.LineTotal.String())
	return translate("create line item for item "+l.ItemID, err)
}

func (p *pgQueries) loadLines(ctx context.Context, inv *model.Invoice) error {
	rows, err := p.q.Query(ctx,
		`SELECT id, invoice_id, item_id, bid_id, bid_amount::TEXT, buyers_premium::TEXT,
		        tax_amount::TEXT, line_total::TEXT
		 FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return translate("load line items", err)
	}
	defer rows.Close()

	inv.LineItems = nil
	for rows.Next() {
		var l model.InvoiceLineItem
		var amount, premium, tax, total string
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ItemID, &l.BidID, &amount, &premium, &tax, &total); err != nil {
			return translate("load line items", err)
		}
		l.BidAmount = parseNum(amount)
		l.BuyersPremium = parseNum(premium)
		l.TaxAmount = parseNum(tax)
		l.LineTotal = parseNum(total)
		inv.LineItems = append(inv.LineItems, l)
	}
	return translate("load line items", rows.Err())
}

func (p *pgQueries) FindInvoice(ctx context.Context, auctionID, bidderID string) (*model.Invoice, error) {
	inv, err := scanInvoice(p.q.QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE auction_id = $1 AND bidder_id = $2`, auctionID, bidderID))
	if err != nil {
		return nil, translate("find invoice", err)
	}
	return inv, p.loadLines(ctx, inv)
}

func (p *pgQueries) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	inv, err := scanInvoice(p.q.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get invoice "+id, err)
	}
	return inv, p.loadLines(ctx, inv)
}

func (p *pgQueries) ListInvoicesByAuction(ctx context.Context, auctionID string) ([]model.Invoice, error) {
	rows, err := p.q.Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE auction_id = $1 ORDER BY bidder_id`, auctionID)
	if err != nil {
		return nil, translate("list invoices", err)
	}
	var invoices []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, translate("list invoices", err)
		}
		invoices = append(invoices, *inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate("list invoices", err)
	}

	for i := range invoices {
		if err := p.loadLines(ctx, &invoices[i]); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (p *pgQueries) CountInvoicesByAuction(ctx context.Context, auctionID string) (int, error) {
	var n int
	err := p.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE auction_id = $1`, auctionID).Scan(&n)
	return n, translate("count invoices", err)
}

func (p *pgQueries) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus, paidAt *time.Time) error {
	tag, err := p.q.Exec(ctx,
		`UPDATE invoices SET status = $2, paid_at = $3 WHERE id = $1`, id, string(status), paidAt)
	if err != nil {
		return translate("update invoice "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// --- Settlements ---

func (p *pgQueries) NextSettlementSequence(ctx context.Context, year int) (int64, error) {
	var n int64
	err := p.q.QueryRow(ctx,
		`INSERT INTO settlement_sequences (year, last_value) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = settlement_sequences.last_value + 1
		 RETURNING last_value`, year).Scan(&n)
	return n, translate("next settlement sequence", err)
}

func (p *pgQueries) CreateSettlement(ctx context.Context, s *model.Settlement) error {
	adj, err := json.Marshal(adjustmentsOrEmpty(s.Adjustments))
	if err != nil {
		return fmt.Errorf("encode adjustments: %w", err)
	}
	_, err = p.q.Exec(ctx,
		`INSERT INTO settlements
		   (id, reference, seller_id, auction_id, commission_rate, total_sales, commission,
		    expenses, adjustments, net_payout, status, generated_at, paid_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		         $8::NUMERIC, $9::JSONB, $10::NUMERIC, $11, $12, $13)`,
		s.ID, s.Reference, s.SellerID, s.AuctionID,
		s.CommissionRate.String(), s.TotalSales.String(), s.Commission.String(),
		s.Expenses.String(), string(adj), s.NetPayout.String(),
		string(s.Status), s.GeneratedAt, s.PaidAt)
	return translate("create settlement "+s.Reference, err)
}

func adjustmentsOrEmpty(a []model.Adjustment) []model.Adjustment {
	if a == nil {
		return []model.Adjustment{}
	}
	return a
}

func (p *pgQueries) getSettlement(ctx context.Context, id string, lock bool) (*model.Settlement, error) {
	query := `SELECT id, reference, seller_id, auction_id, commission_rate::TEXT, total_sales::TEXT,
	                 commission::TEXT, expenses::TEXT, adjustments::TEXT, net_payout::TEXT,
	                 status, generated_at, paid_at
	          FROM settlements WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var s model.Settlement
	var rate, sales, commission, expenses, adj, net, status string
	err := p.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.Reference, &s.SellerID, &s.AuctionID,
		&rate, &sales, &commission, &expenses, &adj, &net, &status, &s.GeneratedAt, &s.PaidAt)
	if err != nil {
		return nil, translate("get settlement "+id, err)
	}
	s.CommissionRate = parseNum(rate)
	s.TotalSales = parseNum(sales)
	s.Commission = parseNum(commission)
	s.Expenses = parseNum(expenses)
	s.NetPayout = parseNum(net)
	s.Status = model.SettlementStatus(status)
	if err := json.Unmarshal([]byte(adj), &s.Adjustments); err != nil {
		return nil, fmt.Errorf("decode adjustments of settlement %s: %w", id, err)
	}

	rows, err := p.q.Query(ctx, `SELECT id FROM auction_items WHERE settlement_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, translate("list settlement items", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate("list settlement items", err)
	}
	s.ItemIDs = ids
	return &s, nil
}

func (p *pgQueries) GetSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	return p.getSettlement(ctx, id, false)
}

func (p *pgQueries) LockSettlement(ctx context.Context, id string) (*model.Settlement, error) {
	return p.getSettlement(ctx, id, true)
}

func (p *pgQueries) UpdateSettlement(ctx context.Context, s *model.Settlement) error {
	adj, err := json.Marshal(adjustmentsOrEmpty(s.Adjustments))
	if err != nil {
		return fmt.Errorf("encode adjustments: %w", err)
	}
	tag, err := p.q.Exec(ctx,
		`UPDATE settlements
		 SET status = $2, adjustments = $3::JSONB, expenses = $4::NUMERIC,
		     net_payout = $5::NUMERIC, paid_at = $6
		 WHERE id = $1`,
		s.ID, string(s.Status), string(adj), s.Expenses.String(), s.NetPayout.String(), s.PaidAt)
	if err != nil {
		return translate("update settlement "+s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update settlement %s: %w", s.ID, model.ErrNotFound)
	}
	return nil
}
