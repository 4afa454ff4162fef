// Package reference generates and parses the human-facing identifiers of
// financial documents: invoice numbers and settlement references.
package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"

	"github.com/atmx/auction-settlement/internal/model"
)

// suffixLen is how many trailing characters of an entity ID appear in an
// invoice number.
const suffixLen = 6

// invoiceRegex matches: INV-{snowflake base36}-{auction suffix}-{bidder suffix}
// Example: INV-1KZ3Q9V2R4W0G-4F2A9C-77B01E
var invoiceRegex = regexp.MustCompile(`^INV-([0-9A-Z]+)-([0-9A-Z]{1,6})-([0-9A-Z]{1,6})$`)

// settlementRegex matches: STL-{YYYY}-{sequence, zero padded to 6}
// Example: STL-2026-000042
var settlementRegex = regexp.MustCompile(`^STL-(\d{4})-(\d{6,})$`)

var (
	ErrInvalidInvoiceNumber = fmt.Errorf("%w: reference: invalid invoice number", model.ErrInvalid)
	ErrInvalidSettlementRef = fmt.Errorf("%w: reference: invalid settlement reference", model.ErrInvalid)
)

// InvoiceNumber is a parsed invoice number.
type InvoiceNumber struct {
	Number        string       `json:"number"`
	Sequence      snowflake.ID `json:"sequence"`
	AuctionSuffix string       `json:"auction_suffix"`
	BidderSuffix  string       `json:"bidder_suffix"`
}

// InvoiceNumberer issues invoice numbers. The sequence part is a snowflake
// ID, unique per node and strictly increasing, so two invoices created in
// the same millisecond never collide. Each running instance needs its own
// node ID.
type InvoiceNumberer struct {
	node *snowflake.Node
}

// NewInvoiceNumberer creates a numberer for the given node (0-1023).
func NewInvoiceNumberer(nodeID int64) (*InvoiceNumberer, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("reference: snowflake node %d: %w", nodeID, err)
	}
	return &InvoiceNumberer{node: node}, nil
}

// Next returns a new invoice number for the (auction, bidder) pair.
func (n *InvoiceNumberer) Next(auctionID, bidderID string) string {
	seq := strings.ToUpper(n.node.Generate().Base36())
	return fmt.Sprintf("INV-%s-%s-%s", seq, suffix(auctionID), suffix(bidderID))
}

// suffix keeps the trailing alphanumeric characters of an ID, uppercased.
func suffix(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if r < unicode.MaxASCII && (unicode.IsDigit(r) || unicode.IsUpper(r)) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "0"
	}
	if len(s) > suffixLen {
		s = s[len(s)-suffixLen:]
	}
	return s
}

// ParseInvoiceNumber validates an invoice number.
// Format: INV-{base36}-{auction suffix}-{bidder suffix}
func ParseInvoiceNumber(number string) (*InvoiceNumber, error) {
	m := invoiceRegex.FindStringSubmatch(number)
	if m == nil {
		return nil, fmt.Errorf("%w: %s (expected INV-{sequence}-{auction}-{bidder})",
			ErrInvalidInvoiceNumber, number)
	}
	seq, err := snowflake.ParseBase36(strings.ToLower(m[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: sequence %s", ErrInvalidInvoiceNumber, m[1])
	}
	return &InvoiceNumber{
		Number:        number,
		Sequence:      seq,
		AuctionSuffix: m[2],
		BidderSuffix:  m[3],
	}, nil
}

// SettlementRef is a parsed settlement reference.
type SettlementRef struct {
	Year     int   `json:"year"`
	Sequence int64 `json:"sequence"`
}

// String formats the reference as STL-{YYYY}-{seq:06}.
func (r SettlementRef) String() string {
	return fmt.Sprintf("STL-%04d-%06d", r.Year, r.Sequence)
}

// FormatSettlementRef builds a settlement reference from a year-scoped
// sequence value.
func FormatSettlementRef(year int, seq int64) string {
	return SettlementRef{Year: year, Sequence: seq}.String()
}

// ParseSettlementRef validates a settlement reference.
func ParseSettlementRef(ref string) (*SettlementRef, error) {
	m := settlementRegex.FindStringSubmatch(ref)
	if m == nil {
		return nil, fmt.Errorf("%w: %s (expected STL-{YYYY}-{NNNNNN})", ErrInvalidSettlementRef, ref)
	}
	year, _ := strconv.Atoi(m[1])
	seq, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || seq < 1 {
		return nil, fmt.Errorf("%w: sequence %s", ErrInvalidSettlementRef, m[2])
	}
	return &SettlementRef{Year: year, Sequence: seq}, nil
}
