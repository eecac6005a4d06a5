package delivery

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// NotSpecified is the recipient name used when a description carries no
// "Delivering to:" marker.
const NotSpecified = "Not specified"

// UnknownCustomer labels invoices whose customer reference cannot be resolved.
const UnknownCustomer = "Unknown Customer"

// ErrInvalidRange is returned when a date range is malformed or reversed.
var ErrInvalidRange = errors.New("delivery: invalid date range")

// ============================================================================
// SOURCE RECORDS (read-only, owned by the accounting system)
// ============================================================================

// Address is a postal address as stored on a customer record.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero reports whether no address field is populated.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address on a single line, e.g. "60 Main St, Brunswick, ME 04011".
func (a Address) String() string {
	parts := make([]string, 0, 3)
	if line := strings.TrimRight(strings.TrimSpace(a.Line1), ","); line != "" {
		parts = append(parts, line)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	region := strings.TrimSpace(strings.Join([]string{a.State, a.PostalCode}, " "))
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

// LineItem is one entry on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Invoice is a billing document fetched from the accounting system.
type Invoice struct {
	ID              string     `json:"id"`
	DocNumber       string     `json:"doc_number"`
	TxnDate         string     `json:"txn_date"`
	CustomerID      string     `json:"customer_id"`
	CustomerRefName string     `json:"-"`
	CustomerName    string     `json:"customer_name"`
	Lines           []LineItem `json:"lines"`
}

// Customer is a directory entry from the accounting system.
type Customer struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	CompanyName string   `json:"company_name"`
	BillAddr    *Address `json:"bill_addr,omitempty"`
	ShipAddr    *Address `json:"ship_addr,omitempty"`
}

// Name returns the display name, falling back to the legal company name.
func (c Customer) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.CompanyName
}

// Address returns the billing address, falling back field by field to the
// shipping address. Absent fields stay empty.
func (c Customer) Address() Address {
	var bill, ship Address
	if c.BillAddr != nil {
		bill = *c.BillAddr
	}
	if c.ShipAddr != nil {
		ship = *c.ShipAddr
	}
	return Address{
		Line1:      firstNonBlank(bill.Line1, ship.Line1),
		City:       firstNonBlank(bill.City, ship.City),
		State:      firstNonBlank(bill.State, ship.State),
		PostalCode: firstNonBlank(bill.PostalCode, ship.PostalCode),
		Country:    firstNonBlank(bill.Country, ship.Country),
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ============================================================================
// DERIVED RECORDS
// ============================================================================

// ParsedDelivery holds the metadata extracted from a delivery line description.
type ParsedDelivery struct {
	TransactionValue   decimal.Decimal `json:"transaction_value"`
	CommissionRate     decimal.Decimal `json:"commission_rate"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	ExpectedCommission decimal.Decimal `json:"expected_commission"`
	AmountMismatch     bool            `json:"amount_mismatch,omitempty"`
	RecipientName      string          `json:"recipient_name"`
	DeliveryDate       string          `json:"delivery_date,omitempty"`
}

// HasDate reports whether a delivery date was found.
func (p ParsedDelivery) HasDate() bool {
	return p.DeliveryDate != ""
}

// Delivery is a parsed delivery line kept by the report, with its source invoice.
type Delivery struct {
	ParsedDelivery
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
}

// BusinessSummary aggregates the deliveries made to a single recipient business.
type BusinessSummary struct {
	BusinessName          string          `json:"business_name"`
	Address               Address         `json:"address"`
	Deliveries            []Delivery      `json:"deliveries"`
	TotalDeliveries       int             `json:"total_deliveries"`
	TotalTransactionValue decimal.Decimal `json:"total_transaction_value"`
	TotalCommission       decimal.Decimal `json:"total_commission"`
	FirstDeliveryDate     string          `json:"first_delivery_date"`
	LastDeliveryDate      string          `json:"last_delivery_date"`
	CustomerNames         []string        `json:"customer_names"`
}

// PrimaryCustomer is the first billed customer seen for the business.
func (b BusinessSummary) PrimaryCustomer() string {
	if len(b.CustomerNames) == 0 {
		return ""
	}
	return b.CustomerNames[0]
}

// OtherCustomers counts billed customers beyond the primary one.
func (b BusinessSummary) OtherCustomers() int {
	if len(b.CustomerNames) <= 1 {
		return 0
	}
	return len(b.CustomerNames) - 1
}

// Report is the grouped-by-business delivery summary for a date range.
type Report struct {
	StartDate             string            `json:"start_date"`
	EndDate               string            `json:"end_date"`
	Businesses            []BusinessSummary `json:"businesses"`
	TotalDeliveries       int               `json:"total_deliveries"`
	TotalTransactionValue decimal.Decimal   `json:"total_transaction_value"`
	TotalCommission       decimal.Decimal   `json:"total_commission"`
	UniqueBusinesses      int               `json:"unique_businesses"`
}

// IsEmpty reports whether no delivery matched the range.
func (r Report) IsEmpty() bool {
	return len(r.Businesses) == 0
}
