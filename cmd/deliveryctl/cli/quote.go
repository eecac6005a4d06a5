package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
)

// QuoteOptions configures the quote command.
type QuoteOptions struct {
	Value     string
	Date      string
	Recipient string
}

// BuildQuote validates the input and prices the delivery.
func BuildQuote(opts QuoteOptions) (delivery.Quote, error) {
	value, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(opts.Value), "$"))
	if err != nil {
		return delivery.Quote{}, fmt.Errorf("invalid transaction value %q", opts.Value)
	}
	if !value.IsPositive() {
		return delivery.Quote{}, fmt.Errorf("transaction value must be positive")
	}
	if _, err := time.Parse(delivery.DateLayout, opts.Date); err != nil {
		return delivery.Quote{}, fmt.Errorf("invalid delivery date %q, want YYYY-MM-DD", opts.Date)
	}
	recipient := strings.TrimSpace(opts.Recipient)
	if recipient == "" {
		return delivery.Quote{}, fmt.Errorf("recipient is required")
	}
	return delivery.NewQuote(value, opts.Date, recipient), nil
}

// PrintQuote writes the priced line and its description text.
func PrintQuote(w io.Writer, q delivery.Quote) {
	fmt.Fprintf(w, "Rate:        %d%%\n", q.CommissionRate)
	fmt.Fprintf(w, "Commission:  %s\n", delivery.FormatMoney(q.CommissionAmount))
	fmt.Fprintf(w, "Description: %s\n", q.Description)
}
