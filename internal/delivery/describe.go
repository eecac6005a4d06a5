package delivery

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/commission"
)

// FormatMoney renders a value as US dollars with thousands separators, e.g. "$1,234.56".
func FormatMoney(v decimal.Decimal) string {
	return "$" + formatAmount(v)
}

// formatAmount groups the exact cents string so large values survive the
// round trip through ParseDescription.
func formatAmount(v decimal.Decimal) string {
	s := commission.Cents(v).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatDescription writes the canonical delivery line text understood by
// ParseDescription.
func FormatDescription(value decimal.Decimal, rate int, date, recipient string) string {
	return fmt.Sprintf("%s - %d%s (%s%s) - %s%s - %s%s",
		deliveryServiceMarker,
		rate, commissionMarker,
		transactionMarker, formatAmount(value),
		deliveredOnMarker, date,
		recipientMarker, recipient,
	)
}

// Quote is a priced delivery line ready to be added to an invoice.
type Quote struct {
	TransactionValue decimal.Decimal `json:"transaction_value"`
	CommissionRate   int             `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	DeliveryDate     string          `json:"delivery_date"`
	RecipientName    string          `json:"recipient_name"`
	Description      string          `json:"description"`
}

// LineItem returns the invoice line for the quote.
func (q Quote) LineItem() LineItem {
	return LineItem{
		Description: q.Description,
		Amount:      q.CommissionAmount,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   q.CommissionAmount,
	}
}

// NewQuote prices a delivery with the tier schedule. The commission is rounded
// to cents because it becomes a billed amount.
func NewQuote(value decimal.Decimal, date, recipient string) Quote {
	rate, amount := commission.AmountForValue(value)
	return Quote{
		TransactionValue: value,
		CommissionRate:   rate,
		CommissionAmount: commission.Cents(amount),
		DeliveryDate:     date,
		RecipientName:    recipient,
		Description:      FormatDescription(value, rate, date, recipient),
	}
}
