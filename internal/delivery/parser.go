package delivery

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/commission"
)

// Markers written into delivery line descriptions. Historical invoices carry
// this exact text, so the patterns below must not drift.
const (
	deliveryServiceMarker = "Product Delivery Service"
	transactionMarker     = "Transaction Value: $"
	commissionMarker      = "% Commission"
	recipientMarker       = "Delivering to: "
	deliveredOnMarker     = "Delivered on: "
)

var (
	transactionValueRe = regexp.MustCompile(`Transaction Value: \$(\d+(?:,\d{3})*\.?\d*)`)
	commissionRateRe   = regexp.MustCompile(`(\d+\.?\d*)% Commission`)
	recipientRe        = regexp.MustCompile(`Delivering to: (.+)$`)
	deliveredOnRe      = regexp.MustCompile(`Delivered on: (\d{4}-\d{2}-\d{2})`)
)

var defaultCommissionRate = decimal.NewFromInt(commission.RateDefault)

// IsDeliveryService reports whether the description marks a delivery line.
func IsDeliveryService(description string) bool {
	return strings.Contains(description, deliveryServiceMarker)
}

// ExtractTransactionValue returns the amount after "Transaction Value: $",
// ignoring thousands separators. It returns zero when absent or unparseable.
func ExtractTransactionValue(description string) decimal.Decimal {
	match := transactionValueRe.FindStringSubmatch(description)
	if match == nil {
		return decimal.Zero
	}
	return parseNumber(match[1], decimal.Zero)
}

// ExtractCommissionRate returns the percentage immediately before
// "% Commission", or the default rate when absent.
func ExtractCommissionRate(description string) decimal.Decimal {
	match := commissionRateRe.FindStringSubmatch(description)
	if match == nil {
		return defaultCommissionRate
	}
	return parseNumber(match[1], defaultCommissionRate)
}

// ExtractDeliveryRecipient returns the trimmed text after "Delivering to: "
// up to the end of the description.
func ExtractDeliveryRecipient(description string) string {
	match := recipientRe.FindStringSubmatch(description)
	if match == nil {
		return NotSpecified
	}
	return strings.TrimSpace(match[1])
}

// ExtractDeliveryDate returns the YYYY-MM-DD date after "Delivered on: ".
func ExtractDeliveryDate(description string) (string, bool) {
	match := deliveredOnRe.FindStringSubmatch(description)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseDescription extracts every delivery field from a description. The
// commission amount is derived from the parsed value and rate.
func ParseDescription(description string) ParsedDelivery {
	value := ExtractTransactionValue(description)
	rate := ExtractCommissionRate(description)
	expected := commission.Amount(value, rate)
	date, _ := ExtractDeliveryDate(description)
	return ParsedDelivery{
		TransactionValue:   value,
		CommissionRate:     rate,
		CommissionAmount:   expected,
		ExpectedCommission: expected,
		RecipientName:      ExtractDeliveryRecipient(description),
		DeliveryDate:       date,
	}
}

// ParseLine parses a delivery line. The billed line amount is the commission
// that was actually charged; AmountMismatch flags lines whose amount is more
// than a cent away from value * rate / 100.
func ParseLine(line LineItem) ParsedDelivery {
	parsed := ParseDescription(line.Description)
	parsed.CommissionAmount = line.Amount
	parsed.AmountMismatch = !commission.WithinCent(line.Amount, parsed.ExpectedCommission)
	return parsed
}

func parseNumber(raw string, fallback decimal.Decimal) decimal.Decimal {
	cleaned := strings.TrimSuffix(strings.ReplaceAll(raw, ",", ""), ".")
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return fallback
	}
	return value
}
