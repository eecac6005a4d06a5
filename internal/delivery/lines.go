package delivery

import (
	"github.com/shopspring/decimal"
)

// LineKind classifies an invoice line by its description.
type LineKind string

const (
	LineDelivery    LineKind = "DELIVERY"
	LineProductSale LineKind = "PRODUCT_SALE"
	LineBlank       LineKind = "BLANK"
)

// ClassifyLine separates delivery service lines from direct product sales.
// Lines without a description (subtotals, discounts) are blank.
func ClassifyLine(description string) LineKind {
	switch {
	case description == "":
		return LineBlank
	case IsDeliveryService(description):
		return LineDelivery
	default:
		return LineProductSale
	}
}

// DeliveryItem is a delivery line as shown in the invoice breakdown.
type DeliveryItem struct {
	Index            int             `json:"index"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Quantity         decimal.Decimal `json:"quantity"`
	TransactionValue decimal.Decimal `json:"transaction_value"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	Recipient        string          `json:"recipient"`
}

// ProductItem is a product sale line.
type ProductItem struct {
	Index       int             `json:"index"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceAnalysis splits one invoice into delivery and product lines.
type InvoiceAnalysis struct {
	InvoiceID      string          `json:"invoice_id"`
	DocNumber      string          `json:"doc_number"`
	CustomerName   string          `json:"customer_name"`
	DeliveryItems  []DeliveryItem  `json:"delivery_items"`
	ProductItems   []ProductItem   `json:"product_items"`
	TotalItems     int             `json:"total_items"`
	DeliveryAmount decimal.Decimal `json:"delivery_amount"`
	ProductAmount  decimal.Decimal `json:"product_amount"`
}

// AnalyzeInvoice classifies every line of an invoice. Indexes are 1-based
// positions in the original line order.
func AnalyzeInvoice(inv Invoice) InvoiceAnalysis {
	analysis := InvoiceAnalysis{
		InvoiceID:      inv.ID,
		DocNumber:      inv.DocNumber,
		CustomerName:   inv.CustomerName,
		DeliveryItems:  []DeliveryItem{},
		ProductItems:   []ProductItem{},
		DeliveryAmount: decimal.Zero,
		ProductAmount:  decimal.Zero,
	}
	for i, line := range inv.Lines {
		qty := line.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		switch ClassifyLine(line.Description) {
		case LineDelivery:
			analysis.DeliveryItems = append(analysis.DeliveryItems, DeliveryItem{
				Index:            i + 1,
				Description:      line.Description,
				Amount:           line.Amount,
				Quantity:         qty,
				TransactionValue: ExtractTransactionValue(line.Description),
				CommissionRate:   ExtractCommissionRate(line.Description),
				Recipient:        ExtractDeliveryRecipient(line.Description),
			})
			analysis.DeliveryAmount = analysis.DeliveryAmount.Add(line.Amount)
		case LineProductSale:
			analysis.ProductItems = append(analysis.ProductItems, ProductItem{
				Index:       i + 1,
				Description: line.Description,
				Amount:      line.Amount,
				Quantity:    qty,
				UnitPrice:   line.UnitPrice,
			})
			analysis.ProductAmount = analysis.ProductAmount.Add(line.Amount)
		}
	}
	analysis.TotalItems = len(analysis.DeliveryItems) + len(analysis.ProductItems)
	return analysis
}

// EnrichCustomerNames fills Invoice.CustomerName from the customer directory by
// customer id, falling back to the reference name and then UnknownCustomer.
func EnrichCustomerNames(invoices []Invoice, customers []Customer) []Invoice {
	byID := make(map[string]Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}
	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		name := ""
		if c, ok := byID[inv.CustomerID]; ok {
			name = c.Name()
		}
		if name == "" {
			name = inv.CustomerRefName
		}
		if name == "" {
			name = UnknownCustomer
		}
		inv.CustomerName = name
		out[i] = inv
	}
	return out
}
