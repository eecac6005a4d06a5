package delivery

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// directory resolves recipient names to customer addresses, case-insensitively.
type directory map[string]Address

func newDirectory(customers []Customer) directory {
	fold := cases.Fold()
	dir := make(directory, len(customers))
	for _, c := range customers {
		key := fold.String(strings.TrimSpace(c.Name()))
		if key == "" {
			continue
		}
		if _, exists := dir[key]; exists {
			continue
		}
		dir[key] = c.Address()
	}
	return dir
}

func (d directory) lookup(name string) Address {
	return d[cases.Fold().String(strings.TrimSpace(name))]
}

// BuildReport groups the delivery lines of invoices by recipient business for
// the given range. It never fails: malformed descriptions degrade to parser
// defaults and undated lines are skipped.
func BuildReport(invoices []Invoice, customers []Customer, rng DateRange) Report {
	dir := newDirectory(customers)
	index := make(map[string]int)
	businesses := make([]BusinessSummary, 0)

	for _, inv := range invoices {
		for _, line := range inv.Lines {
			if !IsDeliveryService(line.Description) {
				continue
			}
			parsed := ParseLine(line)
			if !rng.Contains(parsed.DeliveryDate) {
				continue
			}

			pos, ok := index[parsed.RecipientName]
			if !ok {
				pos = len(businesses)
				index[parsed.RecipientName] = pos
				businesses = append(businesses, BusinessSummary{
					BusinessName:          parsed.RecipientName,
					Address:               dir.lookup(parsed.RecipientName),
					TotalTransactionValue: decimal.Zero,
					TotalCommission:       decimal.Zero,
					FirstDeliveryDate:     parsed.DeliveryDate,
					LastDeliveryDate:      parsed.DeliveryDate,
				})
			}
			b := &businesses[pos]
			b.Deliveries = append(b.Deliveries, Delivery{
				ParsedDelivery: parsed,
				InvoiceNumber:  inv.DocNumber,
				CustomerName:   inv.CustomerName,
			})
			b.TotalDeliveries++
			b.TotalTransactionValue = b.TotalTransactionValue.Add(parsed.TransactionValue)
			b.TotalCommission = b.TotalCommission.Add(parsed.CommissionAmount)
			if parsed.DeliveryDate < b.FirstDeliveryDate {
				b.FirstDeliveryDate = parsed.DeliveryDate
			}
			if parsed.DeliveryDate > b.LastDeliveryDate {
				b.LastDeliveryDate = parsed.DeliveryDate
			}
			b.CustomerNames = appendDistinct(b.CustomerNames, inv.CustomerName)
		}
	}

	sort.SliceStable(businesses, func(i, j int) bool {
		return businesses[i].TotalCommission.GreaterThan(businesses[j].TotalCommission)
	})

	report := Report{
		StartDate:             rng.Start,
		EndDate:               rng.End,
		Businesses:            businesses,
		TotalTransactionValue: decimal.Zero,
		TotalCommission:       decimal.Zero,
		UniqueBusinesses:      len(businesses),
	}
	for _, b := range businesses {
		report.TotalDeliveries += b.TotalDeliveries
		report.TotalTransactionValue = report.TotalTransactionValue.Add(b.TotalTransactionValue)
		report.TotalCommission = report.TotalCommission.Add(b.TotalCommission)
	}
	return report
}

func appendDistinct(names []string, name string) []string {
	for _, existing := range names {
		if existing == name {
			return names
		}
	}
	return append(names, name)
}
