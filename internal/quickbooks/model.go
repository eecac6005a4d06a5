package quickbooks

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
)

type queryEnvelope struct {
	QueryResponse queryResponse `json:"QueryResponse"`
}

type queryResponse struct {
	Invoice       []invoiceDTO  `json:"Invoice"`
	Customer      []customerDTO `json:"Customer"`
	StartPosition int           `json:"startPosition"`
	MaxResults    int           `json:"maxResults"`
}

type faultEnvelope struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
		Type string `json:"type"`
	} `json:"Fault"`
}

type refDTO struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

type invoiceDTO struct {
	ID          string    `json:"Id"`
	DocNumber   string    `json:"DocNumber"`
	TxnDate     string    `json:"TxnDate"`
	CustomerRef refDTO    `json:"CustomerRef"`
	Line        []lineDTO `json:"Line"`
}

type lineDTO struct {
	Description         string              `json:"Description"`
	Amount              decimal.Decimal     `json:"Amount"`
	DetailType          string              `json:"DetailType"`
	SalesItemLineDetail *salesItemDetailDTO `json:"SalesItemLineDetail,omitempty"`
}

type salesItemDetailDTO struct {
	Qty       decimal.Decimal `json:"Qty"`
	UnitPrice decimal.Decimal `json:"UnitPrice"`
}

type addressDTO struct {
	Line1                  string `json:"Line1"`
	City                   string `json:"City"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode"`
	PostalCode             string `json:"PostalCode"`
	Country                string `json:"Country"`
}

type customerDTO struct {
	ID          string      `json:"Id"`
	DisplayName string      `json:"DisplayName"`
	CompanyName string      `json:"CompanyName"`
	BillAddr    *addressDTO `json:"BillAddr,omitempty"`
	ShipAddr    *addressDTO `json:"ShipAddr,omitempty"`
}

func (d invoiceDTO) toDomain() delivery.Invoice {
	lines := make([]delivery.LineItem, 0, len(d.Line))
	for _, l := range d.Line {
		item := delivery.LineItem{
			Description: l.Description,
			Amount:      l.Amount,
		}
		if l.SalesItemLineDetail != nil {
			item.Quantity = l.SalesItemLineDetail.Qty
			item.UnitPrice = l.SalesItemLineDetail.UnitPrice
		}
		lines = append(lines, item)
	}
	return delivery.Invoice{
		ID:              d.ID,
		DocNumber:       d.DocNumber,
		TxnDate:         d.TxnDate,
		CustomerID:      d.CustomerRef.Value,
		CustomerRefName: d.CustomerRef.Name,
		Lines:           lines,
	}
}

func (d customerDTO) toDomain() delivery.Customer {
	return delivery.Customer{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		CompanyName: d.CompanyName,
		BillAddr:    d.BillAddr.toDomain(),
		ShipAddr:    d.ShipAddr.toDomain(),
	}
}

func (a *addressDTO) toDomain() *delivery.Address {
	if a == nil {
		return nil
	}
	return &delivery.Address{
		Line1:      a.Line1,
		City:       a.City,
		State:      a.CountrySubDivisionCode,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
