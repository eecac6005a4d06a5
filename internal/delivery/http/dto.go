package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/platform/httpx"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

const (
	defaultInvoiceLimit = 50
	maxInvoiceLimit     = 1000
	maxRoutePoints      = 200
)

// ReportResponse wraps a report with an explicit empty-state flag.
type ReportResponse struct {
	delivery.Report
	Empty bool `json:"empty"`
}

// PlanRequest asks for a route over caller-supplied points.
type PlanRequest struct {
	Points []route.Point `json:"points" validate:"required,min=1,dive"`
}

// QuoteRequest prices a delivery.
type QuoteRequest struct {
	TransactionValue decimal.Decimal `json:"transaction_value"`
	DeliveryDate     string          `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	Recipient        string          `json:"recipient" validate:"required,max=200"`
}

// QuoteResponse is the priced delivery line.
type QuoteResponse struct {
	delivery.Quote
	Line delivery.LineItem `json:"line"`
}

// InvoicesResponse lists invoice line breakdowns.
type InvoicesResponse struct {
	Invoices []delivery.InvoiceAnalysis `json:"invoices"`
	Count    int                        `json:"count"`
}

func (h *Handler) parseRange(r *http.Request) (delivery.DateRange, error) {
	rng := h.service.DefaultRange()
	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		rng.Start = v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		rng.End = v
	}
	if err := h.validate.Struct(rng); err != nil {
		return delivery.DateRange{}, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(err))
	}
	if err := rng.Validate(); err != nil {
		return delivery.DateRange{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return rng, nil
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultInvoiceLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxInvoiceLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", httpx.ErrValidation, maxInvoiceLimit)
	}
	return limit, nil
}

func (h *Handler) decodePlan(r *http.Request) (PlanRequest, error) {
	var req PlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return PlanRequest{}, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation)
	}
	if len(req.Points) > maxRoutePoints {
		return PlanRequest{}, fmt.Errorf("%w: points must contain at most %d entries", httpx.ErrValidation, maxRoutePoints)
	}
	if err := h.validate.Struct(req); err != nil {
		return PlanRequest{}, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(err))
	}
	return req, nil
}

func (h *Handler) decodeQuote(r *http.Request) (QuoteRequest, error) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return QuoteRequest{}, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation)
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if err := h.validate.Struct(req); err != nil {
		return QuoteRequest{}, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(err))
	}
	if !req.TransactionValue.IsPositive() {
		return QuoteRequest{}, fmt.Errorf("%w: transaction_value must be positive", httpx.ErrValidation)
	}
	return req, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
