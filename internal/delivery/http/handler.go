// Package http exposes delivery reports, routes and quotes over HTTP.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/delivery/export"
	"github.com/odyssey-erp/deliveryops/internal/platform/httpx"
	"github.com/odyssey-erp/deliveryops/report"
)

// Handler wires HTTP interactions for delivery reporting.
type Handler struct {
	logger    *slog.Logger
	service   *delivery.Service
	pdf       *export.PDFExporter
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
	builds    singleflight.Group
}

// NewHandler constructs the delivery handler. pdf may be nil when no renderer
// is configured; the PDF report endpoint then answers 503.
func NewHandler(logger *slog.Logger, service *delivery.Service, pdf *export.PDFExporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		pdf:       pdf,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		rateLimit: limiter,
	}
}

// MountRoutes registers the delivery endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/report", h.HandleReport)
		r.Get("/route", h.HandleRoute)
		r.Post("/route", h.HandlePlan)
		r.Post("/quote", h.HandleQuote)
		r.Get("/invoices", h.HandleInvoices)
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Get("/report.csv", h.HandleExportCSV)
			r.Get("/report.xlsx", h.HandleExportXLSX)
			r.Get("/report.pdf", h.HandleExportPDF)
			r.Get("/route.pdf", h.HandleRouteSheet)
		})
	})
}

// HandleReport returns the grouped delivery report as JSON.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ReportResponse{Report: rep, Empty: rep.IsEmpty()})
}

// HandleExportCSV streams the report as CSV.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.sendFile(w, "text/csv; charset=utf-8", export.ReportFilename(rep, "csv"), func(buf io.Writer) error {
		return export.WriteReportCSV(buf, rep)
	})
}

// HandleExportXLSX returns the report as an Excel workbook.
func (h *Handler) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	h.sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.ReportFilename(rep, "xlsx"), func(buf io.Writer) error {
		return export.WriteReportXLSX(buf, rep)
	})
}

// HandleExportPDF renders the report to PDF through the document renderer.
func (h *Handler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf renderer not configured")
		return
	}
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	pdf, err := h.pdf.RenderReport(r.Context(), rep)
	if err != nil {
		h.logger.Error("render report pdf", slog.Any("error", err))
		if errors.Is(err, report.ErrNotConfigured) {
			httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf renderer not configured")
			return
		}
		httpx.Problem(w, http.StatusBadGateway, "PDF Render Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ReportFilename(rep, "pdf")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// HandleRoute geocodes the businesses of the report and returns a planned route.
func (h *Handler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.buildRoute(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

// HandleRouteSheet returns the planned route as a printable PDF.
func (h *Handler) HandleRouteSheet(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.buildRoute(w, r)
	if !ok {
		return
	}
	name := fmt.Sprintf("delivery-route-%s-to-%s.pdf", plan.StartDate, plan.EndDate)
	h.sendFile(w, "application/pdf", name, func(buf io.Writer) error {
		return export.WriteRouteSheet(buf, plan)
	})
}

// HandlePlan orders caller-supplied points from the configured start.
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodePlan(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.PlanPoints(req.Points))
}

// HandleQuote prices a delivery and returns the canonical line description.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeQuote(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	q := delivery.NewQuote(req.TransactionValue, req.DeliveryDate, req.Recipient)
	httpx.JSON(w, http.StatusOK, QuoteResponse{Quote: q, Line: q.LineItem()})
}

// HandleInvoices lists the newest invoices split into delivery and product lines.
func (h *Handler) HandleInvoices(w http.ResponseWriter, r *http.Request) {
	limit, err := h.parseLimit(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	invoices, err := h.service.AnalyzeInvoices(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, InvoicesResponse{Invoices: invoices, Count: len(invoices)})
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (delivery.Report, bool) {
	rng, err := h.parseRange(r)
	if err != nil {
		h.respondError(w, err)
		return delivery.Report{}, false
	}
	key := "report:" + rng.Start + ":" + rng.End
	result, err, shared := h.singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.Report(ctx, rng)
	})
	if err != nil {
		h.respondError(w, err)
		return delivery.Report{}, false
	}
	if shared {
		h.logger.Debug("report build shared", slog.String("key", key))
	}
	return result.(delivery.Report), true
}

func (h *Handler) buildRoute(w http.ResponseWriter, r *http.Request) (delivery.RoutePlan, bool) {
	rng, err := h.parseRange(r)
	if err != nil {
		h.respondError(w, err)
		return delivery.RoutePlan{}, false
	}
	plan, err := h.service.Route(r.Context(), rng, nil)
	if err != nil {
		h.respondError(w, err)
		return delivery.RoutePlan{}, false
	}
	return plan, true
}

// sendFile renders into memory first so a failed export can still return an error status.
func (h *Handler) sendFile(w http.ResponseWriter, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.Error("render export", slog.String("file", filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, delivery.ErrInvalidRange):
		err = fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	case errors.Is(err, delivery.ErrNoMappedBusinesses):
		err = fmt.Errorf("%w: %s", httpx.ErrUnprocessable, err.Error())
	case errors.Is(err, context.Canceled):
		return
	}
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrUnprocessable) {
		h.logger.Error("delivery request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
