package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/deliveryops/internal/geocode"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

// ErrNoMappedBusinesses is returned by Route when geocoding produced no point
// to visit.
var ErrNoMappedBusinesses = errors.New("delivery: no business could be geocoded")

// InvoiceSource loads invoices from the accounting system.
type InvoiceSource interface {
	FetchInvoices(ctx context.Context) ([]Invoice, error)
}

// CustomerSource loads the customer directory.
type CustomerSource interface {
	FetchCustomers(ctx context.Context) ([]Customer, error)
}

// Geocoder resolves a fallback chain of queries to a location.
type Geocoder interface {
	Locate(ctx context.Context, queries ...string) (geocode.Location, error)
}

// Recorder observes report builds.
type Recorder interface {
	ObserveReport(kind string, err error)
}

// Progress is notified after each business is geocoded.
type Progress func(done, total int)

// ServiceConfig carries the service dependencies.
type ServiceConfig struct {
	Invoices    InvoiceSource
	Customers   CustomerSource
	Geocoder    Geocoder
	Start       route.Point
	DefaultDays int
	Recorder    Recorder
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service builds delivery reports and routes from live accounting data.
type Service struct {
	invoices    InvoiceSource
	customers   CustomerSource
	geocoder    Geocoder
	start       route.Point
	defaultDays int
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a delivery service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	days := cfg.DefaultDays
	if days <= 0 {
		days = 30
	}
	return &Service{
		invoices:    cfg.Invoices,
		customers:   cfg.Customers,
		geocoder:    cfg.Geocoder,
		start:       cfg.Start,
		defaultDays: days,
		recorder:    cfg.Recorder,
		logger:      logger,
		now:         now,
	}
}

// UnmappedBusiness is a business left off the route.
type UnmappedBusiness struct {
	BusinessName string `json:"business_name"`
	Address      string `json:"address,omitempty"`
	Reason       string `json:"reason"`
}

// RoutePlan is a planned delivery route for the businesses of a report.
type RoutePlan struct {
	ID          uuid.UUID          `json:"id"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	GeneratedAt time.Time          `json:"generated_at"`
	Route       route.Route        `json:"route"`
	Unmapped    []UnmappedBusiness `json:"unmapped"`
}

// DefaultRange covers the configured number of days up to today.
func (s *Service) DefaultRange() DateRange {
	return LastDays(s.now(), s.defaultDays)
}

// Start returns the fixed route origin.
func (s *Service) Start() route.Point {
	return s.start
}

// Report fetches invoices and customers and groups deliveries in rng by
// business. A failed fetch fails the whole report.
func (s *Service) Report(ctx context.Context, rng DateRange) (report Report, err error) {
	defer func() { s.observe("report", err) }()
	if err := rng.Validate(); err != nil {
		return Report{}, err
	}
	invoices, customers, err := s.fetch(ctx)
	if err != nil {
		return Report{}, err
	}
	report = BuildReport(invoices, customers, rng)
	s.logger.Info("delivery report built",
		slog.String("start", rng.Start),
		slog.String("end", rng.End),
		slog.Int("invoices", len(invoices)),
		slog.Int("deliveries", report.TotalDeliveries),
		slog.Int("businesses", report.UniqueBusinesses),
	)
	return report, nil
}

// Route builds the report for rng, geocodes each business and plans a visit
// order over the ones that resolved.
func (s *Service) Route(ctx context.Context, rng DateRange, progress Progress) (plan RoutePlan, err error) {
	defer func() { s.observe("route", err) }()
	report, err := s.Report(ctx, rng)
	if err != nil {
		return RoutePlan{}, err
	}
	points, unmapped, err := s.GeocodeBusinesses(ctx, report.Businesses, progress)
	if err != nil {
		return RoutePlan{}, err
	}
	if len(points) == 0 {
		return RoutePlan{}, ErrNoMappedBusinesses
	}
	return RoutePlan{
		ID:          uuid.New(),
		StartDate:   rng.Start,
		EndDate:     rng.End,
		GeneratedAt: s.now().UTC(),
		Route:       s.PlanPoints(points),
		Unmapped:    unmapped,
	}, nil
}

// PlanPoints orders arbitrary points from the configured start.
func (s *Service) PlanPoints(points []route.Point) route.Route {
	return route.Plan(s.start, points)
}

// GeocodeBusinesses resolves businesses one at a time. Lookup misses and
// geocoder failures mark the business unmapped; only cancellation aborts.
func (s *Service) GeocodeBusinesses(ctx context.Context, businesses []BusinessSummary, progress Progress) ([]route.Point, []UnmappedBusiness, error) {
	points := make([]route.Point, 0, len(businesses))
	unmapped := make([]UnmappedBusiness, 0)
	for i, b := range businesses {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		addr := b.Address.String()
		loc, err := s.locate(ctx, b)
		switch {
		case err == nil:
			points = append(points, route.Point{
				Name:       b.BusinessName,
				Lat:        loc.Lat,
				Lng:        loc.Lng,
				Address:    addr,
				Deliveries: b.TotalDeliveries,
				Commission: b.TotalCommission,
			})
		case ctx.Err() != nil:
			return nil, nil, ctx.Err()
		case errors.Is(err, geocode.ErrNotFound):
			unmapped = append(unmapped, UnmappedBusiness{BusinessName: b.BusinessName, Address: addr, Reason: "location not found"})
		default:
			s.logger.Warn("geocode failed", slog.String("business", b.BusinessName), slog.Any("error", err))
			unmapped = append(unmapped, UnmappedBusiness{BusinessName: b.BusinessName, Address: addr, Reason: "geocoder unavailable"})
		}
		if progress != nil {
			progress(i+1, len(businesses))
		}
	}
	if len(unmapped) > 0 {
		s.logger.Info("businesses left unmapped", slog.Int("count", len(unmapped)), slog.Int("mapped", len(points)))
	}
	return points, unmapped, nil
}

func (s *Service) locate(ctx context.Context, b BusinessSummary) (geocode.Location, error) {
	if s.geocoder == nil {
		return geocode.Location{}, geocode.ErrNotFound
	}
	a := b.Address
	return s.geocoder.Locate(ctx, geocode.Queries(b.BusinessName, a.Line1, a.City, a.State, a.PostalCode)...)
}

// AnalyzeInvoices returns the line breakdown of the newest invoices. A
// non-positive limit returns all of them.
func (s *Service) AnalyzeInvoices(ctx context.Context, limit int) ([]InvoiceAnalysis, error) {
	invoices, _, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(invoices) > limit {
		invoices = invoices[:limit]
	}
	out := make([]InvoiceAnalysis, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, AnalyzeInvoice(inv))
	}
	return out, nil
}

// fetch loads invoices and customers concurrently and resolves invoice
// customer names.
func (s *Service) fetch(ctx context.Context) ([]Invoice, []Customer, error) {
	if s.invoices == nil || s.customers == nil {
		return nil, nil, errors.New("delivery: accounting sources not configured")
	}
	var (
		invoices  []Invoice
		customers []Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.invoices.FetchInvoices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		customers, err = s.customers.FetchCustomers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("accounting fetch failed", slog.Any("error", err))
		return nil, nil, fmt.Errorf("delivery: fetch: %w", err)
	}
	return EnrichCustomerNames(invoices, customers), customers, nil
}

func (s *Service) observe(kind string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveReport(kind, err)
	}
}
