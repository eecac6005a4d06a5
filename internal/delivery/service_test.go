package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/deliveryops/internal/geocode"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

type stubSource struct {
	invoices     []Invoice
	customers    []Customer
	invoiceErr   error
	customerErr  error
	invoiceCalls int
}

func (s *stubSource) FetchInvoices(ctx context.Context) ([]Invoice, error) {
	s.invoiceCalls++
	return s.invoices, s.invoiceErr
}

func (s *stubSource) FetchCustomers(ctx context.Context) ([]Customer, error) {
	return s.customers, s.customerErr
}

type stubGeocoder struct {
	locations map[string]geocode.Location
	errs      map[string]error
	calls     [][]string
}

func (g *stubGeocoder) Locate(ctx context.Context, queries ...string) (geocode.Location, error) {
	g.calls = append(g.calls, queries)
	for _, q := range queries {
		if err, ok := g.errs[q]; ok {
			return geocode.Location{}, err
		}
		if loc, ok := g.locations[q]; ok {
			return loc, nil
		}
	}
	return geocode.Location{}, geocode.ErrNotFound
}

type recordedReport struct {
	kind string
	err  error
}

type stubRecorder struct {
	mu      sync.Mutex
	reports []recordedReport
}

func (r *stubRecorder) ObserveReport(kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, recordedReport{kind: kind, err: err})
}

var testStart = route.Point{Name: "Warehouse", Lat: 44.0, Lng: -69.0}

func newTestService(src *stubSource, geo Geocoder, rec Recorder) *Service {
	return NewService(ServiceConfig{
		Invoices:    src,
		Customers:   src,
		Geocoder:    geo,
		Start:       testStart,
		DefaultDays: 30,
		Recorder:    rec,
		Now:         func() time.Time { return time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC) },
	})
}

func routeFixture() *stubSource {
	return &stubSource{
		invoices: []Invoice{
			{ID: "1", DocNumber: "1001", CustomerID: "c1", Lines: []LineItem{
				deliveryLine("45.00", 15, "2024-03-01", "Good Tern", "6.75"),
				deliveryLine("200.00", 10, "2024-03-05", "Rising Tide", "20.00"),
				deliveryLine("30.00", 15, "2024-03-06", "Nowhere Co", "4.50"),
			}},
		},
		customers: []Customer{
			{ID: "c1", DisplayName: "Maine Greens"},
			{ID: "c2", DisplayName: "Good Tern", BillAddr: &Address{Line1: "750 Main St", City: "Rockland", State: "ME", PostalCode: "04841"}},
			{ID: "c3", DisplayName: "Rising Tide", ShipAddr: &Address{City: "Portland", State: "ME"}},
		},
	}
}

func TestServiceReportEnrichesCustomerNames(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(routeFixture(), nil, rec)

	report, err := svc.Report(context.Background(), march)
	require.NoError(t, err)
	require.Len(t, report.Businesses, 3)
	assert.Equal(t, "Rising Tide", report.Businesses[0].BusinessName)
	assert.Equal(t, []string{"Maine Greens"}, report.Businesses[0].CustomerNames)
	assert.Equal(t, "Rockland", report.Businesses[1].Address.City)
	assert.Equal(t, []recordedReport{{kind: "report"}}, rec.reports)
}

func TestServiceReportFailsFastOnFetchError(t *testing.T) {
	rec := &stubRecorder{}
	src := routeFixture()
	boom := errors.New("token expired")
	src.customerErr = boom
	svc := newTestService(src, nil, rec)

	report, err := svc.Report(context.Background(), march)
	assert.ErrorIs(t, err, boom)
	assert.True(t, report.IsEmpty())
	require.Len(t, rec.reports, 1)
	assert.ErrorIs(t, rec.reports[0].err, boom)
}

func TestServiceReportRejectsInvalidRange(t *testing.T) {
	src := routeFixture()
	svc := newTestService(src, nil, nil)
	_, err := svc.Report(context.Background(), DateRange{Start: "2024-03-31", End: "2024-03-01"})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Zero(t, src.invoiceCalls)
}

func TestServiceDefaultRange(t *testing.T) {
	svc := newTestService(routeFixture(), nil, nil)
	assert.Equal(t, DateRange{Start: "2024-03-16", End: "2024-04-15"}, svc.DefaultRange())
}

func TestServiceRoutePlansMappedBusinesses(t *testing.T) {
	geo := &stubGeocoder{
		locations: map[string]geocode.Location{
			"Rockland, ME": {Lat: 44.1037, Lng: -69.1089},
			"Portland, ME": {Lat: 43.6591, Lng: -70.2568},
		},
	}
	rec := &stubRecorder{}
	svc := newTestService(routeFixture(), geo, rec)

	var progress []int
	plan, err := svc.Route(context.Background(), march, func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.NotEmpty(t, plan.ID.String())
	assert.Equal(t, "2024-03-01", plan.StartDate)
	require.Len(t, plan.Unmapped, 1)
	assert.Equal(t, "Nowhere Co", plan.Unmapped[0].BusinessName)
	assert.Equal(t, "location not found", plan.Unmapped[0].Reason)

	stops := plan.Route.Stops
	require.Len(t, stops, 4)
	assert.Equal(t, "Warehouse", stops[0].Name)
	assert.Equal(t, "Good Tern", stops[1].Name)
	assert.Equal(t, "Rising Tide", stops[2].Name)
	assert.Equal(t, route.ReturnToStart, stops[3].Name)
	assert.Equal(t, "750 Main St, Rockland, ME 04841", stops[1].Address)
	assert.Equal(t, 1, stops[1].Deliveries)
	assert.Equal(t, 2, plan.Route.BusinessCount)

	assert.Equal(t, []string{"750 Main St, Rockland, ME 04841", "Rockland, ME", "Good Tern"}, geo.calls[1])
	assert.Equal(t, "route", rec.reports[len(rec.reports)-1].kind)
}

func TestServiceRouteGeocoderErrorMarksUnmapped(t *testing.T) {
	geo := &stubGeocoder{
		locations: map[string]geocode.Location{"Portland, ME": {Lat: 43.6591, Lng: -70.2568}},
		errs:      map[string]error{"750 Main St, Rockland, ME 04841": errors.New("503")},
	}
	svc := newTestService(routeFixture(), geo, nil)

	plan, err := svc.Route(context.Background(), march, nil)
	require.NoError(t, err)
	require.Len(t, plan.Unmapped, 2)
	assert.Equal(t, "geocoder unavailable", plan.Unmapped[0].Reason)
	assert.Equal(t, 1, plan.Route.BusinessCount)
}

func TestServiceRouteWithoutMappedBusinesses(t *testing.T) {
	svc := newTestService(routeFixture(), &stubGeocoder{}, nil)
	_, err := svc.Route(context.Background(), march, nil)
	assert.ErrorIs(t, err, ErrNoMappedBusinesses)

	svc = newTestService(routeFixture(), nil, nil)
	_, err = svc.Route(context.Background(), march, nil)
	assert.ErrorIs(t, err, ErrNoMappedBusinesses)
}

func TestServiceGeocodeStopsOnCancel(t *testing.T) {
	svc := newTestService(routeFixture(), &stubGeocoder{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := svc.GeocodeBusinesses(ctx, []BusinessSummary{{BusinessName: "x"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServicePlanPointsEmpty(t *testing.T) {
	svc := newTestService(routeFixture(), nil, nil)
	r := svc.PlanPoints(nil)
	require.Len(t, r.Stops, 2)
	assert.Zero(t, r.TotalDistanceMiles)
	assert.Zero(t, r.TotalTimeMinutes)
}

func TestServiceAnalyzeInvoicesLimit(t *testing.T) {
	src := routeFixture()
	src.invoices = append(src.invoices, Invoice{ID: "2", CustomerID: "zz", CustomerRefName: "Walk-in"})
	svc := newTestService(src, nil, nil)

	all, err := svc.AnalyzeInvoices(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Maine Greens", all[0].CustomerName)
	assert.Len(t, all[0].DeliveryItems, 3)
	assert.Equal(t, "Walk-in", all[1].CustomerName)

	one, err := svc.AnalyzeInvoices(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
