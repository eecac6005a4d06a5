package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/platform/httpx"
	"github.com/odyssey-erp/deliveryops/internal/quickbooks"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

type stubService struct {
	report   delivery.Report
	plan     delivery.RoutePlan
	err      error
	gotRange delivery.DateRange
}

func (s *stubService) DefaultRange() delivery.DateRange {
	return delivery.DateRange{Start: "2024-03-16", End: "2024-04-15"}
}

func (s *stubService) Report(_ context.Context, rng delivery.DateRange) (delivery.Report, error) {
	s.gotRange = rng
	return s.report, s.err
}

func (s *stubService) Route(_ context.Context, rng delivery.DateRange, progress delivery.Progress) (delivery.RoutePlan, error) {
	s.gotRange = rng
	if progress != nil {
		progress(1, 2)
		progress(2, 2)
	}
	return s.plan, s.err
}

func sampleReport() delivery.Report {
	return delivery.Report{
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
		Businesses: []delivery.BusinessSummary{{
			BusinessName:          "Good Tern",
			TotalDeliveries:       2,
			TotalTransactionValue: decimal.RequireFromString("1250"),
			TotalCommission:       decimal.RequireFromString("125"),
			FirstDeliveryDate:     "2024-03-02",
			LastDeliveryDate:      "2024-03-20",
			CustomerNames:         []string{"Rockland Wine Co"},
		}},
		TotalDeliveries:       2,
		TotalTransactionValue: decimal.RequireFromString("1250"),
		TotalCommission:       decimal.RequireFromString("125"),
		UniqueBusinesses:      1,
	}
}

func TestResolveRange(t *testing.T) {
	svc := &stubService{}
	assert.Equal(t, delivery.DateRange{Start: "2024-03-16", End: "2024-04-15"}, ResolveRange(svc, "", ""))
	assert.Equal(t, delivery.DateRange{Start: "2024-01-01", End: "2024-04-15"}, ResolveRange(svc, "2024-01-01", ""))
}

func TestRunReportPrintsAndExports(t *testing.T) {
	dir := t.TempDir()
	svc := &stubService{report: sampleReport()}
	var out bytes.Buffer

	err := RunReport(context.Background(), svc, ReportOptions{
		Start:    "2024-03-01",
		End:      "2024-03-31",
		CSVPath:  filepath.Join(dir, "report.csv"),
		XLSXPath: filepath.Join(dir, "report.xlsx"),
		Stdout:   &out,
	})
	require.NoError(t, err)

	assert.Equal(t, delivery.DateRange{Start: "2024-03-01", End: "2024-03-31"}, svc.gotRange)
	text := out.String()
	assert.Contains(t, text, "Good Tern")
	assert.Contains(t, text, "$1,250.00")
	assert.Contains(t, text, "TOTAL (1 businesses)")

	csvData, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "Business Name,"))

	xlsx, err := os.ReadFile(filepath.Join(dir, "report.xlsx"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))
}

func TestRunReportEmpty(t *testing.T) {
	var out bytes.Buffer
	svc := &stubService{report: delivery.Report{StartDate: "2024-03-01", EndDate: "2024-03-31"}}
	require.NoError(t, RunReport(context.Background(), svc, ReportOptions{Stdout: &out}))
	assert.Contains(t, out.String(), "No deliveries found")
}

func TestRunReportPropagatesError(t *testing.T) {
	svc := &stubService{err: httpx.ErrUpstream}
	err := RunReport(context.Background(), svc, ReportOptions{Stdout: &bytes.Buffer{}})
	assert.ErrorIs(t, err, httpx.ErrUpstream)
}

func TestRunRouteShowsProgressAndWritesSheet(t *testing.T) {
	dir := t.TempDir()
	start := route.Point{Name: "Maine Distillery", Lat: 43.9139, Lng: -69.9653}
	stop := route.Point{Name: "Good Tern", Lat: 44.1037, Lng: -69.1089, Deliveries: 2, Address: "750 Main St, Rockland, ME"}
	svc := &stubService{plan: delivery.RoutePlan{
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
		Route:     route.Plan(start, []route.Point{stop}),
		Unmapped:  []delivery.UnmappedBusiness{{BusinessName: "Morse's", Reason: "location not found"}},
	}}
	var out, progress bytes.Buffer

	err := RunRoute(context.Background(), svc, RouteOptions{
		PDFPath:  filepath.Join(dir, "route.pdf"),
		Stdout:   &out,
		Progress: &progress,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-16", svc.gotRange.Start)
	assert.Contains(t, out.String(), "Good Tern")
	assert.Contains(t, out.String(), "Morse's: location not found")
	assert.NotZero(t, progress.Len())

	pdf, err := os.ReadFile(filepath.Join(dir, "route.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestBuildQuote(t *testing.T) {
	q, err := BuildQuote(QuoteOptions{Value: "$75.00", Date: "2024-03-02", Recipient: " Good Tern "})
	require.NoError(t, err)
	assert.Equal(t, 12, q.CommissionRate)
	assert.Equal(t, "9", q.CommissionAmount.String())
	assert.Equal(t, "Good Tern", q.RecipientName)

	var out bytes.Buffer
	PrintQuote(&out, q)
	assert.Contains(t, out.String(), "Commission:  $9.00")
	assert.Contains(t, out.String(), q.Description)

	for _, opts := range []QuoteOptions{
		{Value: "abc", Date: "2024-03-02", Recipient: "x"},
		{Value: "0", Date: "2024-03-02", Recipient: "x"},
		{Value: "10", Date: "03/02/2024", Recipient: "x"},
		{Value: "10", Date: "2024-03-02", Recipient: " "},
	} {
		_, err := BuildQuote(opts)
		assert.Error(t, err, "%+v", opts)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, httpx.FetchFailedMessage, UserMessage(fmt.Errorf("fetch: %w", httpx.ErrUnauthorized)))
	assert.Equal(t, httpx.FetchFailedMessage, UserMessage(fmt.Errorf("fetch: %w", httpx.ErrUpstream)))
	assert.Contains(t, UserMessage(delivery.ErrNoMappedBusinesses), "nothing to route")
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.True(t, quickbooks.IsAuthError(httpx.ErrUnauthorized))
}

type stubEnqueuer struct{ lookback int }

func (s *stubEnqueuer) EnqueueGeocodeWarmup(_ context.Context, lookbackDays int) (*asynq.TaskInfo, error) {
	s.lookback = lookbackDays
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

type stubInspector struct{}

func (stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Active: 1}, nil
}

func TestJobsCLI(t *testing.T) {
	enq := &stubEnqueuer{}
	jobsCLI := NewJobsCLIWith(enq, stubInspector{})

	info, err := jobsCLI.Trigger(context.Background(), JobNameGeocodeWarmup, 14)
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)
	assert.Equal(t, 14, enq.lookback)

	_, err = jobsCLI.Trigger(context.Background(), "anomaly-scan", 0)
	assert.Error(t, err)

	stats, err := jobsCLI.InspectQueue()
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: "default", Pending: 2, Active: 1}, stats)
	assert.NoError(t, jobsCLI.Close())
}

type stubInvalidator struct {
	calls int
	err   error
}

func (s *stubInvalidator) Invalidate(context.Context) error {
	s.calls++
	return s.err
}

func TestFlushGeocodeCache(t *testing.T) {
	var out bytes.Buffer
	inv := &stubInvalidator{}
	require.NoError(t, FlushGeocodeCache(context.Background(), inv, &out))
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, "geocode cache flushed\n", out.String())

	failing := &stubInvalidator{err: errors.New("redis down")}
	err := FlushGeocodeCache(context.Background(), failing, &bytes.Buffer{})
	assert.ErrorContains(t, err, "redis down")

	assert.Error(t, FlushGeocodeCache(context.Background(), nil, &bytes.Buffer{}))
}
