package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	jobmetrics "github.com/odyssey-erp/deliveryops/internal/jobs"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

type stubService struct {
	report      delivery.Report
	reportErr   error
	geocodeErr  error
	unmapped    []delivery.UnmappedBusiness
	gotRange    delivery.DateRange
	geocodedFor []string
}

func (s *stubService) Report(_ context.Context, rng delivery.DateRange) (delivery.Report, error) {
	s.gotRange = rng
	return s.report, s.reportErr
}

func (s *stubService) GeocodeBusinesses(_ context.Context, businesses []delivery.BusinessSummary, _ delivery.Progress) ([]route.Point, []delivery.UnmappedBusiness, error) {
	if s.geocodeErr != nil {
		return nil, nil, s.geocodeErr
	}
	points := make([]route.Point, 0, len(businesses))
	for _, b := range businesses {
		s.geocodedFor = append(s.geocodedFor, b.BusinessName)
		points = append(points, route.Point{Name: b.BusinessName})
	}
	return points[:len(points)-len(s.unmapped)], s.unmapped, nil
}

func newTestJob(svc DeliveryService) (*GeocodeWarmupJob, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	job := NewGeocodeWarmupJob(svc, nil, jobmetrics.NewMetrics(reg))
	job.clock = func() time.Time { return time.Date(2024, 4, 15, 8, 0, 0, 0, time.UTC) }
	return job, reg
}

func warmupTask(t *testing.T, days int) *asynq.Task {
	t.Helper()
	task, err := NewGeocodeWarmupTask(days)
	require.NoError(t, err)
	return task
}

func TestGeocodeWarmupGeocodesReportBusinesses(t *testing.T) {
	svc := &stubService{
		report: delivery.Report{Businesses: []delivery.BusinessSummary{
			{BusinessName: "Good Tern", TotalCommission: decimal.NewFromInt(1)},
			{BusinessName: "Morse's"},
		}},
		unmapped: []delivery.UnmappedBusiness{{BusinessName: "Morse's", Reason: "location not found"}},
	}
	job, reg := newTestJob(svc)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, 7)))

	assert.Equal(t, delivery.DateRange{Start: "2024-04-08", End: "2024-04-15"}, svc.gotRange)
	assert.Equal(t, []string{"Good Tern", "Morse's"}, svc.geocodedFor)
	expected := `
# HELP deliveryops_unmapped_businesses Businesses left without coordinates after the last job run.
# TYPE deliveryops_unmapped_businesses gauge
deliveryops_unmapped_businesses{job="delivery:geocode_warmup"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "deliveryops_unmapped_businesses"))
	runs, err := testutil.GatherAndCount(reg, "deliveryops_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestGeocodeWarmupDefaultsLookback(t *testing.T) {
	svc := &stubService{}
	job, _ := newTestJob(svc)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, 0)))
	assert.Equal(t, "2024-03-16", svc.gotRange.Start)
	assert.Empty(t, svc.geocodedFor)
}

func TestGeocodeWarmupRejectsBadPayload(t *testing.T) {
	job, _ := newTestJob(&stubService{})

	err := job.Handle(context.Background(), asynq.NewTask(TaskGeocodeWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), warmupTask(t, 400))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestGeocodeWarmupPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")

	job, _ := newTestJob(&stubService{reportErr: boom})
	assert.ErrorIs(t, job.Handle(context.Background(), warmupTask(t, 7)), boom)

	job, _ = newTestJob(&stubService{
		report:     delivery.Report{Businesses: []delivery.BusinessSummary{{BusinessName: "Good Tern"}}},
		geocodeErr: context.Canceled,
	})
	assert.ErrorIs(t, job.Handle(context.Background(), warmupTask(t, 7)), context.Canceled)
}

func TestGeocodeWarmupNotConfigured(t *testing.T) {
	var job *GeocodeWarmupJob
	assert.Error(t, job.Handle(context.Background(), warmupTask(t, 7)))
}
