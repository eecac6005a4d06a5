package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	jobmetrics "github.com/odyssey-erp/deliveryops/internal/jobs"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DeliveryService is the part of the delivery service the warmup needs.
type DeliveryService interface {
	Report(ctx context.Context, rng delivery.DateRange) (delivery.Report, error)
	GeocodeBusinesses(ctx context.Context, businesses []delivery.BusinessSummary, progress delivery.Progress) ([]route.Point, []delivery.UnmappedBusiness, error)
}

// GeocodeWarmupJob resolves the locations of recently served businesses ahead
// of interactive route planning.
type GeocodeWarmupJob struct {
	Service DeliveryService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewGeocodeWarmupJob wires dependencies for the warmup handler.
func NewGeocodeWarmupJob(service DeliveryService, logger *slog.Logger, metrics *jobmetrics.Metrics) *GeocodeWarmupJob {
	return &GeocodeWarmupJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes geocode warmup tasks.
func (j *GeocodeWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("geocode warmup: handler not configured")
	}
	var payload GeocodeWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("geocode warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.LookbackDays <= 0 {
		payload.LookbackDays = DefaultLookbackDays
	}
	if payload.LookbackDays > maxLookbackDays {
		return fmt.Errorf("geocode warmup: lookback %d days exceeds %d: %w", payload.LookbackDays, maxLookbackDays, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskGeocodeWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rng := delivery.LastDays(j.now(), payload.LookbackDays)
	logger := j.logger().With(slog.String("start", rng.Start), slog.String("end", rng.End))

	report, err := j.Service.Report(ctx, rng)
	if err != nil {
		logger.Error("build report", slog.Any("error", err))
		return err
	}
	if report.IsEmpty() {
		j.metrics().SetUnmapped(TaskGeocodeWarmup, 0)
		logger.Info("no businesses to warm")
		return nil
	}

	points, unmapped, err := j.Service.GeocodeBusinesses(ctx, report.Businesses, nil)
	if err != nil {
		logger.Error("geocode businesses", slog.Any("error", err))
		return err
	}
	j.metrics().SetUnmapped(TaskGeocodeWarmup, len(unmapped))
	for _, u := range unmapped {
		logger.Warn("business not mapped",
			slog.String("business", u.BusinessName),
			slog.String("reason", u.Reason))
	}
	logger.Info("geocode warmup complete",
		slog.Int("businesses", len(report.Businesses)),
		slog.Int("mapped", len(points)),
		slog.Int("unmapped", len(unmapped)))
	return nil
}

func (j *GeocodeWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGeocodeWarmup))
	}
	return slog.Default().With(slog.String("job", TaskGeocodeWarmup))
}

func (j *GeocodeWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GeocodeWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
