package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/delivery/export"
	"github.com/odyssey-erp/deliveryops/internal/geocode"
	"github.com/odyssey-erp/deliveryops/internal/observability"
	"github.com/odyssey-erp/deliveryops/internal/platform/cache"
	"github.com/odyssey-erp/deliveryops/internal/quickbooks"
	"github.com/odyssey-erp/deliveryops/report"
)

// Services bundles the collaborators shared by the server, worker and CLI.
type Services struct {
	Redis     *redis.Client
	Geocoder  *geocode.CachedGeocoder
	Delivery  *delivery.Service
	Gotenberg *report.Client
	PDF       *export.PDFExporter
}

// NewServices wires the delivery service from configuration. An unreachable
// Redis disables the geocode cache instead of failing startup.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, geocode cache disabled", slog.Any("error", err))
		redisClient = nil
	}

	accounting := quickbooks.NewClient(quickbooks.Config{
		BaseURL:     cfg.QBOBaseURL,
		Credentials: cfg.Credentials(),
		PageSize:    cfg.QBOPageSize,
		Timeout:     cfg.QBOTimeout,
	}, nil, logger)

	searcher := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		Interval:  cfg.GeocoderInterval,
	}, nil, logger)
	geocoder := geocode.NewCachedGeocoder(searcher,
		cache.NewJSONCache(redisClient, "geocode", cfg.GeocoderCacheTTL), metrics, logger)

	gotenberg := report.NewClient(cfg.GotenbergURL, nil)
	pdf, err := export.NewPDFExporter(gotenberg)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	service := delivery.NewService(delivery.ServiceConfig{
		Invoices:    accounting,
		Customers:   accounting,
		Geocoder:    geocoder,
		Start:       cfg.RouteStart(),
		DefaultDays: cfg.ReportDefaultDays,
		Recorder:    metrics,
		Logger:      logger,
	})

	return &Services{
		Redis:     redisClient,
		Geocoder:  geocoder,
		Delivery:  service,
		Gotenberg: gotenberg,
		PDF:       pdf,
	}, nil
}

// Close releases the Redis connection.
func (s *Services) Close() error {
	if s == nil || s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}
