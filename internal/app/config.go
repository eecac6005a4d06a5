package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/deliveryops/internal/quickbooks"
	"github.com/odyssey-erp/deliveryops/internal/route"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"2m"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"90s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	QBOBaseURL     string        `envconfig:"QBO_BASE_URL" default:"https://quickbooks.api.intuit.com"`
	QBOAccessToken string        `envconfig:"QBO_ACCESS_TOKEN"`
	QBORealmID     string        `envconfig:"QBO_REALM_ID"`
	QBOPageSize    int           `envconfig:"QBO_PAGE_SIZE" default:"100"`
	QBOTimeout     time.Duration `envconfig:"QBO_TIMEOUT" default:"30s"`

	GeocoderURL       string        `envconfig:"GEOCODER_URL" default:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string        `envconfig:"GEOCODER_USER_AGENT" default:"deliveryops/1.0"`
	GeocoderInterval  time.Duration `envconfig:"GEOCODER_INTERVAL" default:"1s"`
	GeocoderCacheTTL  time.Duration `envconfig:"GEOCODER_CACHE_TTL" default:"720h"`

	RouteStartName string  `envconfig:"ROUTE_START_NAME" default:"Maine Distillery"`
	RouteStartLat  float64 `envconfig:"ROUTE_START_LAT" default:"43.9139"`
	RouteStartLng  float64 `envconfig:"ROUTE_START_LNG" default:"-69.9653"`

	ReportDefaultDays int `envconfig:"REPORT_DEFAULT_DAYS" default:"30"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.QBOAccessToken != "" && c.QBORealmID == "" {
		errs = append(errs, errors.New("QBO_REALM_ID must be provided with QBO_ACCESS_TOKEN"))
	}
	if c.RouteStartLat < -90 || c.RouteStartLat > 90 {
		errs = append(errs, fmt.Errorf("ROUTE_START_LAT %v out of range", c.RouteStartLat))
	}
	if c.RouteStartLng < -180 || c.RouteStartLng > 180 {
		errs = append(errs, fmt.Errorf("ROUTE_START_LNG %v out of range", c.RouteStartLng))
	}
	if strings.TrimSpace(c.GeocoderUserAgent) == "" {
		errs = append(errs, errors.New("GEOCODER_USER_AGENT must not be empty"))
	}
	if c.ReportDefaultDays <= 0 {
		errs = append(errs, errors.New("REPORT_DEFAULT_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Credentials returns the accounting API credentials.
func (c *Config) Credentials() quickbooks.Credentials {
	return quickbooks.Credentials{AccessToken: c.QBOAccessToken, RealmID: c.QBORealmID}
}

// RouteStart returns the fixed route origin.
func (c *Config) RouteStart() route.Point {
	return route.Point{Name: c.RouteStartName, Lat: c.RouteStartLat, Lng: c.RouteStartLng}
}
