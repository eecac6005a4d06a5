package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGeocodeWarmup geocodes every business of a recent report so route
	// planning hits the geocode cache.
	TaskGeocodeWarmup = "delivery:geocode_warmup"

	// DefaultLookbackDays is used when a warmup payload carries no window.
	DefaultLookbackDays = 30
	maxLookbackDays     = 366
)

// GeocodeWarmupPayload describes the report window to warm.
type GeocodeWarmupPayload struct {
	LookbackDays int `json:"lookback_days"`
}

// NewGeocodeWarmupTask constructs the warmup task.
func NewGeocodeWarmupTask(lookbackDays int) (*asynq.Task, error) {
	data, err := json.Marshal(GeocodeWarmupPayload{LookbackDays: lookbackDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeocodeWarmup, data), nil
}
