package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// CacheInvalidator drops cached geocoder answers.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// FlushGeocodeCache forgets every cached geocoder hit and miss so the next
// route plan asks the geocoder again.
func FlushGeocodeCache(ctx context.Context, inv CacheInvalidator, w io.Writer) error {
	if inv == nil {
		return errors.New("geocode cache not configured")
	}
	if err := inv.Invalidate(ctx); err != nil {
		return fmt.Errorf("flush geocode cache: %w", err)
	}
	fmt.Fprintln(w, "geocode cache flushed")
	return nil
}
