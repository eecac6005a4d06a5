package delivery

import (
	"fmt"
	"time"
)

// DateLayout is the fixed-width ISO date layout used by descriptions and filters.
const DateLayout = "2006-01-02"

// DateRange is a closed [Start, End] interval of ISO dates.
type DateRange struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

// LastDays returns the range covering the given number of days up to now.
func LastDays(now time.Time, days int) DateRange {
	return DateRange{
		Start: now.AddDate(0, 0, -days).Format(DateLayout),
		End:   now.Format(DateLayout),
	}
}

// Validate checks both bounds parse and are ordered.
func (r DateRange) Validate() error {
	start, err := time.Parse(DateLayout, r.Start)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidRange, r.Start)
	}
	end, err := time.Parse(DateLayout, r.End)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidRange, r.End)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains compares ISO dates lexicographically, inclusive on both ends.
func (r DateRange) Contains(date string) bool {
	return date != "" && date >= r.Start && date <= r.End
}
