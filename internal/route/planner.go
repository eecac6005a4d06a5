// Package route orders delivery stops with a nearest-neighbor heuristic.
package route

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// EarthRadiusMiles is the sphere radius used by Haversine.
	EarthRadiusMiles = 3959.0
	// MinutesPerMile approximates city driving.
	MinutesPerMile = 2.5
	// ReturnToStart names the closing stop.
	ReturnToStart = "Return to Start"
)

// Point is a geocoded location with the delivery weight it carries.
type Point struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Lat        float64         `json:"lat" validate:"gte=-90,lte=90"`
	Lng        float64         `json:"lng" validate:"gte=-180,lte=180"`
	Address    string          `json:"address,omitempty"`
	Deliveries int             `json:"deliveries" validate:"gte=0"`
	Commission decimal.Decimal `json:"commission"`
}

// Stop is a point at its position in the route.
type Stop struct {
	Sequence int     `json:"sequence"`
	LegMiles float64 `json:"leg_miles"`
	Point
}

// Route is the ordered visit plan. Stops begin at the start location and end
// with a return to it.
type Route struct {
	Stops              []Stop  `json:"stops"`
	TotalDistanceMiles float64 `json:"total_distance_miles"`
	TotalTimeMinutes   int     `json:"total_time_minutes"`
	BusinessCount      int     `json:"business_count"`
}

// Haversine returns the great-circle distance between two points in miles.
func Haversine(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just outside [0, 1] for near-antipodal points.
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusMiles * 2 * math.Asin(math.Sqrt(h))
}

// Plan visits every point by repeatedly travelling to the closest unvisited
// one, then returns to start. Ties go to the earliest point in input order.
// This is a greedy approximation, not an optimal tour.
func Plan(start Point, points []Point) Route {
	unvisited := make([]Point, len(points))
	copy(unvisited, points)

	stops := make([]Stop, 0, len(points)+2)
	stops = append(stops, Stop{Sequence: 0, Point: start})

	current := start
	total := 0.0
	for len(unvisited) > 0 {
		best := 0
		bestDist := Haversine(current, unvisited[0])
		for i := 1; i < len(unvisited); i++ {
			if d := Haversine(current, unvisited[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := unvisited[best]
		stops = append(stops, Stop{Sequence: len(stops), LegMiles: bestDist, Point: next})
		total += bestDist
		current = next
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}

	back := Haversine(current, start)
	closing := start
	closing.Name = ReturnToStart
	stops = append(stops, Stop{Sequence: len(stops), LegMiles: back, Point: closing})
	total += back

	return Route{
		Stops:              stops,
		TotalDistanceMiles: math.Round(total*10) / 10,
		TotalTimeMinutes:   int(math.Round(total * MinutesPerMile)),
		BusinessCount:      len(points),
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
