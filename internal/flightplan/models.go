package flightplan

import (
	"fmt"
	"math"
	"time"
)

// Waypoint is one navigational node of a plan's route.
// Its index in Route.Nodes is the flight order.
type Waypoint struct {
	Ident string  `json:"ident"`
	Name  string  `json:"name"`
	Type  string  `json:"type,omitempty"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt,omitempty"`
}

// Route holds the ordered waypoints of a plan.
type Route struct {
	Nodes []Waypoint `json:"nodes"`
}

// FlightPath is a flight plan as returned by the plan database.
// Search results carry only the summary; Route is set by Get.
type FlightPath struct {
	ID           int64     `json:"id"`
	FromICAO     string    `json:"fromICAO"`
	FromName     string    `json:"fromName"`
	ToICAO       string    `json:"toICAO"`
	ToName       string    `json:"toName"`
	FlightNumber *string   `json:"flightNumber"`
	Distance     float64   `json:"distance"`
	MaxAltitude  float64   `json:"maxAltitude"`
	Waypoints    int       `json:"waypoints"`
	Popularity   int64     `json:"popularity"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Route        *Route    `json:"route,omitempty"`
}

// Nodes returns the ordered waypoints, or nil for a summary.
func (p FlightPath) Nodes() []Waypoint {
	if p.Route == nil {
		return nil
	}
	return p.Route.Nodes
}

// WaypointCount prefers the actual node count when the route is known.
func (p FlightPath) WaypointCount() int {
	if p.Route != nil {
		return len(p.Route.Nodes)
	}
	return p.Waypoints
}

// Validate checks the invariants the rest of the service relies on.
func (p FlightPath) Validate() error {
	if p.Distance < 0 || math.IsNaN(p.Distance) || math.IsInf(p.Distance, 0) {
		return fmt.Errorf("plan %d: invalid distance %v", p.ID, p.Distance)
	}
	for i, n := range p.Nodes() {
		if err := n.validate(); err != nil {
			return fmt.Errorf("plan %d: node %d: %w", p.ID, i, err)
		}
	}
	return nil
}

func (w Waypoint) validate() error {
	if math.IsNaN(w.Lat) || math.IsInf(w.Lat, 0) || w.Lat < -90 || w.Lat > 90 {
		return fmt.Errorf("invalid latitude %v", w.Lat)
	}
	if math.IsNaN(w.Lon) || math.IsInf(w.Lon, 0) || w.Lon < -180 || w.Lon > 180 {
		return fmt.Errorf("invalid longitude %v", w.Lon)
	}
	return nil
}

type dedupeKey struct {
	distance  float64
	waypoints int
}

// Dedupe drops plans whose (distance, waypoint count) pair was already seen,
// keeping the first occurrence. The plan database often returns copies of the
// same route under different ids.
func Dedupe(plans []FlightPath) []FlightPath {
	seen := make(map[dedupeKey]struct{}, len(plans))
	out := make([]FlightPath, 0, len(plans))
	for _, p := range plans {
		k := dedupeKey{distance: p.Distance, waypoints: p.WaypointCount()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
