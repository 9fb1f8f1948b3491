package route

import (
	"context"
	"log"

	"github.com/i474232898/flight-route-planner/internal/flightplan"
	"github.com/i474232898/flight-route-planner/internal/fuel"
	"github.com/i474232898/flight-route-planner/internal/weather"
)

// PlanSource resolves plan identifiers to full flight paths.
type PlanSource interface {
	Get(ctx context.Context, id int64) (flightplan.FlightPath, error)
}

// WeatherSource resolves positions to index-aligned snapshots.
type WeatherSource interface {
	Snapshots(ctx context.Context, positions []weather.Position) ([]weather.Snapshot, error)
}

// FuelSource estimates fuel burn for an aircraft over a distance.
type FuelSource interface {
	Estimate(ctx context.Context, aircraft string, distanceKm float64) ([]fuel.Estimate, error)
}

// WaypointWeather pairs a waypoint with the weather observed there.
type WaypointWeather struct {
	Waypoint flightplan.Waypoint `json:"waypoint"`
	Weather  *weather.Snapshot   `json:"weather,omitempty"`
	Weight   *int                `json:"weight,omitempty"`
}

// Assessment is everything the detail view of one plan shows.
type Assessment struct {
	Plan         flightplan.FlightPath `json:"plan"`
	Waypoints    []WaypointWeather     `json:"waypoints"`
	RouteWeight  *Weight               `json:"routeWeight,omitempty"`
	Aircraft     string                `json:"aircraft"`
	Fuel         []fuel.Estimate       `json:"fuel,omitempty"`
	WeatherError string                `json:"weatherError,omitempty"`
	FuelError    string                `json:"fuelError,omitempty"`
}

// Service assembles plan, weather, route weight and fuel for one plan.
type Service struct {
	plans   PlanSource
	weather WeatherSource
	fuel    FuelSource
}

// NewService creates a new Service.
func NewService(plans PlanSource, wx WeatherSource, fs FuelSource) *Service {
	return &Service{
		plans:   plans,
		weather: wx,
		fuel:    fs,
	}
}

// Assess fetches the plan and enriches it. Only a plan lookup failure is
// returned as an error; weather and fuel failures are reported inside the
// Assessment and leave the route weight unset.
func (s *Service) Assess(ctx context.Context, planID int64, aircraft string) (Assessment, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return Assessment{}, err
	}

	nodes := plan.Nodes()
	a := Assessment{
		Plan:      plan,
		Aircraft:  aircraft,
		Waypoints: make([]WaypointWeather, len(nodes)),
	}
	for i, n := range nodes {
		a.Waypoints[i].Waypoint = n
	}

	positions := make([]weather.Position, len(nodes))
	for i, n := range nodes {
		positions[i] = weather.Position{Lat: n.Lat, Lon: n.Lon}
	}

	snaps, err := s.weather.Snapshots(ctx, positions)
	if err != nil {
		log.Printf("ERROR: weather for plan %d unavailable: %v", planID, err)
		a.WeatherError = "Weather data is currently unavailable for this route."
	} else {
		for i := range snaps {
			if i >= len(a.Waypoints) {
				break
			}
			snap := snaps[i]
			w := WaypointWeight(snap)
			a.Waypoints[i].Weather = &snap
			a.Waypoints[i].Weight = &w
		}

		// Incomplete data hides the weight rather than failing the view.
		if weight, err := ComputeWeight(plan, snaps); err != nil {
			log.Printf("DEBUG: route weight omitted for plan %d: %v", planID, err)
		} else {
			a.RouteWeight = &weight
		}
	}

	if aircraft != "" {
		est, err := s.fuel.Estimate(ctx, aircraft, plan.Distance)
		if err != nil {
			log.Printf("ERROR: fuel estimate for plan %d failed: %v", planID, err)
			a.FuelError = "Error fetching fuel data"
		} else {
			a.Fuel = est
		}
	}

	return a, nil
}
