package route

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/i474232898/flight-route-planner/internal/flightplan"
	"github.com/i474232898/flight-route-planner/internal/weather"
)

var (
	// ErrNoWaypoints is returned for a path without route nodes.
	ErrNoWaypoints = errors.New("flight path has no waypoints")
	// ErrIncompleteData is returned when there is not exactly one weather
	// snapshot per waypoint.
	ErrIncompleteData = errors.New("weather data does not cover every waypoint")
)

const (
	MaxWeight = 10

	lowVisibilityMeters  = 5000
	lowVisibilityPenalty = 2
	highWindMS           = 10
	highWindPenalty      = 3
)

// conditionWeights orders conditions by flight risk. Anything missing from
// the table, including an absent description, weighs MaxWeight.
var conditionWeights = map[weather.Condition]int{
	weather.ConditionClearSky:        1,
	weather.ConditionFewClouds:       2,
	weather.ConditionScatteredClouds: 3,
	weather.ConditionBrokenClouds:    4,
	weather.ConditionShowerRain:      5,
	weather.ConditionRain:            6,
	weather.ConditionThunderstorm:    7,
	weather.ConditionSnow:            8,
	weather.ConditionMist:            9,
}

// Weight is a route hazard score in [0, 10] with three decimals.
type Weight float64

// String formats the weight with exactly three decimals.
func (w Weight) String() string {
	return decimal.NewFromFloat(float64(w)).StringFixed(3)
}

// MarshalJSON encodes the weight as a number with exactly three decimals.
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.String()), nil
}

// ConditionWeight returns the severity of a condition.
func ConditionWeight(c weather.Condition) int {
	if w, ok := conditionWeights[c]; ok {
		return w
	}
	return MaxWeight
}

// WaypointWeight is the condition weight of one snapshot plus the
// visibility and wind penalties. Unreported visibility or wind adds nothing.
func WaypointWeight(s weather.Snapshot) int {
	w := ConditionWeight(s.Condition())
	if s.Visibility != nil && *s.Visibility < lowVisibilityMeters {
		w += lowVisibilityPenalty
	}
	if s.WindSpeed != nil && *s.WindSpeed > highWindMS {
		w += highWindPenalty
	}
	return w
}

// ComputeWeight averages the per-waypoint weights of path, caps the mean at
// MaxWeight and rounds it to three decimals, half away from zero.
// snapshots[i] must describe path's waypoint i.
func ComputeWeight(path flightplan.FlightPath, snapshots []weather.Snapshot) (Weight, error) {
	nodes := path.Nodes()
	if len(nodes) == 0 {
		return 0, ErrNoWaypoints
	}
	if len(snapshots) != len(nodes) {
		return 0, fmt.Errorf("%w: %d snapshots for %d waypoints", ErrIncompleteData, len(snapshots), len(nodes))
	}

	total := 0
	for _, s := range snapshots {
		total += WaypointWeight(s)
	}

	score := decimal.NewFromInt(int64(total)).
		DivRound(decimal.NewFromInt(int64(len(nodes))), 16)
	score = decimal.Min(score, decimal.NewFromInt(MaxWeight))

	return Weight(score.Round(3).InexactFloat64()), nil
}
