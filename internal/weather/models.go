package weather

import (
	"fmt"
	"strings"
	"time"
)

// Condition is a normalized weather description.
type Condition string

// Conditions recognized by route weighting, mirroring the OpenWeatherMap
// descriptions. Anything else is ConditionOther.
const (
	ConditionClearSky        Condition = "clear sky"
	ConditionFewClouds       Condition = "few clouds"
	ConditionScatteredClouds Condition = "scattered clouds"
	ConditionBrokenClouds    Condition = "broken clouds"
	ConditionShowerRain      Condition = "shower rain"
	ConditionRain            Condition = "rain"
	ConditionThunderstorm    Condition = "thunderstorm"
	ConditionSnow            Condition = "snow"
	ConditionMist            Condition = "mist"
	ConditionOther           Condition = "other"
)

var knownConditions = map[Condition]struct{}{
	ConditionClearSky:        {},
	ConditionFewClouds:       {},
	ConditionScatteredClouds: {},
	ConditionBrokenClouds:    {},
	ConditionShowerRain:      {},
	ConditionRain:            {},
	ConditionThunderstorm:    {},
	ConditionSnow:            {},
	ConditionMist:            {},
}

// ParseCondition maps a free-form description onto a known Condition.
// Empty or unrecognized descriptions yield ConditionOther.
func ParseCondition(description string) Condition {
	c := Condition(strings.ToLower(strings.TrimSpace(description)))
	if _, ok := knownConditions[c]; ok {
		return c
	}
	return ConditionOther
}

// Position is a point on the globe in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical cache key, rounding to roughly a kilometre.
func (p Position) Key() string {
	return fmt.Sprintf("%.2f:%.2f", p.Lat, p.Lon)
}

// Snapshot is the current weather at one position.
// Visibility and WindSpeed are nil when the provider did not report them.
type Snapshot struct {
	Position     Position  `json:"position"`
	Description  string    `json:"description"`
	Visibility   *float64  `json:"visibility,omitempty"` // meters
	WindSpeed    *float64  `json:"windSpeed,omitempty"`  // m/s
	TemperatureK float64   `json:"temperatureK"`
	TemperatureC float64   `json:"temperatureC"`
	Humidity     float64   `json:"humidityPercent"`
	Sunrise      time.Time `json:"sunrise"`
	Sunset       time.Time `json:"sunset"`
	Timestamp    time.Time `json:"timestamp"` // always UTC
}

// Condition returns the normalized description.
func (s Snapshot) Condition() Condition {
	return ParseCondition(s.Description)
}

// KelvinToCelsius converts an absolute temperature.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}
