package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/flight-route-planner/internal/upstream"
	"github.com/i474232898/flight-route-planner/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current-weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	doer    *upstream.Doer
}

func NewOpenWeatherProvider(client *http.Client, baseURL, apiKey string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: baseURL,
		doer: upstream.NewDoer(upstream.Config{
			Name:   "openweather",
			Client: client,
			Retry:  upstream.NoRetry,
		}),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Dt      int64 `json:"dt"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, pos weather.Position) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(pos.Lon, 'f', -1, 64))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := p.doer.Do(ctx, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("%w: decode openweather: %v", upstream.ErrUpstream, err)
	}

	return payload.toSnapshot(pos), nil
}

func (p openWeatherPayload) toSnapshot(pos weather.Position) weather.Snapshot {
	ts := time.Unix(p.Dt, 0).UTC()
	if p.Dt == 0 {
		ts = time.Now().UTC()
	}

	var desc string
	if len(p.Weather) > 0 {
		desc = p.Weather[0].Description
	}

	return weather.Snapshot{
		Position:     pos,
		Description:  desc,
		Visibility:   p.Visibility,
		WindSpeed:    p.Wind.Speed,
		TemperatureK: p.Main.Temp,
		TemperatureC: weather.KelvinToCelsius(p.Main.Temp),
		Humidity:     p.Main.Humidity,
		Sunrise:      unixOrZero(p.Sys.Sunrise),
		Sunset:       unixOrZero(p.Sys.Sunset),
		Timestamp:    ts,
	}
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
