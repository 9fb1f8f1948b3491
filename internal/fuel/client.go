package fuel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/flight-route-planner/internal/upstream"
)

// DefaultBaseURL is the public flight fuel estimation API.
const DefaultBaseURL = "https://despouy.ca/flight-fuel-api/q/"

const maxBody = 1 << 20

// Estimate is one fuel/CO2 estimate for an aircraft over a distance.
type Estimate struct {
	ICAO24   string  `json:"icao24"`
	Distance float64 `json:"distance"`
	Fuel     float64 `json:"fuel"`
	CO2      float64 `json:"co2"`
	ICAO     string  `json:"icao"`
	IATA     string  `json:"iata"`
	Model    string  `json:"model"`
	GCD      bool    `json:"gcd"`
}

// Client queries the fuel estimator.
type Client struct {
	baseURL string
	doer    *upstream.Doer
}

func NewClient(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		doer: upstream.NewDoer(upstream.Config{
			Name:   "fuel",
			Client: client,
			Retry:  upstream.NoRetry,
		}),
	}
}

// Raw returns the estimator's JSON array exactly as received.
func (c *Client) Raw(ctx context.Context, aircraft string, distanceKm float64) (json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("aircraft", aircraft)
		values.Set("distance", strconv.FormatFloat(distanceKm, 'f', -1, 64))
		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := c.doer.Do(ctx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read fuel response: %v", upstream.ErrUpstream, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: fuel response is not a JSON array: %v", upstream.ErrUpstream, err)
	}
	return json.RawMessage(body), nil
}

// Estimate returns the decoded estimates.
func (c *Client) Estimate(ctx context.Context, aircraft string, distanceKm float64) ([]Estimate, error) {
	raw, err := c.Raw(ctx, aircraft, distanceKm)
	if err != nil {
		return nil, err
	}

	var out []Estimate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode fuel estimates: %v", upstream.ErrUpstream, err)
	}
	return out, nil
}
