package flightplan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/flight-route-planner/internal/upstream"
)

// DefaultBaseURL is the public Flight Plan Database API.
const DefaultBaseURL = "https://api.flightplandatabase.com"

// Client talks to the flight plan database.
type Client struct {
	apiKey  string
	baseURL string
	doer    *upstream.Doer
}

// NewClient creates a Client. Rate-limited calls are retried according to
// retry; every other failure is returned as is.
func NewClient(client *http.Client, baseURL, apiKey string, retry upstream.RetryPolicy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		doer: upstream.NewDoer(upstream.Config{
			Name:   "flightplandatabase",
			Client: client,
			Retry:  retry,
		}),
	}
}

// Search returns the plans between two airports with near-duplicates removed.
func (c *Client) Search(ctx context.Context, fromICAO, toICAO string) ([]FlightPath, error) {
	values := url.Values{}
	values.Set("fromICAO", fromICAO)
	values.Set("toICAO", toICAO)

	var plans []FlightPath
	if err := c.getJSON(ctx, "/search/plans?"+values.Encode(), &plans); err != nil {
		return nil, err
	}

	unique := Dedupe(plans)
	log.Printf("DEBUG: flightplan: search %s-%s returned %d plans, %d unique", fromICAO, toICAO, len(plans), len(unique))
	return unique, nil
}

// Get returns one plan including its route.
func (c *Client) Get(ctx context.Context, id int64) (FlightPath, error) {
	var plan FlightPath
	if err := c.getJSON(ctx, "/plan/"+strconv.FormatInt(id, 10), &plan); err != nil {
		return FlightPath{}, err
	}
	if err := plan.Validate(); err != nil {
		return FlightPath{}, fmt.Errorf("%w: %v", upstream.ErrUpstream, err)
	}
	return plan, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			// The API takes the key as the basic-auth user with an empty password.
			req.SetBasicAuth(c.apiKey, "")
		}
		return req, nil
	}

	resp, err := c.doer.Do(ctx, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", upstream.ErrUpstream, path, err)
	}
	return nil
}
