package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = errors.New("upstream resource not found")
	// ErrRateLimited is returned when the upstream keeps answering 429
	// after all retries were spent.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrUpstream covers every other non-2xx answer, transport failure
	// or undecodable payload.
	ErrUpstream = errors.New("upstream request failed")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

// RetryPolicy controls exponential backoff on rate-limited responses.
// Only 429 answers are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration // 0 = uncapped

	// Wait blocks for d or until ctx is done. Nil means a real timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// NoRetry is the policy for upstreams that are never retried.
var NoRetry = RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}

// Delay returns the backoff before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.Wait != nil {
		return p.Wait(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config bundles the HTTP client and resilience settings of one upstream.
type Config struct {
	Name   string
	Client *http.Client
	Retry  RetryPolicy
}

// Doer executes requests against one upstream through a circuit breaker.
type Doer struct {
	cfg     Config
	circuit *gobreaker.CircuitBreaker
}

// NewDoer creates a Doer with the breaker settings shared by all upstreams.
func NewDoer(cfg Config) *Doer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 10
		},
		// A missing plan is an answer, not an outage. 429s are handled by the
		// retry loop and an abandoned call says nothing about the upstream.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrRateLimited) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: circuit %s changed from %s to %s", name, from, to)
		},
	})

	return &Doer{cfg: cfg, circuit: cb}
}

// Do executes the request built by buildRequest, retrying with exponential
// backoff while the upstream answers 429. The caller must close the body of
// the returned response.
func (d *Doer) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if d.cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	policy := d.cfg.Retry
	if policy.MaxRetries < 0 || policy.BaseDelay <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := d.circuit.Execute(func() (interface{}, error) {
			resp, execErr := d.cfg.Client.Do(req)
			if execErr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("%w: %v", ErrUpstream, execErr)
			}
			if err := classify(resp.StatusCode); err != nil {
				drain(resp)
				return nil, err
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", ErrUpstream)
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, d.cfg.Name, err)
		}

		if !errors.Is(err, ErrRateLimited) || attempt >= policy.MaxRetries {
			return nil, err
		}

		delay := policy.Delay(attempt)
		log.Printf("INFO: %s rate limited, retrying in %s (attempt %d/%d)", d.cfg.Name, delay, attempt+1, policy.MaxRetries)
		if err := policy.wait(ctx, delay); err != nil {
			return nil, err
		}

		attempt++
	}
}

func classify(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status < 200 || status >= 300:
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
