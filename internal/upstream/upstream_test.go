package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPolicy(maxRetries int, waits *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		Wait: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
}

func get(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestRetryPolicyDelayDoubles(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second}
	assert.Equal(t, 1*time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 16*time.Second, p.Delay(4))

	p.MaxDelay = 5 * time.Second
	assert.Equal(t, 5*time.Second, p.Delay(4))
}

func TestDoRetriesRateLimitedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var waits []time.Duration
	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: recordingPolicy(5, &waits)})

	resp, err := d.Do(context.Background(), get(srv.URL))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestDoRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var waits []time.Duration
	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: recordingPolicy(3, &waits)})

	_, err := d.Do(context.Background(), get(srv.URL))
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, waits, 3)
}

func TestDoDoesNotRetryOtherFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrUpstream},
		{"bad request", http.StatusBadRequest, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var waits []time.Duration
			d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: recordingPolicy(5, &waits)})

			_, err := d.Do(context.Background(), get(srv.URL))
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, waits)
		})
	}
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}
	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: policy})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := d.Do(ctx, get(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsInvalidConfig(t *testing.T) {
	d := NewDoer(Config{Name: "test", Client: http.DefaultClient, Retry: RetryPolicy{MaxRetries: 1}})
	_, err := d.Do(context.Background(), get("http://example.invalid"))
	assert.ErrorIs(t, err, errInvalidConfig)

	d = NewDoer(Config{Name: "test", Retry: NoRetry})
	_, err = d.Do(context.Background(), get("http://example.invalid"))
	assert.ErrorIs(t, err, errNoHTTPClient)
}

func TestBreakerIgnoresCancelledCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: NoRetry})

	for i := 0; i < 15; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := d.Do(ctx, get(srv.URL+"/slow"))
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUpstream)
	}
	assert.Equal(t, gobreaker.StateClosed, d.circuit.State())

	resp, err := d.Do(context.Background(), get(srv.URL+"/ok"))
	require.NoError(t, err)
	resp.Body.Close()
}

func TestBreakerIgnoresExhaustedRateLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/busy" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var waits []time.Duration
	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: recordingPolicy(5, &waits)})

	for i := 0; i < 3; i++ {
		_, err := d.Do(context.Background(), get(srv.URL+"/busy"))
		require.ErrorIs(t, err, ErrRateLimited)
	}
	assert.Equal(t, gobreaker.StateClosed, d.circuit.State())

	resp, err := d.Do(context.Background(), get(srv.URL+"/ok"))
	require.NoError(t, err)
	resp.Body.Close()
}

func TestBreakerTripsOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDoer(Config{Name: "test", Client: srv.Client(), Retry: NoRetry})

	for i := 0; i < 11; i++ {
		_, err := d.Do(context.Background(), get(srv.URL))
		require.ErrorIs(t, err, ErrUpstream)
	}
	_, err := d.Do(context.Background(), get(srv.URL))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
