// Package weather queries the current condition from weatherapi.com.
// Calls go through a circuit breaker and retry 429/5xx responses with backoff.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"weather-wallpaper/internal/config"
	"weather-wallpaper/internal/engine"
)

// ErrNotConfigured means no api key or location is set.
var ErrNotConfigured = errors.New("weather provider not configured")

// Source supplies one condition per polling cycle.
type Source interface {
	Current(ctx context.Context) (engine.Condition, error)
}

// RetryPolicy bounds retries of transient upstream failures.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

type apiResponse struct {
	Current struct {
		Condition struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

// Client talks to the weatherapi.com current.json endpoint.
type Client struct {
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	retry    RetryPolicy
	baseURL  string
	apiKey   string
	location string
	sleepFn  func(context.Context, time.Duration) error
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSleepFunc overrides the wait between retries, for tests.
func WithSleepFunc(fn func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleepFn = fn }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(cfg config.Weather, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout()},
		retry:    DefaultRetryPolicy(),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		location: cfg.Location,
		sleepFn:  sleepCtx,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "weatherapi",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches and maps the current condition code.
func (c *Client) Current(ctx context.Context) (engine.Condition, error) {
	if c.apiKey == "" || c.location == "" {
		return engine.Clear, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", c.location)
	q.Set("aqi", "no")
	endpoint := c.baseURL + "/current.json?" + q.Encode()

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return engine.Clear, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return engine.Clear, fmt.Errorf("weather api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return engine.Clear, fmt.Errorf("decode weather response: %w", err)
	}
	return ConditionForCode(out.Current.Condition.Code), nil
}

func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	var lastErr error
	attempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleepFn(ctx, c.backoff(attempt)); err != nil {
				return nil, fmt.Errorf("fetch weather: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", "weather-wallpaper/1.0")

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				r.Body.Close()
				return nil, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("weather api unavailable: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch weather: %w", lastErr)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(c.retry.MinWait) * math.Pow(2, float64(attempt-1)))
	if c.retry.MaxWait > 0 && wait > c.retry.MaxWait {
		wait = c.retry.MaxWait
	}
	return wait
}
