package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gkiss/odp-extremes-service/internal/observability"
)

var (
	// ErrNotFound means the feed has no archive for the requested date:
	// too recent, too old, or a reporting gap. Expected and user-facing.
	ErrNotFound = errors.New("no archive for date")

	// ErrTransport covers network-level failures reaching the feed
	// (timeout, DNS, connection reset) and an open circuit breaker.
	ErrTransport = errors.New("feed unreachable")

	// ErrMalformedArchive means the archive was fetched but contains no
	// usable CSV member.
	ErrMalformedArchive = errors.New("malformed archive")
)

// Fetcher retrieves the raw daily archive for a date.
type Fetcher interface {
	FetchDailyArchive(ctx context.Context, date time.Time) ([]byte, error)
	Ping(ctx context.Context) error
}

// Client fetches daily archives from the ODP weather report feed. A single
// blocking GET per call, no retries; a circuit breaker fails fast while the
// feed is down.
type Client struct {
	baseURL    string
	legacyName bool
	timeout    time.Duration
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient validates baseURL and returns a feed client. timeout bounds the
// whole fetch including body read.
func NewClient(baseURL string, timeout time.Duration, legacyName bool) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("feed base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid feed base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "odp_feed",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			observability.RecordCircuitBreakerTransition(from.String(), to.String())
		},
	})

	return &Client{
		baseURL:    baseURL,
		legacyName: legacyName,
		timeout:    timeout,
		breaker:    breaker,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ArchiveURL returns the full remote URL for the date's archive.
func (c *Client) ArchiveURL(date time.Time) string {
	return c.baseURL + "/" + Name(date, c.legacyName)
}

// ArchiveName returns the archive filename the client will request for date.
func (c *Client) ArchiveName(date time.Time) string {
	return Name(date, c.legacyName)
}

// FetchDailyArchive performs one GET for the date's archive and returns the
// raw zip bytes. Non-success statuses map to ErrNotFound, network failures
// to ErrTransport. Only transport failures count against the breaker; a
// missing date is an expected feed condition.
func (c *Client) FetchDailyArchive(ctx context.Context, date time.Time) ([]byte, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, date)
	})

	duration := time.Since(start).Seconds()
	if err != nil {
		observability.ArchiveFetchesTotal.WithLabelValues("error").Inc()
		observability.ArchiveFetchDuration.WithLabelValues("error").Observe(duration)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrTransport)
		}
		return nil, err
	}

	fetched := result.(*fetchResult)
	if fetched.status != http.StatusOK {
		observability.ArchiveFetchesTotal.WithLabelValues("not_found").Inc()
		observability.ArchiveFetchDuration.WithLabelValues("not_found").Observe(duration)
		return nil, fmt.Errorf("%w: %s (HTTP %d)", ErrNotFound, date.Format("2006-01-02"), fetched.status)
	}

	observability.ArchiveFetchesTotal.WithLabelValues("success").Inc()
	observability.ArchiveFetchDuration.WithLabelValues("success").Observe(duration)
	observability.ArchiveBytesFetched.Observe(float64(len(fetched.body)))
	return fetched.body, nil
}

// fetchResult separates HTTP statuses from transport errors so that a missing
// date does not trip the breaker.
type fetchResult struct {
	status int
	body   []byte
}

func (c *Client) fetch(ctx context.Context, date time.Time) (*fetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.ArchiveURL(date), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/zip")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: timeout: %v", ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &fetchResult{status: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return &fetchResult{status: resp.StatusCode, body: body}, nil
}

// Ping checks feed reachability for health checks. Any HTTP response counts
// as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return nil
}
