package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "dynasty-values/1.0"
	maxBodyBytes     = 64 << 20 // the Sleeper universe is ~15MB
)

// HTTPFetcher is the shared outbound client for every adapter. Requests are
// rate limited and, when a breaker is configured, run through it.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    Breaker
	logger     *logrus.Logger
	userAgent  string
}

// NewHTTPFetcher creates a fetcher. rps <= 0 disables rate limiting and a
// nil breaker executes calls unguarded.
func NewHTTPFetcher(timeout time.Duration, rps float64, breaker Breaker, logger *logrus.Logger) *HTTPFetcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   breaker,
		logger:    logger,
		userAgent: defaultUserAgent,
	}
}

// Get fetches url on behalf of source and returns the body of a 2xx response.
func (f *HTTPFetcher) Get(ctx context.Context, source, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	call := func() (interface{}, error) {
		return f.do(ctx, source, url)
	}

	var (
		result interface{}
		err    error
	)
	if f.breaker != nil {
		result, err = f.breaker.Execute(source, call)
	} else {
		result, err = call()
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (f *HTTPFetcher) do(ctx context.Context, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", source, err)
	}
	defer resp.Body.Close()

	logger.WithSource(f.logger, source).WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("External request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: source, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", source, err)
	}
	return body, nil
}
