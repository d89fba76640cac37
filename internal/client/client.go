package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eedu7/weather-api/internal/models"
	"github.com/eedu7/weather-api/internal/observability"
)

// WeatherFetcher issues one request to the upstream weather provider.
type WeatherFetcher interface {
	Fetch(ctx context.Context, q models.Query) (json.RawMessage, error)
}

var (
	// ErrInvalidKeyOrURL covers any non-2xx provider response: a rejected key
	// or a request the provider could not serve.
	ErrInvalidKeyOrURL = errors.New("invalid API key or url")

	// ErrTimeout covers a provider call that exceeded the configured timeout.
	ErrTimeout = errors.New("upstream timeout")
)

// RequestError covers transport failures and unparseable responses; Detail
// carries the underlying failure's text for the caller.
type RequestError struct {
	Detail string
	Err    error
}

func (e *RequestError) Error() string { return e.Detail }

func (e *RequestError) Unwrap() error { return e.Err }

// VisualCrossingClient fetches timeline weather data from Visual Crossing.
// One attempt per call, no retries. An optional token-bucket throttle gates
// outbound calls to keep the proxy within the provider's own limits.
type VisualCrossingClient struct {
	apiKey   string
	apiURL   string
	timeout  time.Duration
	client   *http.Client
	throttle *rate.Limiter
}

// NewVisualCrossingClient creates a client. rps 0 disables the outbound
// throttle.
func NewVisualCrossingClient(apiKey, apiURL string, timeout time.Duration, rps, burst int) (*VisualCrossingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidKeyOrURL)
	}

	var throttle *rate.Limiter
	if rps > 0 {
		throttle = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &VisualCrossingClient{
		apiKey:   apiKey,
		apiURL:   apiURL,
		timeout:  timeout,
		throttle: throttle,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BuildURL concatenates the base endpoint, the city, the optional date
// segments in start-then-end order, and the API key. Pure, no I/O. An end
// date without a start date still appends as a single segment.
func (c *VisualCrossingClient) BuildURL(q models.Query) string {
	url := c.apiURL + q.City
	if q.StartDate != "" {
		url += "/" + q.StartDate
	}
	if q.EndDate != "" {
		url += "/" + q.EndDate
	}
	return url + "?key=" + c.apiKey
}

// Fetch issues one GET for the query and returns the provider's JSON body
// verbatim. Failures are classified as ErrInvalidKeyOrURL (non-2xx status),
// ErrTimeout, or RequestError (any other transport or parse failure).
func (c *VisualCrossingClient) Fetch(ctx context.Context, q models.Query) (json.RawMessage, error) {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, c.classifyTransport(err)
		}
	}

	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.BuildURL(q), nil)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, &RequestError{Detail: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		outcome := "error"
		classified := c.classifyTransport(err)
		if errors.Is(classified, ErrTimeout) {
			outcome = "timeout"
		}
		observability.UpstreamCallsTotal.WithLabelValues(outcome).Inc()
		observability.UpstreamDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		return nil, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamCallsTotal.WithLabelValues("status_error").Inc()
		observability.UpstreamDuration.WithLabelValues("status_error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidKeyOrURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, &RequestError{Detail: fmt.Sprintf("read response body: %v", err), Err: err}
	}
	if !json.Valid(body) {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, &RequestError{Detail: "parse response: invalid JSON from provider", Err: nil}
	}

	observability.UpstreamCallsTotal.WithLabelValues("success").Inc()
	observability.UpstreamDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return body, nil
}

// classifyTransport maps a transport-level failure to the error taxonomy.
func (c *VisualCrossingClient) classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &RequestError{Detail: err.Error(), Err: err}
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}
