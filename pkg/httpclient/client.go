package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Client is the outbound HTTP surface used by third-party integrations
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardHTTPClient wraps http.Client and records outbound call metrics
type StandardHTTPClient struct {
	client  *http.Client
	service string
}

// NewStandardClient creates a client for the named downstream service.
// A non-positive timeout falls back to 10s.
func NewStandardClient(service string, timeout time.Duration) *StandardHTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &StandardHTTPClient{
		client:  &http.Client{Timeout: timeout},
		service: service,
	}
}

// Do executes an HTTP request
func (c *StandardHTTPClient) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	duration := metrics.MeasureDuration(start)

	status := "error"
	if err == nil {
		status = fmt.Sprintf("%d", resp.StatusCode)
	}
	metrics.OutboundRequests.WithLabelValues(c.service, status).Inc()
	metrics.OutboundRequestDuration.WithLabelValues(c.service).Observe(duration)

	if err != nil {
		logger.Warn("Outbound request failed",
			zap.String("service", c.service),
			zap.String("host", req.URL.Host),
			zap.Float64("duration", duration),
			zap.Error(err))
	}
	return resp, err
}

// PostForm sends form values to rawURL and returns the response body.
// Non-2xx responses are errors.
func PostForm(ctx context.Context, c Client, rawURL string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return body, nil
}
