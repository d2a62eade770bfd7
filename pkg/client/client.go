// Package client provides a paging.DataSource backed by the HTTP image provider,
// with retry and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/metrics"
	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// Prometheus metrics for provider client operations.
var (
	clientRequestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "paging_client_requests_total",
		Help: "Total provider requests by status",
	}, []string{"status"})

	clientRequestDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "paging_client_request_duration_seconds",
		Help:    "Provider request duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})

	clientErrorsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "paging_client_errors_total",
		Help: "Total provider errors by class",
	}, []string{"class"})
)

const (
	// ImagesPath is the provider's page endpoint.
	ImagesPath = "/images"

	// TotalCountHeader carries the collection size on every page response.
	TotalCountHeader = "X-Total-Count"

	// maxBodySize bounds a decoded page response.
	maxBodySize = 4 << 20
)

var validate = validator.New()

// Client fetches pages from the image provider.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the provider, e.g. http://localhost:8080
	BaseURL string `validate:"required,url"`

	// UserAgent header sent with each request.
	UserAgent string

	// Timeout per HTTP attempt. Ignored when HTTPClient is set.
	Timeout time.Duration `validate:"gte=0"`

	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client `validate:"-"`

	// Retry policy for server, rate limit and network errors.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "provider-paging/0.1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new provider client.
func New(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     log.With().Str("component", "client").Str("provider", base.String()).Logger(),
	}, nil
}

// FetchPage implements paging.DataSource.
func (c *Client) FetchPage(ctx context.Context, req paging.PageRequest) (*paging.FetchResult, error) {
	startTime := time.Now()
	defer func() {
		clientRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	pageURL := c.pageURL(req)

	var result *paging.FetchResult
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var attemptErr error
		result, attemptErr = c.fetchOnce(ctx, pageURL)
		if attemptErr != nil {
			class := classOf(attemptErr)
			clientErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Err(attemptErr).
				Int("offset", req.Offset).
				Int("limit", req.Limit).
				Str("error_class", string(class)).
				Msg("Provider request error")
		}
		return attemptErr
	}, classOf)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("offset", req.Offset).
		Int("records", len(result.Records)).
		Int("total_count", result.TotalCount).
		Msg("Fetched page from provider")

	return result, nil
}

func (c *Client) pageURL(req paging.PageRequest) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + ImagesPath
	q := url.Values{}
	q.Set("offset", strconv.Itoa(req.Offset))
	q.Set("limit", strconv.Itoa(req.Limit))
	u.RawQuery = q.Encode()
	return u.String()
}

// fetchOnce performs a single attempt.
func (c *Client) fetchOnce(ctx context.Context, pageURL string) (*paging.FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ProviderError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		clientRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &ProviderError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	clientRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var result paging.FetchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&result); err != nil {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode page",
			Err:        err,
		}
	}

	if header := resp.Header.Get(TotalCountHeader); header != "" && result.TotalCount == 0 {
		if total, err := strconv.Atoi(header); err == nil {
			result.TotalCount = total
		}
	}

	return &result, nil
}

// classifyStatus categorizes a non-200 status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

var _ paging.DataSource = (*Client)(nil)
