// Package vision implements the Recognizer port against a remote OCR
// HTTP endpoint (Azure Computer Vision wire contract).
package vision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// subscriptionKeyHeader authenticates requests to the OCR endpoint.
const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// queryParams asks for language auto-detection and orientation detection.
const queryParams = "language=unk&detectOrientation=true"

// Conservative defaults well below the service quota.
const (
	requestsPerSecond = 5.0
	burstSize         = 5
)

// Config keys read by the client.
const (
	ConfigKeyEndpoint = "ocr.endpoint"
	ConfigKeyKey      = "ocr.key"
)

// Ensure Client implements the interface.
var _ driven.Recognizer = (*Client)(nil)

// Client submits file bytes to the OCR endpoint. One attempt per file:
// no retry, no backoff. A token-bucket limiter caps the request rate.
type Client struct {
	config  driven.ConfigStore
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an OCR client backed by the given configuration.
// Endpoint and key are read lazily per request so a config reload takes
// effect without rebuilding the client.
func NewClient(config driven.ConfigStore) *Client {
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}
}

// Recognize posts the raw bytes and decodes the recognition result.
func (c *Client) Recognize(ctx context.Context, data []byte) (*domain.OCRResult, error) {
	endpoint := c.config.GetString(ConfigKeyEndpoint)
	key := c.config.GetString(ConfigKeyKey)
	if endpoint == "" || key == "" {
		return nil, fmt.Errorf("missing %s or %s configuration", ConfigKeyEndpoint, ConfigKeyKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	uri := endpoint
	if strings.Contains(endpoint, "?") {
		uri += "&" + queryParams
	} else {
		uri += "?" + queryParams
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(subscriptionKeyHeader, key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RemoteError{
			Service:    "ocr",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			URL:        resp.Request.URL.String(),
		}
	}

	return domain.DecodeOCRResult(body)
}
