package scraper

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultTimeout bounds a single remote scraping call. Scraping a
	// declaration set drives a real browser session remotely, so this is
	// deliberately generous.
	defaultTimeout = 3 * time.Minute

	// maxResponseSize caps how much of a remote response we will buffer (10MB)
	maxResponseSize = 10 * 1024 * 1024

	userAgent = "sence-sync-server/1.0"
)

// Client talks to the external SENCE scraping service.
type Client interface {
	// FetchDeclarations submits a scraping run and returns the raw result
	// payload. The call is made exactly once; retry policy belongs to the
	// operator re-initiating the flow, not to this client.
	FetchDeclarations(ctx context.Context, req FetchRequest) (*FetchResult, error)

	// RegisterCourse registers a course identifier in the external platform.
	RegisterCourse(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
}

// DefaultClient is the production HTTP implementation of Client.
type DefaultClient struct {
	endpoint string
	client   *http.Client
}

// NewDefaultClient creates a client for the scraping service at endpoint.
// A zero timeout uses the default.
func NewDefaultClient(endpoint string, timeout time.Duration) *DefaultClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DefaultClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDeclarations implements Client.
func (c *DefaultClient) FetchDeclarations(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if len(req.Cookies) == 0 {
		return nil, ErrInvalidCredentials
	}

	body, err := c.post(ctx, c.endpoint+"/declarations", req)
	if err != nil {
		return nil, err
	}

	return &FetchResult{Payload: body}, nil
}

// RegisterCourse implements Client. Cookies are optional here: the remote
// service holds its own service session for registration flows.
func (c *DefaultClient) RegisterCourse(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if strings.TrimSpace(req.SenceCode) == "" {
		return nil, fmt.Errorf("sence code cannot be empty")
	}

	body, err := c.post(ctx, c.endpoint+"/courses/register", req)
	if err != nil {
		return nil, err
	}

	var result RegisterResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	return &result, nil
}

// post sends a JSON request and returns the response body, bounded by
// maxResponseSize.
func (c *DefaultClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response size %d exceeds maximum allowed size of %d bytes",
			resp.ContentLength, maxResponseSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum allowed size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidCredentials, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status from scraping service: HTTP %d: %s",
			resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
