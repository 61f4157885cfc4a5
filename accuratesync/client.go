package accuratesync

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const DefaultBaseURL = "https://zeus.accurate.id/accurate/api"

// ErrMissingAccessToken is returned when no Accurate access token is
// configured. Callers must treat this as fatal and not retry.
var ErrMissingAccessToken = errors.New("ACCURATE_ACCESS_TOKEN is not configured")

// UpstreamError is a non-2xx response from the Accurate API. The raw body is
// kept because Accurate reports most failures as 200-wrapped errors and the
// remaining ones carry useful plain-text diagnostics.
type UpstreamError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("accurate api %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

type Config struct {
	BaseURL         string
	AccessToken     string
	SignatureSecret string
	HTTPClient      *http.Client
	Now             func() time.Time
}

// Client is a thin signed HTTP client for the Accurate API. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	baseURL         string
	accessToken     string
	signatureSecret string
	http            *http.Client
	now             func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, ErrMissingAccessToken
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:         baseURL,
		accessToken:     cfg.AccessToken,
		signatureSecret: cfg.SignatureSecret,
		http:            httpClient,
		now:             now,
	}, nil
}

func NewClientFromEnv() (*Client, error) {
	return NewClient(Config{
		BaseURL:         os.Getenv("ACCURATE_API_BASE_URL"),
		AccessToken:     os.Getenv("ACCURATE_ACCESS_TOKEN"),
		SignatureSecret: os.Getenv("ACCURATE_SIGNATURE_SECRET"),
	})
}

// signature returns the X-Api-Timestamp and X-Api-Signature header values:
// base64(HMAC-SHA256(secret, timestamp)) over the ISO-8601 UTC timestamp.
func (c *Client) signature() (timestamp, sig string) {
	timestamp = c.now().UTC().Format(time.RFC3339)
	mac := hmac.New(sha256.New, []byte(c.signatureSecret))
	mac.Write([]byte(timestamp))
	sig = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return timestamp, sig
}

// Get performs a signed GET against the given API path (e.g.
// "/purchase-order/list.do") and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if c.signatureSecret != "" {
		timestamp, sig := c.signature()
		req.Header.Set("X-Api-Timestamp", timestamp)
		req.Header.Set("X-Api-Signature", sig)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("accurate api %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("accurate api %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
