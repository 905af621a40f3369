// Package ica downloads per-feeder hosting-capacity time series from a
// utility's ICA map download endpoint.
package ica

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gridcap/icafetch/internal/config"
)

// AuthError represents an authentication failure
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// statusError marks a non-success HTTP status so retry logic can tell
// transient server errors from permanent client errors
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("download returned status %d: %s", e.StatusCode, e.Body)
}

// Client fetches feeder time series using saved map-session cookies
type Client struct {
	dataURL    string
	cookies    []config.Cookie
	authToken  string
	retries    int
	httpClient *http.Client
}

// New creates a download client. dataURL is the base URL the map serves
// per-feeder archives from; the feeder ID and ".zip" are appended to it.
func New(dataURL string, cookies []config.Cookie, authToken string, retries int, timeout time.Duration) *Client {
	if !strings.HasSuffix(dataURL, "/") {
		dataURL += "/"
	}
	return &Client{
		dataURL:   dataURL,
		cookies:   cookies,
		authToken: authToken,
		retries:   retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchTimeseries downloads the time series for one feeder and returns the
// payload bytes. The service wraps each CSV in a zip archive; the archive is
// unwrapped here and the inner CSV returned verbatim. Plain csv/text
// responses are returned as-is. The payload is never parsed or validated.
func (c *Client) FetchTimeseries(ctx context.Context, feederID string) ([]byte, error) {
	if feederID == "" {
		return nil, fmt.Errorf("empty feeder ID")
	}

	url := c.dataURL + feederID + ".zip"

	var payload []byte
	op := func() error {
		body, contentType, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		// A truncated or corrupt archive is worth another request
		payload, err = unwrap(body, contentType, feederID)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)),
		ctx,
	)

	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		// Auth failures and other 4xx won't heal on retry
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return backoff.Permanent(err)
		}
		var stErr *statusError
		if errors.As(err, &stErr) && stErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", feederID, err)
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("fetching %s: empty payload", feederID)
	}

	return payload, nil
}

// get issues one download request with the saved session
func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	for _, cookie := range c.cookies {
		req.AddCookie(&http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Expires:  time.Unix(int64(cookie.Expires), 0),
			HttpOnly: cookie.HTTPOnly,
			Secure:   cookie.Secure,
		})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("authentication failed (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// unwrap extracts the feeder CSV from a zip envelope, or passes plain
// payloads through untouched
func unwrap(body []byte, contentType, feederID string) ([]byte, error) {
	if !isZip(body, contentType) {
		return body, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("opening zip for %s: %w", feederID, err)
	}

	// Prefer <id>.csv; fall back to the first csv in the archive
	var file *zip.File
	for _, f := range zr.File {
		if f.Name == feederID+".csv" {
			file = f
			break
		}
		if file == nil && strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			file = f
		}
	}
	if file == nil {
		return nil, fmt.Errorf("zip for %s contains no csv", feederID)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in zip: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", file.Name, err)
	}

	return data, nil
}

// isZip sniffs the payload; the service is not consistent about content types
func isZip(body []byte, contentType string) bool {
	if strings.Contains(contentType, "zip") {
		return true
	}
	return len(body) >= 4 && bytes.HasPrefix(body, []byte("PK\x03\x04"))
}
