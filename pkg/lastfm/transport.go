package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/syncfm/internal/retry"
)

// Base represents the root XML response from Last.fm API.
type Base struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Inner   []byte   `xml:",innerxml"`
}

// APIError represents an error response from the Last.fm API.
type APIError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

const (
	apiStatusOK     = "ok"
	apiStatusFailed = "failed"
)

// call makes a single HTTP request to the Last.fm API.
//
// It handles:
// - Request construction with proper headers
// - Signature calculation for authenticated requests
// - Response parsing (XML)
// - Failure classification for the caller's retry executor
// - Context cancellation
//
// The transport never retries on its own: transient and rate-limit
// conditions are wrapped with the retry package's marker types and the
// decision belongs to the call site's executor.
func (c *Client) call(ctx context.Context, method string, params map[string]string, requiresAuth bool) ([]byte, error) {
	// Build request parameters
	reqParams := make(map[string]string)
	for k, v := range params {
		reqParams[k] = v
	}
	reqParams["method"] = method
	reqParams["api_key"] = c.apiKey

	// Add session key for authenticated requests
	if requiresAuth {
		if c.sessionKey == "" {
			return nil, ErrNoSessionKey
		}
		reqParams["sk"] = c.sessionKey
	}

	// Calculate signature
	signature := calculateSignature(reqParams, c.apiSecret)

	// Build form data
	formData := url.Values{}
	for k, v := range reqParams {
		formData.Add(k, v)
	}
	formData.Add("api_sig", signature)

	c.logDebugf("lastfm: calling %s", method)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "syncfm/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(fmt.Errorf("http request failed: %w", err))
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	// Handle HTTP status codes
	if resp.StatusCode == http.StatusTooManyRequests {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		return nil, retry.RateLimited(httpErr, httpErr.RetryAfter)
	}
	if resp.StatusCode >= 500 {
		return nil, retry.Transient(&HTTPError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// Parse XML response
	var base Base
	if err := xml.Unmarshal(body, &base); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	// Check for API errors
	if base.Status == apiStatusFailed {
		var apiErr APIError
		if err := xml.Unmarshal(base.Inner, &apiErr); err != nil {
			return nil, fmt.Errorf("failed to parse error response: %w", err)
		}

		lastfmErr := &Error{
			Code:    apiErr.Code,
			Message: strings.TrimSpace(apiErr.Message),
		}

		switch {
		case lastfmErr.Code == ErrCodeRateLimitExceeded:
			return nil, retry.RateLimited(lastfmErr, 0)
		case lastfmErr.Temporary():
			return nil, retry.Transient(lastfmErr)
		default:
			return nil, lastfmErr
		}
	}

	c.logDebugf("lastfm: %s succeeded", method)
	return base.Inner, nil
}

// parseRetryAfter parses a Retry-After header value given in seconds.
// Returns zero for absent or unparseable values.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
