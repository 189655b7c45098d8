// Package subsonic provides a read-only client for the Subsonic API as
// served by Navidrome, covering the catalog endpoints needed to enumerate
// a library's tracks with their local playcounts.
package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jfmyers9/syncfm/internal/retry"
)

const (
	// apiVersion is the Subsonic protocol version sent with every request.
	apiVersion = "1.16.1"

	// clientName identifies this client to the server.
	clientName = "syncfm"
)

// Config holds client configuration.
type Config struct {
	BaseURL    string       // Required: server base URL, e.g. https://music.example.com
	Username   string       // Required: Subsonic username
	Password   string       // Required: Subsonic password (used for salted token auth, never sent)
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	Logger     Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the entry point for Subsonic API operations.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     Logger

	library *LibraryService
}

// NewClient creates a new Subsonic API client.
//
// Returns an error if required configuration is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("subsonic: BaseURL is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("subsonic: Username is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("subsonic: Password is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
	c.library = &LibraryService{client: c}

	return c, nil
}

// Library returns the catalog service.
func (c *Client) Library() *LibraryService {
	return c.library
}

// authParams builds the salted token authentication parameters. A fresh
// salt is generated per request so the password never crosses the wire.
func (c *Client) authParams() url.Values {
	salt := newSalt()
	token := md5.Sum([]byte(c.password + salt))

	v := url.Values{}
	v.Set("u", c.username)
	v.Set("t", hex.EncodeToString(token[:]))
	v.Set("s", salt)
	v.Set("v", apiVersion)
	v.Set("c", clientName)
	v.Set("f", "json")
	return v
}

// newSalt returns a random hex salt for token authentication.
func newSalt() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("subsonic: failed to generate salt: %v", err))
	}
	return hex.EncodeToString(buf)
}

// call makes a single GET request to the given Subsonic endpoint.
//
// Failures are classified for the caller's retry executor: network errors
// and 5xx responses are transient, HTTP 429 is a rate limit, everything
// else (including API-level errors) is permanent. The transport never
// retries on its own.
func (c *Client) call(ctx context.Context, endpoint string, params url.Values) (*apiResponse, error) {
	q := c.authParams()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	reqURL := c.baseURL + "/rest/" + endpoint + "?" + q.Encode()

	c.logDebugf("subsonic: calling %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", clientName+"/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(fmt.Errorf("http request failed: %w", err))
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retry.RateLimited(&HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}, 0)
	}
	if resp.StatusCode >= 500 {
		return nil, retry.Transient(&HTTPError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var envelope struct {
		Response apiResponse `json:"subsonic-response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if envelope.Response.Status != "ok" {
		apiErr := envelope.Response.Error
		if apiErr == nil {
			return nil, fmt.Errorf("subsonic: request failed without error detail")
		}
		return nil, apiErr
	}

	c.logDebugf("subsonic: %s succeeded", endpoint)
	return &envelope.Response, nil
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
