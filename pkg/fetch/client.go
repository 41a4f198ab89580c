// Package fetch issues the outbound reads behind the fact and background
// widgets. Every call is a single GET shaped as <proxy-base>/<target>; the
// client never retries and never caches.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxPayloadBytes caps JSON bodies. Fact and link payloads are tiny.
const maxPayloadBytes = 1 << 20

// ErrMissingField is returned when a payload decodes but lacks the expected
// field (or the field is empty).
var ErrMissingField = errors.New("payload missing expected field")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Options configures a Client.
type Options struct {
	// ProxyBase is prepended to every target address.
	ProxyBase string

	// FactURL and ImageURL are the target addresses behind the proxy.
	FactURL  string
	ImageURL string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// HTTPClient overrides the transport. Defaults to a new http.Client.
	HTTPClient *http.Client

	// Logger receives debug records for each request. Errors are returned,
	// never logged here.
	Logger *slog.Logger
}

// Client fetches facts, image links and image bytes.
type Client struct {
	opts Options
	http *http.Client
	log  *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		opts: opts,
		http: hc,
		log:  logger.With("component", "fetch"),
	}
}

// ProxiedURL joins the proxy base and a target address as
// <proxy-base>/<target>. A trailing slash on the base is dropped so the join
// never doubles it.
func ProxiedURL(proxyBase, target string) string {
	return strings.TrimRight(proxyBase, "/") + "/" + target
}

// FactURL returns the proxied fact address.
func (c *Client) FactURL() string {
	return ProxiedURL(c.opts.ProxyBase, c.opts.FactURL)
}

// ImageSourceURL returns the proxied image-link address.
func (c *Client) ImageSourceURL() string {
	return ProxiedURL(c.opts.ProxyBase, c.opts.ImageURL)
}

// Payload fields are pointers so an absent field can be told apart from an
// empty one.
type factPayload struct {
	Fact *string `json:"fact"`
}

type linkPayload struct {
	Link *string `json:"link"`
}

// Fact performs one GET against the fact endpoint and returns its "fact"
// field. An empty fact is returned as is.
func (c *Client) Fact(ctx context.Context) (string, error) {
	var p factPayload
	if err := c.getJSON(ctx, c.FactURL(), &p); err != nil {
		return "", fmt.Errorf("fetch fact: %w", err)
	}
	if p.Fact == nil {
		return "", fmt.Errorf("fetch fact: %w: fact", ErrMissingField)
	}
	return *p.Fact, nil
}

// ImageLink performs one GET against the image endpoint and returns its
// "link" field. An empty link names no picture and is an error.
func (c *Client) ImageLink(ctx context.Context) (string, error) {
	var p linkPayload
	if err := c.getJSON(ctx, c.ImageSourceURL(), &p); err != nil {
		return "", fmt.Errorf("fetch image link: %w", err)
	}
	if p.Link == nil {
		return "", fmt.Errorf("fetch image link: %w: link", ErrMissingField)
	}
	if *p.Link == "" {
		return "", errors.New("fetch image link: link is empty")
	}
	return *p.Link, nil
}

// getJSON GETs url and decodes a JSON object into v.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(io.LimitReader(body, maxPayloadBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// get issues one GET and returns the response body on a 2xx status. The
// caller closes the body.
func (c *Client) get(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		body, err := c.do(ctx, url, accept)
		if err != nil {
			cancel()
			return nil, err
		}
		return &cancelOnClose{ReadCloser: body, cancel: cancel}, nil
	}
	return c.do(ctx, url, accept)
}

func (c *Client) do(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	reqID := uuid.NewString()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	c.log.Debug("request start", "request_id", reqID, "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	c.log.Debug("request done",
		"request_id", reqID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// cancelOnClose releases a per-request timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
