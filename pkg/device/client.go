package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// StatePath is the controller endpoint that returns the full state.
const StatePath = "/datos"

// DefaultTimeout bounds a single request when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

// maxStateSize caps the state document read from the controller.
const maxStateSize = 64 << 10

// StateFetcher reads the full controller state.
type StateFetcher interface {
	// FetchState returns the raw state document keyed by field key.
	FetchState(ctx context.Context) (map[string]any, error)
}

// Commander sends imperative commands to the controller.
type Commander interface {
	// Send executes cmd and returns nil once the controller acknowledged it.
	Send(ctx context.Context, cmd field.Command) error
}

// Device is the full controller contract.
type Device interface {
	StateFetcher
	Commander
}

// Config configures a Client.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration

	// HTTPClient overrides the default client. Tests use this to inject
	// httptest transports.
	HTTPClient *http.Client
}

// Client talks to the controller over plain HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the controller at cfg.Host:cfg.Port.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("device: host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("device: invalid port %d", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: cfg.Timeout,
		http:    hc,
	}, nil
}

// NewClientWithBaseURL creates a client for an explicit base URL such as an
// httptest server.
func NewClientWithBaseURL(baseURL string, timeout time.Duration, hc *http.Client) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: timeout, http: hc}
}

// BaseURL returns the controller base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchState implements StateFetcher.
func (c *Client) FetchState(ctx context.Context) (map[string]any, error) {
	url := c.baseURL + StatePath
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, c.transportError(ctx, "fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ConnectivityError{Op: "fetch", URL: url, Reason: statusReason(resp.StatusCode), StatusCode: resp.StatusCode}
	}

	var state map[string]any
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxStateSize))
	dec.UseNumber()
	if err := dec.Decode(&state); err != nil {
		return nil, &ConnectivityError{Op: "fetch", URL: url, Reason: ReasonDecode, Err: err}
	}
	return state, nil
}

// Send implements Commander.
func (c *Client) Send(ctx context.Context, cmd field.Command) error {
	if cmd.Path == "" {
		return fmt.Errorf("device: command for %s has no path", cmd.Field)
	}
	url := c.baseURL + cmd.Path
	resp, err := c.get(ctx, url)
	if err != nil {
		terr := c.transportError(ctx, "send", url, err)
		var ce *ConnectivityError
		if errors.As(terr, &ce) && ce.Reason == ReasonTimeout {
			return fmt.Errorf("%w: %s: %v", ErrCommandTimeout, cmd, err)
		}
		return terr
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStateSize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrCommandRejected, cmd, resp.StatusCode)
	}
	return nil
}

// Ping performs one state fetch and reports whether the controller answered.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.FetchState(ctx)
	return err
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// transportError classifies an error returned by http.Client.Do.
func (c *Client) transportError(ctx context.Context, op, url string, err error) error {
	reason := ReasonNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = ReasonTimeout
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return &ConnectivityError{Op: op, URL: url, Reason: reason, Err: err}
}

func statusReason(code int) Reason {
	switch {
	case code == http.StatusNotFound:
		return ReasonNotFound
	case code >= 500:
		return ReasonServer
	default:
		return ReasonStatus
	}
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Compile-time interface satisfaction check.
var _ Device = (*Client)(nil)
