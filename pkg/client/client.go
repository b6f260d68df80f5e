// Package client provides the caplink Go SDK for opening a session
// against a caplink server and issuing protocol calls.
//
// A Client is single-flight by protocol contract: it issues one request
// and awaits its response before issuing the next. Use one Client per
// logical session; the server serves many sessions concurrently.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/caplink-proto/caplink/pkg/wire"
)

// Client is a caplink protocol client bound to one server session.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	callTimeout time.Duration

	mu        sync.Mutex // serializes calls: one in flight per session
	sessionID string
	handshake *wire.Handshake
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCallTimeout sets the per-call deadline applied to every protocol
// call that does not already carry one on its context. An elapsed
// deadline reports a timeout error; the server-side handler is not
// guaranteed to have stopped.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect performs the session handshake. It must be called once before
// any protocol call and returns the server's capability metadata.
func (c *Client) Connect(ctx context.Context) (*wire.Handshake, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session", nil)
	if err != nil {
		return nil, fmt.Errorf("build handshake request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, transportErr(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wire.Errorf(wire.ErrTransport, "handshake failed: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var hs wire.Handshake
	if err := json.Unmarshal(body, &hs); err != nil {
		return nil, wire.Errorf(wire.ErrTransport, "malformed handshake response: %v", err)
	}
	if hs.SessionID == "" {
		return nil, wire.Errorf(wire.ErrTransport, "handshake response missing session id")
	}

	c.mu.Lock()
	c.sessionID = hs.SessionID
	c.handshake = &hs
	c.mu.Unlock()
	return &hs, nil
}

// Close ends the session. Further calls fail until Connect is called
// again.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	id := c.sessionID
	c.sessionID = ""
	c.handshake = nil
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/session/"+id, nil)
	if err != nil {
		return fmt.Errorf("build close request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportErr(err)
	}
	resp.Body.Close()
	return nil
}

// Handshake returns the metadata from the last successful Connect, or
// nil before the first.
func (c *Client) Handshake() *wire.Handshake {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshake
}

// ListActions fetches the registered action descriptors in registration
// order.
func (c *Client) ListActions(ctx context.Context) ([]wire.ActionDescriptor, error) {
	var out []wire.ActionDescriptor
	err := c.call(ctx, wire.Request{Kind: wire.KindListActions}, &out)
	return out, err
}

// CallAction invokes a registered action and returns its raw result.
func (c *Client) CallAction(ctx context.Context, id string, args map[string]any) (json.RawMessage, error) {
	return c.do(ctx, wire.Request{Kind: wire.KindCallAction, ID: id, Arguments: args})
}

// ListResources fetches the registered resource template descriptors.
func (c *Client) ListResources(ctx context.Context) ([]wire.ResourceDescriptor, error) {
	var out []wire.ResourceDescriptor
	err := c.call(ctx, wire.Request{Kind: wire.KindListResources}, &out)
	return out, err
}

// ReadResource resolves a concrete URI against the server's resource
// templates and returns the bound handler's raw result.
func (c *Client) ReadResource(ctx context.Context, uri string) (json.RawMessage, error) {
	return c.do(ctx, wire.Request{Kind: wire.KindReadResource, URI: uri})
}

// ListPrompts fetches the registered prompt descriptors.
func (c *Client) ListPrompts(ctx context.Context) ([]wire.PromptDescriptor, error) {
	var out []wire.PromptDescriptor
	err := c.call(ctx, wire.Request{Kind: wire.KindListPrompts}, &out)
	return out, err
}

// GetPrompt renders a prompt template into its message sequence.
func (c *Client) GetPrompt(ctx context.Context, id string, args map[string]any) ([]wire.PromptMessage, error) {
	var out []wire.PromptMessage
	err := c.call(ctx, wire.Request{Kind: wire.KindGetPrompt, ID: id, Arguments: args}, &out)
	return out, err
}

// call issues a request and unmarshals the success result into out.
func (c *Client) call(ctx context.Context, req wire.Request, out any) error {
	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wire.Errorf(wire.ErrTransport, "malformed result payload: %v", err)
	}
	return nil
}

// do performs one request/response round trip, enforcing the
// single-flight contract and translating error envelopes and connection
// failures into protocol errors.
func (c *Client) do(ctx context.Context, req wire.Request) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return nil, wire.Errorf(wire.ErrTransport, "no open session: call Connect first")
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Caplink-Session", c.sessionID)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportErr(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 8<<20))
	if err != nil {
		return nil, transportErr(err)
	}

	var resp wire.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wire.Errorf(wire.ErrTransport, "malformed response envelope (HTTP %d): %v", httpResp.StatusCode, err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// callContext applies the configured per-call timeout when the caller's
// context has no deadline of its own.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// transportErr classifies a connection-level failure: elapsed deadlines
// become timeout errors, everything else a transport error.
func transportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wire.Wrap(wire.ErrTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return wire.Wrap(wire.ErrTimeout, err)
	}
	return wire.Wrap(wire.ErrTransport, err)
}
