package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginRoute is where a navigable front end is sent after a 401.
const LoginRoute = "/login"

const requestIDHeader = "X-Request-ID"

// TokenStore is the durable home of the bearer token. Load returns "" and a
// nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Navigator is implemented by front ends that can change the current route.
type Navigator interface {
	CurrentRoute() string
	Redirect(route string)
}

// Client sends JSON requests to the dashboard API and owns the live copy of
// the bearer token.
type Client struct {
	baseURL   string
	http      *http.Client
	store     TokenStore
	navigator Navigator
	metrics   *Metrics
	log       *zap.Logger
	newID     func() string

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Timeouts belong here.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore sets the durable token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

// WithNavigator enables the redirect to LoginRoute on 401.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.navigator = nav }
}

// WithMetrics reports every call to m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.log = lg
		}
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

// New builds a Client for baseURL. Without a store the token only lives in
// memory.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// LoadToken rehydrates the in-memory token from the store.
func (c *Client) LoadToken(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	token, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("apiclient: load token: %w", err)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Token returns the in-memory token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken reports whether a token is held.
func (c *Client) HasToken() bool { return c.Token() != "" }

// SetToken stores token in memory and in the durable store. An empty token
// clears both. A set commits to memory only after the store accepted it; a
// clear always empties memory and reports any store failure.
func (c *Client) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return c.clearToken(ctx)
	}
	if c.store != nil {
		if err := c.store.Save(ctx, token); err != nil {
			return fmt.Errorf("apiclient: save token: %w", err)
		}
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *Client) clearToken(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("apiclient: clear token: %w", err)
	}
	return nil
}

type requestConfig struct {
	requiresAuth bool
}

// RequestOption adjusts a single call.
type RequestOption func(*requestConfig)

// WithoutAuth sends the call without the Authorization header.
func WithoutAuth() RequestOption {
	return func(rc *requestConfig) { rc.requiresAuth = false }
}

// Get issues a GET and decodes the answer into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out, opts...)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out, opts...)
}

// Put issues a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, endpoint, body, out, opts...)
}

// Patch issues a PATCH with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, out, opts...)
}

// Do sends one request. Every failure comes back as *Error. A 204 or an empty
// body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	rc := requestConfig{requiresAuth: true}
	for _, opt := range opts {
		opt(&rc)
	}

	reqID := c.newID()
	lg := c.log.With(
		zap.String("request_id", reqID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return networkError(fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return networkError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if token := c.Token(); rc.requiresAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := networkError(err)
		c.metrics.observe(method, 0, &apiErr.Kind, time.Since(start))
		lg.Warn("request failed", zap.Error(err))
		return apiErr
	}
	defer resp.Body.Close()

	apiErr := c.handleResponse(ctx, resp, rc, out, lg)
	if apiErr != nil {
		c.metrics.observe(method, resp.StatusCode, &apiErr.Kind, time.Since(start))
		return apiErr
	}
	c.metrics.observe(method, resp.StatusCode, nil, time.Since(start))
	return nil
}

func (c *Client) handleResponse(ctx context.Context, resp *http.Response, rc requestConfig, out any, lg *zap.Logger) *Error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.clearToken(ctx); err != nil {
			lg.Error("clear token after 401", zap.Error(err))
		}
		if rc.requiresAuth && c.navigator != nil && c.navigator.CurrentRoute() != LoginRoute {
			c.navigator.Redirect(LoginRoute)
		}
		lg.Info("unauthorized, token cleared")
		return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msgUnauthorized}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := decodeErrorBody(resp)
		lg.Debug("api error", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
		return apiErr

	case resp.StatusCode == http.StatusNoContent:
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(fmt.Errorf("read body: %w", err))
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		lg.Warn("decode response", zap.Error(err))
		return networkError(fmt.Errorf("decode body: %w", err))
	}
	return nil
}

type errorBody struct {
	Message json.RawMessage `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// decodeErrorBody reads {message, errors}. message may be a string or a list
// of strings; fields that do not fit are ignored.
func decodeErrorBody(resp *http.Response) *Error {
	apiErr := &Error{Kind: KindAPI, Status: resp.StatusCode, Message: msgGeneric}
	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		return apiErr
	}

	var single string
	var many []string
	switch {
	case json.Unmarshal(eb.Message, &single) == nil && single != "":
		apiErr.Message = single
	case json.Unmarshal(eb.Message, &many) == nil && len(many) > 0:
		apiErr.Message = strings.Join(many, "; ")
	}

	var fields map[string][]string
	if len(eb.Errors) > 0 && json.Unmarshal(eb.Errors, &fields) == nil {
		apiErr.FieldErrors = fields
	}
	return apiErr
}

func networkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Status: 0, Message: msgNetwork, Err: cause}
}
