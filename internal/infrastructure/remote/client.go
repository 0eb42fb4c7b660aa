// Package remote is the HTTP transport to the shop backend. It attaches the
// bearer credential to every request and classifies every failure into the
// domain error taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/metrics"
	"github.com/shopassist/shopchat/internal/core/domain"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// TokenSource supplies the bearer credential. An empty token means the
// request is sent without an Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the backend rooted at baseURL (for example
// "http://localhost:8000/api").
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// NewClient creates a Client. A non-positive timeout selects the default.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "remote").Logger(),
	}
}

// UseTokenSource sets the bearer credential source. The credential session
// manager is constructed with this client, so the source is wired afterwards.
func (c *Client) UseTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

type request struct {
	op     string
	method string
	path   string
	body   any
	out    any
	header http.Header
}

// do executes req and decodes a 2xx body into req.out. Every error it returns
// is a *domain.RemoteError.
func (c *Client) do(ctx context.Context, req request) error {
	start := time.Now()
	err := c.roundTrip(ctx, req)
	metrics.RemoteCallDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteErrorsTotal.WithLabelValues(req.op, metrics.KindLabel(err)).Inc()
		c.log.Debug().Err(err).Str("op", req.op).Str("path", req.path).Msg("remote call failed")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request) error {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return &domain.RemoteError{Kind: domain.ErrRejected, Op: req.op, Message: "invalid request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return &domain.RemoteError{Kind: domain.ErrRejected, Op: req.op, Message: "invalid request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header[k] = v
	}
	if token := c.accessToken(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &domain.RemoteError{Kind: domain.ErrNetworkFailure, Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RemoteError{Kind: domain.ErrNetworkFailure, Op: req.op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(req.op, resp.StatusCode, data)
	}

	if req.out == nil || len(bytes.TrimSpace(data)) == 0 {
		if req.out != nil {
			return malformed(req.op, resp.StatusCode, errors.New("empty body"))
		}
		return nil
	}
	if err := json.Unmarshal(data, req.out); err != nil {
		return malformed(req.op, resp.StatusCode, err)
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context) string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	token, err := ts.AccessToken(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("token source failed, sending unauthenticated")
		return ""
	}
	return token
}

func malformed(op string, status int, err error) error {
	return &domain.RemoteError{
		Kind:    domain.ErrRejected,
		Op:      op,
		Status:  status,
		Message: "malformed response",
		Err:     fmt.Errorf("decode response: %w", err),
	}
}
