// Package transport sends shaped provider requests over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"modelgate/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	maxResponseSize = 32 << 20 // 32 MiB

	defaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// ErrTransport wraps failures to reach the upstream or read its answer.
var ErrTransport = errors.New("transport error")

// HTTP delivers requests with an *http.Client. Upstream status codes are
// reported in the result, not as errors.
type HTTP struct {
	client *http.Client
}

// New wraps client; a nil client gets pooled defaults.
func New(client *http.Client) *HTTP {
	if client == nil {
		client = NewHTTPClient(defaultHTTPTimeout)
	}
	return &HTTP{client: client}
}

// NewHTTPClient returns a client with a tuned, pooled transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Send marshals req.Body as JSON and performs the call.
func (t *HTTP) Send(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	body, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		slog.Warn("upstream request failed", "method", req.Method, "url", req.URL, "err", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}
	if len(respBody) > maxResponseSize {
		slog.Warn("upstream response too large", "url", req.URL, "status", httpResp.StatusCode, "limit", maxResponseSize)
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrTransport, maxResponseSize)
	}

	latency := time.Since(start)
	if httpResp.StatusCode >= 400 {
		slog.Warn("upstream error status", "url", req.URL, "status", httpResp.StatusCode, "latency_ms", latency.Milliseconds())
	} else {
		slog.Debug("upstream response", "url", req.URL, "status", httpResp.StatusCode, "latency_ms", latency.Milliseconds())
	}

	return &provider.Result{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       respBody,
	}, nil
}
