package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modelgate/internal/catalog"
	"modelgate/internal/config"
	"modelgate/internal/model"
	"modelgate/internal/provider"
	"modelgate/internal/provider/factory"
	"modelgate/internal/router"
	"modelgate/internal/transport"
)

type fakeTransport struct {
	calls  int
	last   *provider.Request
	result *provider.Result
	err    error
}

func (f *fakeTransport) Send(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(t *testing.T, tr router.Transport) *Server {
	t.Helper()

	cfg := config.Config{
		Providers: config.ProvidersConfig{
			Anthropic: &config.AnthropicConfig{APIKey: "ant-secret", CacheRetention: "short"},
			Generic:   &config.GenericConfig{BaseURL: "https://gw.example.com/v1", APIKey: "gw-secret"},
		},
		Catalog: config.CatalogConfig{
			Models: []config.ModelConfig{
				{Name: "claude-sonnet-4", Family: "anthropic", Options: map[string]any{"max_tokens": 1024}},
			},
			Aliases: map[string]string{"sonnet": "claude-sonnet-4"},
		},
	}

	static, err := catalog.FromConfig(cfg.Catalog)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	registry := provider.NewRegistry()
	if err := factory.RegisterConfiguredProviders(cfg, registry); err != nil {
		t.Fatalf("RegisterConfiguredProviders: %v", err)
	}

	srv, err := New(cfg, router.New(catalog.NewFallback(static), registry, tr), static)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.app.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNewRejectsNilRouter(t *testing.T) {
	if _, err := New(config.Config{}, nil, nil); err == nil {
		t.Fatal("expected error for nil router")
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeJSON(t, rec)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %v", got)
	}
}

func TestListModels(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, ok := decodeJSON(t, rec)["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected one curated model, got %v", rec.Body.String())
	}
	if name := data[0].(map[string]any)["name"]; name != "claude-sonnet-4" {
		t.Errorf("expected claude-sonnet-4, got %v", name)
	}
}

func TestResolve(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantName   string
		wantRole   string
	}{
		{name: "alias", body: `{"model":"sonnet"}`, wantStatus: http.StatusOK, wantName: "claude-sonnet-4", wantRole: "completions"},
		{name: "heuristic embeddings", body: `{"model":"text-embedding-3-small?dimensions=256"}`, wantStatus: http.StatusOK, wantName: "text-embedding-3-small", wantRole: "embeddings"},
		{name: "malformed option", body: `{"model":"gpt-4o?broken"}`, wantStatus: http.StatusBadRequest},
		{name: "missing model", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/models/resolve", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if _, ok := decodeJSON(t, rec)["error"]; !ok {
					t.Errorf("expected error body, got %s", rec.Body.String())
				}
				return
			}
			out := decodeJSON(t, rec)
			if out["name"] != tt.wantName || out["role"] != tt.wantRole {
				t.Errorf("expected %s/%s, got %v", tt.wantName, tt.wantRole, out)
			}
		})
	}
}

func TestPreviewRedactsCredentials(t *testing.T) {
	tr := &fakeTransport{}
	srv := newTestServer(t, tr)

	rec := do(t, srv, http.MethodPost, "/v1/requests/preview",
		`{"model":"claude-sonnet-4","messages":[{"role":"user","content":"hello"}],"thinking":{"type":"enabled","budget_tokens":2048}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tr.calls != 0 {
		t.Error("preview must not reach the transport")
	}
	if strings.Contains(rec.Body.String(), "ant-secret") {
		t.Error("preview leaked the api key")
	}

	out := decodeJSON(t, rec)
	req := out["request"].(map[string]any)
	if req["url"] != "https://api.anthropic.com/v1/messages" {
		t.Errorf("unexpected url %v", req["url"])
	}
	headers := req["headers"].(map[string]any)
	if beta := headers["Anthropic-Beta"].([]any); beta[0] != "interleaved-thinking-2025-05-14" {
		t.Errorf("unexpected beta header %v", beta)
	}
	body := req["body"].(map[string]any)
	if body["model"] != "claude-sonnet-4" || body["max_tokens"] != 1024.0 {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["beta_features"]; ok {
		t.Error("beta_features leaked into body")
	}
}

func TestPreviewErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "text to chat model", body: `{"model":"gpt-4o","input":"hi"}`, wantStatus: http.StatusBadRequest, wantCode: "invalid_payload"},
		{name: "malformed option", body: `{"model":"gpt-4o?=1","messages":[]}`, wantStatus: http.StatusBadRequest, wantCode: "malformed_option"},
		{name: "trailing data", body: `{"model":"gpt-4o"}{}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/requests/preview", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode == "" {
				return
			}
			errBody := decodeJSON(t, rec)["error"].(map[string]any)
			if errBody["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, errBody["code"])
			}
		})
	}
}

func TestInvokeRelaysUpstreamAnswer(t *testing.T) {
	tr := &fakeTransport{result: &provider.Result{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"error":{"type":"rate_limit_error"}}`),
	}}
	srv := newTestServer(t, tr)

	rec := do(t, srv, http.MethodPost, "/v1/invoke", `{"model":"text-embedding-3-small","input":"hello"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected upstream status 429, got %d", rec.Code)
	}
	if rec.Body.String() != `{"error":{"type":"rate_limit_error"}}` {
		t.Errorf("expected upstream body verbatim, got %s", rec.Body.String())
	}
	if got := rec.Header().Get("X-Modelgate-Model"); got != "text-embedding-3-small" {
		t.Errorf("expected model header, got %q", got)
	}
	if tr.last == nil || tr.last.URL != "https://gw.example.com/v1/embeddings" {
		t.Fatalf("unexpected upstream request %+v", tr.last)
	}
	if tr.last.Body["input"] != "hello" {
		t.Errorf("expected text input in body, got %v", tr.last.Body)
	}
}

func TestInvokeTransportFailure(t *testing.T) {
	tr := &fakeTransport{err: fmt.Errorf("%w: POST https://gw.example.com: %w", transport.ErrTransport, errors.New("connection refused"))}
	srv := newTestServer(t, tr)

	rec := do(t, srv, http.MethodPost, "/v1/invoke", `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	errBody := decodeJSON(t, rec)["error"].(map[string]any)
	if errBody["type"] != "upstream_error" {
		t.Errorf("expected upstream_error, got %v", errBody["type"])
	}
}

func TestToHTTPErrorDefaultsToInternal(t *testing.T) {
	err := toHTTPError(errors.New("boom"))
	var reqErr requestError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusInternalServerError {
		t.Errorf("expected 500 request error, got %v", err)
	}

	err = toHTTPError(fmt.Errorf("lookup: %w", catalog.ErrModelNotFound))
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 request error, got %v", err)
	}

	err = toHTTPError(fmt.Errorf("parse: %w", model.ErrMalformedOption))
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400 request error, got %v", err)
	}
}
