package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"modelgate/internal/catalog"
	"modelgate/internal/config"
	"modelgate/internal/model"
	"modelgate/internal/payload"
	"modelgate/internal/provider"
	"modelgate/internal/router"
	"modelgate/internal/translator"
	"modelgate/internal/transport"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 150 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	router  *router.Router
	listing catalog.Catalog
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware. listing
// backs GET /v1/models and may be nil when no models are curated.
func New(cfg config.Config, rt *router.Router, listing catalog.Catalog) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		listing: listing,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleListModels)
	s.app.POST("/v1/models/resolve", s.handleResolve)
	s.app.POST("/v1/requests/preview", s.handlePreview)
	s.app.POST("/v1/invoke", s.handleInvoke)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c echo.Context) error {
	models := []*model.Descriptor{}
	if s.listing != nil {
		models = s.listing.Models()
	}
	return c.JSON(http.StatusOK, map[string]any{"data": models})
}

type resolveRequest struct {
	Model string `json:"model"`
}

func (s *Server) handleResolve(c echo.Context) error {
	var req resolveRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if req.Model == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "model must be provided",
			Type:    "invalid_request_error",
		}
	}

	descriptor, err := s.router.Resolve(req.Model)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, descriptor)
}

type previewResponse struct {
	Model   *model.Descriptor `json:"model"`
	Request *provider.Request `json:"request"`
}

func (s *Server) handlePreview(c echo.Context) error {
	var env translator.Envelope
	if err := decodeRequestBody(c, &env); err != nil {
		return err
	}

	req, descriptor, err := s.router.Prepare(env.Model, env.Payload, env.Options)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, previewResponse{Model: descriptor, Request: req.Redacted()})
}

func (s *Server) handleInvoke(c echo.Context) error {
	var env translator.Envelope
	if err := decodeRequestBody(c, &env); err != nil {
		return err
	}

	result, descriptor, err := s.router.Invoke(c.Request().Context(), env.Model, env.Payload, env.Options)
	if err != nil {
		return toHTTPError(err)
	}
	if result == nil {
		return requestError{
			Status:  http.StatusBadGateway,
			Message: "upstream provider returned an empty response",
			Type:    "upstream_error",
		}
	}

	contentType := result.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	c.Response().Header().Set("X-Modelgate-Model", descriptor.Name())
	return c.Blob(result.StatusCode, contentType, result.Body)
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = errType
	body.Error.Code = code
	return c.JSON(status, body)
}

func jsonErrorHandler(err error, c echo.Context) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, model.ErrMalformedOption):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "malformed_option",
		}
	case errors.Is(err, payload.ErrInvalidPayload):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "invalid_payload",
		}
	case errors.Is(err, provider.ErrUnsupportedModel):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "unsupported_model",
		}
	case errors.Is(err, catalog.ErrModelNotFound):
		return requestError{
			Status:  http.StatusNotFound,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "model_not_found",
		}
	case errors.Is(err, transport.ErrTransport):
		slog.Error("upstream request failed", "err", err)
		return requestError{
			Status:  http.StatusBadGateway,
			Message: "upstream provider unreachable",
			Type:    "upstream_error",
		}
	}

	slog.Error("request failed", "err", err)
	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	}
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("modelgate ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/models")
	fmt.Println("  POST /v1/models/resolve")
	fmt.Println("  POST /v1/requests/preview")
	fmt.Println("  POST /v1/invoke")
	fmt.Println("Model names may carry default options, e.g. claude-sonnet-4?temperature=0.2&max_tokens=1024.")
	fmt.Printf("Preview example:\n  curl http://%s:%d/v1/requests/preview -H 'Content-Type: application/json' -d '{\"model\":\"claude-sonnet-4\",\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}
