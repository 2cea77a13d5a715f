// Package api exposes the camera engine over HTTP using huma v2.
// Handlers bridge the engine's callback-style operations into blocking
// request/response calls through a server-owned dispatch queue.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/dmtar/camgate/internal/api/models"
	"github.com/dmtar/camgate/internal/camera"
	"github.com/dmtar/camgate/internal/devices"
	"github.com/dmtar/camgate/internal/dispatch"
	"github.com/dmtar/camgate/internal/logging"
	"github.com/dmtar/camgate/internal/version"
)

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Manager           *camera.Manager
	Registry          devices.Registry
	PrometheusHandler http.Handler // optional /metrics handler
	OperationTimeout  time.Duration
}

// Server hosts the HTTP API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	manager    *camera.Manager
	registry   devices.Registry
	callbacks  *dispatch.Queue
	timeout    time.Duration
	options    *Options
	logger     *slog.Logger
}

// NewServer creates an API server with Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("CamGate API", version.String())
	config.Info.Description = "Exclusive camera device control API"
	// Empty servers list keeps OpenAPI paths relative to any host.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	timeout := opts.OperationTimeout
	if timeout <= 0 {
		timeout = camera.DefaultOperationTimeout
	}

	server := &Server{
		api:       humago.New(mux, config),
		mux:       mux,
		manager:   opts.Manager,
		registry:  opts.Registry,
		callbacks: dispatch.NewQueue("api-callbacks"),
		timeout:   timeout,
		options:   opts,
		logger:    logging.GetLogger("api"),
	}

	server.api.UseMiddleware(NewCORSMiddleware(corsConfig))
	server.api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		server.api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Metrics bypass auth and CORS middleware entirely.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// basicAuthMiddleware enforces HTTP basic authentication on operations
// that declare a security requirement.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		unauthorized := func(message string, errs ...error) {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="CamGate API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, message, errs...)
		}

		const prefix = "Basic "
		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			unauthorized("Authentication required")
			return
		}
		if !strings.HasPrefix(authHeader, prefix) {
			unauthorized("Invalid authentication type")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
		if err != nil {
			unauthorized("Invalid credentials format", err)
			return
		}

		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			unauthorized("Invalid credentials")
			return
		}

		next(ctx)
	}
}

// GetMux returns the underlying ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections, then
// drains the callback queue.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Close()
	}
	s.callbacks.Close()
	return err
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	// Health check, no auth required.
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version, no auth required.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	// Recent log history.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Logs",
		Description: "Return recent log entries from the in-memory buffer",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.LogsResponse, error) {
		var entries []models.LogEntry
		if buffer := logging.History(); buffer != nil {
			for _, e := range buffer.ReadAll() {
				entries = append(entries, models.LogEntry{
					Timestamp:  e.Timestamp.Format(time.RFC3339),
					Level:      e.Level,
					Module:     e.Module,
					Message:    e.Message,
					Attributes: e.Attributes,
				})
			}
		}
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})

	s.registerDeviceRoutes()
	s.registerCameraRoutes()
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
