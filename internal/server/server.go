// Package server is the HTTP surface over the secret store façade: the JSON
// API, the demo page, auth, metrics, and the middleware chain.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/vaultdoor/internal/config"
	"github.com/systmms/vaultdoor/internal/facade"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/internal/secure"
)

const apiVersion = "1.0.0"

// Server serves the vaultdoor HTTP API.
type Server struct {
	listen      string
	docs        bool
	corsOrigins []string

	facade  *facade.Facade
	logger  *logging.Logger
	metrics *Metrics
	token   *secure.Buffer

	okapi  *okapi.Okapi
	server *http.Server
}

// NewServer creates the HTTP server. The API token moves from the config
// into an encrypted buffer here; it is only opened per auth check.
func NewServer(cfg *config.Config, fac *facade.Facade, logger *logging.Logger) *Server {
	return &Server{
		listen:      cfg.Listen,
		docs:        cfg.Docs,
		corsOrigins: cfg.CORSOrigins,
		facade:      fac,
		logger:      logger,
		metrics:     NewMetrics(),
		token:       secure.NewBuffer([]byte(cfg.Token())),
		okapi:       okapi.New(),
	}
}

// Metrics returns the server's recorder so the façade can report through it.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start registers routes and serves until the listener fails or Stop runs.
func (s *Server) Start(ctx context.Context) error {
	InitMetrics()

	// One composed stdlib chain keeps the execution order explicit:
	// recovery, CORS, request ID, logging, metrics, then routing.
	s.okapi.UseMiddleware(func(next http.Handler) http.Handler {
		h := s.metricsMiddleware(next)
		h = s.loggingMiddleware(h)
		h = s.requestIDMiddleware(h)
		h = s.corsMiddleware(h)
		h = s.recoveryMiddleware(h)
		return h
	})

	s.okapi.Get("/health", s.handleHealth,
		okapi.DocSummary("Liveness probe"),
		okapi.DocTags("Health"),
		okapi.DocResponse(HealthResponse{}),
	)
	s.okapi.Get("/ready", s.handleReady,
		okapi.DocSummary("Readiness probe (validates the backend store)"),
		okapi.DocTags("Health"),
		okapi.DocResponse(HealthResponse{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)

	s.okapi.Post("/secrets", s.handleSetSecret,
		okapi.DocSummary("Create or update a secret"),
		okapi.DocTags("Secrets"),
		okapi.DocRequestBody(SecretCreateRequest{}),
		okapi.DocResponse(SecretNameResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)
	s.okapi.Get("/secrets/{name}", s.handleGetSecret,
		okapi.DocSummary("Get a secret"),
		okapi.DocTags("Secrets"),
		okapi.DocPathParam("name", "string", "Secret name"),
		okapi.DocResponse(SecretResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)
	s.okapi.Delete("/secrets/{name}", s.requireBearer(s.handleDeleteSecret),
		okapi.DocSummary("Delete a secret"),
		okapi.DocTags("Secrets"),
		okapi.DocPathParam("name", "string", "Secret name"),
		okapi.DocResponse(SecretNameResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	api := s.okapi.Group("/api", s.requireBearer)
	api.Get("/secrets", s.handleListSecrets,
		okapi.DocSummary("List all secret names"),
		okapi.DocTags("Secrets"),
		okapi.DocResponse(SecretListResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)

	s.okapi.HandleStd("GET", "/", s.handleDemoPage)
	s.okapi.HandleStd("GET", "/metrics", promhttp.Handler().ServeHTTP)

	if s.docs {
		s.okapi.WithOpenAPIDocs(okapi.OpenAPI{
			Title:   "VaultDoor",
			Version: apiVersion,
		})
	}

	s.server = &http.Server{
		Addr:              s.listen,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	s.logger.Info("vaultdoor listening on %s (store %s)", s.listen, s.facade.StoreName())
	return s.okapi.StartServer(s.server)
}

// Stop gracefully shuts down the HTTP server and wipes the token buffer.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("vaultdoor shutting down")
	err := s.okapi.Shutdown(s.server)
	s.token.Destroy()
	return err
}
