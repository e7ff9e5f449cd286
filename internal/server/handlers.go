package server

import (
	"fmt"
	"net/http"

	"github.com/jkaninda/okapi"
	"github.com/systmms/vaultdoor/pkg/store"
)

// ErrorBody is the error envelope every endpoint uses.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// SecretCreateRequest is the JSON body for POST /secrets.
type SecretCreateRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SecretNameResponse acknowledges a write or delete.
type SecretNameResponse struct {
	Name string `json:"name"`
}

// SecretResponse is the JSON response for GET /secrets/{name}.
type SecretResponse struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Version string `json:"version,omitempty"`
}

// SecretListResponse is the JSON response for GET /api/secrets.
type SecretListResponse struct {
	Secrets []string `json:"secrets"`
	Count   int      `json:"count"`
}

// HealthResponse is the JSON response for the health and readiness probes.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth reports liveness. It never touches the backend, so a dead
// vault connection cannot take the process out of a load balancer pool.
func (s *Server) handleHealth(c *okapi.Context) error {
	return c.OK(HealthResponse{Status: "ok"})
}

// handleReady reports readiness by probing the backend.
func (s *Server) handleReady(c *okapi.Context) error {
	if err := s.facade.Validate(c.Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorBody{Detail: err.Error()})
	}
	return c.OK(HealthResponse{Status: "ok"})
}

func (s *Server) handleSetSecret(c *okapi.Context) error {
	var req SecretCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorBody{Detail: "invalid request body"})
	}
	if req.Value == "" {
		return c.JSON(http.StatusBadRequest, ErrorBody{Detail: "value cannot be empty"})
	}

	if _, err := s.facade.Set(c.Context(), req.Name, req.Value); err != nil {
		return s.storeError(c, "set", req.Name, err)
	}
	return c.OK(SecretNameResponse{Name: req.Name})
}

func (s *Server) handleGetSecret(c *okapi.Context) error {
	name := c.Param("name")

	sv, err := s.facade.Get(c.Context(), name)
	if err != nil {
		return s.storeError(c, "get", name, err)
	}
	return c.OK(SecretResponse{Name: name, Value: sv.Value, Version: sv.Version})
}

func (s *Server) handleListSecrets(c *okapi.Context) error {
	names, err := s.facade.List(c.Context())
	if err != nil {
		return s.storeError(c, "list", "", err)
	}
	if names == nil {
		names = []string{}
	}
	return c.OK(SecretListResponse{Secrets: names, Count: len(names)})
}

func (s *Server) handleDeleteSecret(c *okapi.Context) error {
	name := c.Param("name")

	if err := s.facade.Delete(c.Context(), name); err != nil {
		return s.storeError(c, "delete", name, err)
	}
	return c.OK(SecretNameResponse{Name: name})
}

// storeError maps store error kinds onto the HTTP error envelope.
func (s *Server) storeError(c *okapi.Context, op, name string, err error) error {
	status, detail := errorStatus(op, name, err)
	if status == http.StatusInternalServerError {
		s.logger.Error("%s failed: %v", op, err)
	}
	return c.JSON(status, ErrorBody{Detail: detail})
}

// errorStatus translates a store error into an HTTP status and a detail
// message safe to return to clients.
func errorStatus(op, name string, err error) (int, string) {
	switch {
	case store.IsInvalidName(err):
		return http.StatusBadRequest, err.Error()
	case store.IsAccessDenied(err):
		return http.StatusForbidden, err.Error()
	case store.IsNotFound(err):
		return http.StatusNotFound, fmt.Sprintf("Secret '%s' not found", name)
	case store.IsUnavailable(err):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Failed to %s secret", op)
	}
}
