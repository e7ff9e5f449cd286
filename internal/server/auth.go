package server

import (
	"net/http"
	"strings"

	"github.com/jkaninda/okapi"
)

// requireBearer guards a route with the configured API token. The token is
// held in an encrypted buffer and only opened for the comparison; missing
// or wrong credentials get a 401 with a WWW-Authenticate challenge.
func (s *Server) requireBearer(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return s.unauthorized(c, "Not authenticated")
		}
		presented := strings.TrimPrefix(authHeader, "Bearer ")

		match, err := s.token.Equal([]byte(presented))
		if err != nil {
			s.logger.Error("token comparison failed: %v", err)
			return c.JSON(http.StatusInternalServerError, ErrorBody{Detail: "internal server error"})
		}
		if !match {
			return s.unauthorized(c, "Invalid authentication token")
		}
		return next(c)
	}
}

func (s *Server) unauthorized(c *okapi.Context, detail string) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return c.JSON(http.StatusUnauthorized, ErrorBody{Detail: detail})
}
