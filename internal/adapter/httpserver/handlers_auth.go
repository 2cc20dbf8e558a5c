package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/streamhub/internal/platform/errors"
)

func (s *Server) registerAuthRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLogin)
	s.echo.POST("/auth/logout", s.handleLogout, csrfMiddleware)
}

// handleLogin sends the browser to the implicit-grant authorize page. The grant comes back in the
// URL fragment of the page, which the page hands to /api/session/resume.
func (s *Server) handleLogin(c echo.Context) error {
	return c.Redirect(http.StatusFound, s.viewer.SignInURL(s.redirectURI(c)))
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.viewer.SignOut(c.Request().Context()); err != nil {
		return apperrors.InternalError("failed to sign out", err)
	}
	return c.NoContent(http.StatusNoContent)
}
