package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// handleWebSocket streams the view state rendered for the requesting host until the page goes away.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "WebSocket upgrade failed", "error", err)
		return nil
	}

	id, err := s.hub.Register(conn, s.parentHost(c))
	if err != nil {
		slog.WarnContext(c.Request().Context(), "WebSocket client rejected", "error", err)
		return nil
	}
	defer s.hub.Unregister(id)

	// Pages never send anything; reading only drives control frames and detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
