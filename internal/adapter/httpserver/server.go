// Package httpserver serves the viewer page, its JSON API and the state WebSocket.
package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/auth"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/config"
	"github.com/pscheid92/streamhub/web"
)

type viewerService interface {
	Snapshot() (domain.Snapshot, error)
	AddSlot(platform domain.Platform, identifier string) (domain.Slot, []domain.Notice, error)
	AddFollowed(login string) (domain.Slot, []domain.Notice, error)
	RemoveSlot(id domain.SlotID) (bool, error)
	UpdateSlot(id domain.SlotID, field domain.SlotField, value string) error
	SelectSuggestion(id domain.SlotID, name string) error
	Focus(id domain.SlotID) error
	ClearFocus() error
	Resume(ctx context.Context, href string) (auth.ResumeResult, error)
	SignInURL(redirectURI string) string
	SignOut(ctx context.Context) error
	LoadFollows(ctx context.Context) ([]domain.FollowedChannel, error)
}

type stateHub interface {
	Register(conn *websocket.Conn, host string) (uuid.UUID, error)
	Unregister(id uuid.UUID)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	viewer viewerService
	hub    stateHub

	templates      *template.Template
	upgrader       websocket.Upgrader
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// Options carries the optional parts of a Server.
type Options struct {
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
}

func NewServer(cfg *config.Config, viewer viewerService, hub stateHub, opts Options) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		viewer:         viewer,
		hub:            hub,
		templates:      templates,
		upgrader:       websocket.Upgrader{CheckOrigin: newCheckOrigin(cfg.AppEnv != "production")},
		httpMetrics:    opts.HTTPMetrics,
		metricsHandler: opts.MetricsHandler,
		healthChecks:   opts.HealthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func (s *Server) getBaseURL(c echo.Context) string {
	scheme := "http"
	if c.Request().TLS != nil {
		scheme = "https"
	}
	if fwdProto := c.Request().Header.Get("X-Forwarded-Proto"); fwdProto == "http" || fwdProto == "https" {
		scheme = fwdProto
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request().Host)
}

// redirectURI is where the implicit grant returns to: the configured URI or the page root.
func (s *Server) redirectURI(c echo.Context) string {
	if s.config.TwitchRedirectURI != "" {
		return s.config.TwitchRedirectURI
	}
	return s.getBaseURL(c) + "/"
}

// parentHost is the domain the twitch player must be told it is embedded in. It never carries a port.
func (s *Server) parentHost(c echo.Context) string {
	if s.config.EmbedParentHost != "" {
		return s.config.EmbedParentHost
	}
	host := c.Request().Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
