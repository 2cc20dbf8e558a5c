package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/streamhub/internal/domain"
	apperrors "github.com/pscheid92/streamhub/internal/platform/errors"
	"github.com/pscheid92/streamhub/internal/platform/version"
	"github.com/pscheid92/streamhub/internal/viewer"
)

type addSlotRequest struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
}

type updateSlotRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type selectRequest struct {
	Name string `json:"name"`
}

type focusRequest struct {
	ID domain.SlotID `json:"id"`
}

type resumeRequest struct {
	Href string `json:"href"`
}

type slotResponse struct {
	Slot    domain.Slot     `json:"slot"`
	Notices []domain.Notice `json:"notices"`
}

func (s *Server) registerAPIRoutes(csrfMiddleware echo.MiddlewareFunc) {
	api := s.echo.Group("/api", newAPIRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst), csrfMiddleware)

	api.GET("/state", s.handleState)
	api.POST("/session/resume", s.handleResume)

	api.POST("/slots", s.handleAddSlot)
	api.PATCH("/slots/:id", s.handleUpdateSlot)
	api.DELETE("/slots/:id", s.handleRemoveSlot)
	api.POST("/slots/:id/select", s.handleSelectSuggestion)

	api.PUT("/focus", s.handleFocus)
	api.DELETE("/focus", s.handleClearFocus)

	api.POST("/follows/load", s.handleLoadFollows)
	api.POST("/follows/:login", s.handleAddFollowed)
}

func (s *Server) handleIndex(c echo.Context) error {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return s.renderTemplate(c, "index.html", map[string]any{
		"CSRFToken": token,
		"Version":   version.Get().Version,
	})
}

func (s *Server) handleState(c echo.Context) error {
	snap, err := s.viewer.Snapshot()
	if err != nil {
		return apperrors.UnavailableError("viewer unavailable", err)
	}

	if err := c.JSON(http.StatusOK, viewer.Render(snap, s.parentHost(c))); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleResume(c echo.Context) error {
	var req resumeRequest
	if err := c.Bind(&req); err != nil || req.Href == "" {
		return apperrors.ValidationError("href is required")
	}

	result, err := s.viewer.Resume(c.Request().Context(), req.Href)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]any{
		"location":  result.Location,
		"signed_in": result.SignedIn,
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAddSlot(c echo.Context) error {
	var req addSlotRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		return err
	}

	slot, notices, err := s.viewer.AddSlot(platform, req.Identifier)
	if err != nil {
		return err
	}
	return sendSlot(c, slot, notices)
}

func (s *Server) handleAddFollowed(c echo.Context) error {
	slot, notices, err := s.viewer.AddFollowed(c.Param("login"))
	if err != nil {
		return err
	}
	return sendSlot(c, slot, notices)
}

func sendSlot(c echo.Context, slot domain.Slot, notices []domain.Notice) error {
	if notices == nil {
		notices = []domain.Notice{}
	}
	if err := c.JSON(http.StatusCreated, slotResponse{Slot: slot, Notices: notices}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateSlot(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}

	var req updateSlotRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	field, err := domain.ParseSlotField(req.Field)
	if err != nil {
		return err
	}

	if err := s.viewer.UpdateSlot(id, field, req.Value); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveSlot(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}

	if _, err := s.viewer.RemoveSlot(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSelectSuggestion(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}

	var req selectRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return apperrors.ValidationError("name is required")
	}

	if err := s.viewer.SelectSuggestion(id, req.Name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleFocus(c echo.Context) error {
	var req focusRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return apperrors.ValidationError("id is required")
	}

	if err := s.viewer.Focus(req.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleClearFocus(c echo.Context) error {
	if err := s.viewer.ClearFocus(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLoadFollows(c echo.Context) error {
	channels, err := s.viewer.LoadFollows(c.Request().Context())
	if errors.Is(err, domain.ErrNotSignedIn) {
		return err
	}
	if err != nil {
		return apperrors.ExternalError("failed to load followed channels", err)
	}

	if err := c.JSON(http.StatusOK, map[string]any{"follows": channels}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func slotID(c echo.Context) (domain.SlotID, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.ValidationError("invalid slot id").WithField("id", raw)
	}
	return domain.SlotID(id), nil
}
