package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
	"github.com/satriahrh/wawa/internal/observability"
	"github.com/satriahrh/wawa/internal/websocket"
)

// ChatResponder answers one user message
type ChatResponder interface {
	Chat(ctx context.Context, message string) (*domain.ResponseEnvelope, error)
}

// Dependencies are the collaborators the routes serve. Voices, Hub, Metrics
// and MetricsHandler are optional.
type Dependencies struct {
	Chat           ChatResponder
	Voices         repositories.VoiceCatalog
	Hub            *websocket.Hub
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello World!")
	})

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: "wawa-server",
		})
	})

	e.GET("/voices", func(c echo.Context) error {
		return listVoices(c, deps.Voices, logger)
	})

	e.POST("/chat", func(c echo.Context) error {
		return chat(c, deps, logger)
	})

	if deps.Hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			return websocket.HandleWebSocket(deps.Hub, c)
		})
	}

	if deps.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(deps.MetricsHandler))
	}
}

func listVoices(c echo.Context, voices repositories.VoiceCatalog, logger *zap.Logger) error {
	if voices == nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "voices_unavailable",
			Message: "Speech synthesis is not configured",
		})
	}

	list, err := voices.ListVoices(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list voices", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "voices_unavailable",
			Message: "Failed to list voices",
		})
	}
	return c.JSON(http.StatusOK, list)
}

func chat(c echo.Context, deps Dependencies, logger *zap.Logger) error {
	started := time.Now()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("Failed to bind chat request", zap.Error(err))
		observe(deps.Metrics, observability.OutcomeBadRequest, time.Since(started))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	envelope, err := deps.Chat.Chat(c.Request().Context(), req.Message)
	if err != nil {
		logger.Error("Failed to answer chat message", zap.Error(err))
		observe(deps.Metrics, observability.OutcomeError, time.Since(started))
		return c.JSON(http.StatusInternalServerError, domain.FallbackEnvelope())
	}

	observe(deps.Metrics, observability.OutcomeOK, time.Since(started))
	return c.JSON(http.StatusOK, envelope)
}

func observe(metrics *observability.Metrics, outcome string, d time.Duration) {
	if metrics != nil {
		metrics.ObserveChat(observability.TransportHTTP, outcome, d)
	}
}
