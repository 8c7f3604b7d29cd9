package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/mcpchat/internal/domain"
	"github.com/xiaot623/mcpchat/internal/service"
)

// Handler handles the action-dispatched chat API.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		service: svc,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.Dispatch)
	e.GET("/v1/models", h.ListModels)
	e.GET("/health", h.Health)
}

// apiRequest is the single request envelope. Action selects the lifecycle
// operation; an empty action means chat.
type apiRequest struct {
	Action         string           `json:"action,omitempty"`
	ConversationID string           `json:"conversationId,omitempty"`
	Metadata       json.RawMessage  `json:"metadata,omitempty"`
	Messages       []domain.Message `json:"messages,omitempty"`
	Data           *chatData        `json:"data,omitempty"`
}

// chatData carries the optional session binding of a chat request.
type chatData struct {
	ConversationID string `json:"conversationId,omitempty"`
}

// Dispatch routes an action-tagged request to the matching operation.
// POST /api/chat
func (h *Handler) Dispatch(c echo.Context) error {
	var req apiRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	switch req.Action {
	case "create":
		return h.create(c, &req)
	case "get":
		return h.get(c, &req)
	case "getMessages":
		return h.getMessages(c, &req)
	case "delete":
		return h.delete(c, &req)
	case "listSessions":
		return h.listSessions(c)
	case "", "chat":
		return h.chat(c, &req)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown action: " + req.Action})
	}
}

// createResponse mirrors the create contract: no updatedAt yet.
type createResponse struct {
	ConversationID string          `json:"conversationId"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	MessageCount   int             `json:"messageCount"`
}

func (h *Handler) create(c echo.Context, req *apiRequest) error {
	summary, err := h.service.CreateSession(c.Request().Context(), req.Metadata)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, createResponse{
		ConversationID: summary.ConversationID,
		Metadata:       summary.Metadata,
		CreatedAt:      summary.CreatedAt,
		MessageCount:   summary.MessageCount,
	})
}

func (h *Handler) get(c echo.Context, req *apiRequest) error {
	summary, err := h.service.GetSession(c.Request().Context(), req.ConversationID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) getMessages(c echo.Context, req *apiRequest) error {
	messages, err := h.service.GetMessages(c.Request().Context(), req.ConversationID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]domain.Message{"messages": messages})
}

func (h *Handler) delete(c echo.Context, req *apiRequest) error {
	if req.ConversationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conversationId is required"})
	}

	deleted, err := h.service.DeleteSession(c.Request().Context(), req.ConversationID)
	if err != nil {
		return h.mapError(c, err)
	}

	message := fmt.Sprintf("session %s deleted", req.ConversationID)
	if !deleted {
		message = fmt.Sprintf("session %s not found", req.ConversationID)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": deleted,
		"message": message,
	})
}

func (h *Handler) listSessions(c echo.Context) error {
	entries, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]domain.ListEntry{"sessions": entries})
}

// ListModels proxies the provider's model list.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to list models: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   models,
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// mapError translates service errors to HTTP statuses.
func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		log.Printf("ERROR: upstream request failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
