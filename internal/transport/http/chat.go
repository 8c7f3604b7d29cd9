package http

import (
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/mcpchat/internal/service"
)

// chat streams a completion as plain text. Tokens are written and flushed as
// they arrive; headers are only committed on the first token so failures
// before any output still get a proper status code.
func (h *Handler) chat(c echo.Context, req *apiRequest) error {
	conversationID := req.ConversationID
	if req.Data != nil && req.Data.ConversationID != "" {
		conversationID = req.Data.ConversationID
	}

	res := c.Response()
	flusher, _ := res.Writer.(http.Flusher)
	started := false

	start := func() {
		res.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
		res.Header().Set("Cache-Control", "no-cache")
		res.WriteHeader(http.StatusOK)
		started = true
	}

	err := h.service.ChatStream(c.Request().Context(), service.ChatRequest{
		ConversationID: conversationID,
		Messages:       req.Messages,
	}, func(delta string) error {
		if !started {
			start()
		}
		if _, err := io.WriteString(res.Writer, delta); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if started {
			// Headers are gone; the stream just ends early.
			log.Printf("ERROR: chat stream failed mid-response: %v", err)
			return nil
		}
		return h.mapError(c, err)
	}

	if !started {
		// Empty reply: still a successful stream.
		start()
	}
	return nil
}
