// Package ws provides the WebSocket streaming transport for chat.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/mcpchat/internal/domain"
	"github.com/xiaot623/mcpchat/internal/service"
)

const (
	writeWait = 10 * time.Second
	readWait  = 60 * time.Second
)

// Frame types sent to the client.
const (
	TypeToken = "token"
	TypeDone  = "done"
	TypeError = "error"
)

// ChatFrame is the single request frame a client sends after connecting.
type ChatFrame struct {
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []domain.Message `json:"messages"`
}

// ReplyFrame is one server-to-client frame.
type ReplyFrame struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Server handles WebSocket chat connections.
type Server struct {
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service) *Server {
	return &Server{
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Same trust model as the HTTP API: holding a session id is
				// full access, no origin gating.
				return true
			},
		},
	}
}

// RegisterRoutes registers WebSocket routes.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", s.HandleChat)
}

// HandleChat upgrades the connection, reads one chat request frame, and
// streams the reply as token frames followed by a done or error frame.
func (s *Server) HandleChat(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(readWait))

	var req ChatFrame
	if err := ws.ReadJSON(&req); err != nil {
		s.writeFrame(ws, ReplyFrame{Type: TypeError, Message: "invalid chat frame"})
		return nil
	}

	err = s.service.ChatStream(c.Request().Context(), service.ChatRequest{
		ConversationID: req.ConversationID,
		Messages:       req.Messages,
	}, func(delta string) error {
		return s.writeFrame(ws, ReplyFrame{Type: TypeToken, Content: delta})
	})
	if err != nil {
		s.writeFrame(ws, ReplyFrame{Type: TypeError, Message: err.Error()})
		return nil
	}

	s.writeFrame(ws, ReplyFrame{Type: TypeDone, ConversationID: req.ConversationID})
	return nil
}

func (s *Server) writeFrame(ws *websocket.Conn, frame ReplyFrame) error {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(frame)
}
