package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/mcpchat/internal/adapter/llm"
	"github.com/xiaot623/mcpchat/internal/config"
	"github.com/xiaot623/mcpchat/internal/domain"
	"github.com/xiaot623/mcpchat/internal/service"
	"github.com/xiaot623/mcpchat/tests/helpers"
)

func newTestWsServer(t *testing.T) (*httptest.Server, *llm.MockClient, *service.Service) {
	t.Helper()

	mock := llm.NewMockClient()
	cfg := &config.Config{LLMModel: "mock-gpt-4"}
	svc := service.New(helpers.NewTestFileStore(t), mock, cfg)

	e := echo.New()
	e.HideBanner = true
	NewServer(svc).RegisterRoutes(e)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts, mock, svc
}

func dialChat(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWsChatStreamsTokens(t *testing.T) {
	ts, mock, _ := newTestWsServer(t)
	mock.Reply = "a websocket streamed reply"

	conn := dialChat(t, ts)
	require.NoError(t, conn.WriteJSON(ChatFrame{
		Messages: []domain.Message{{Role: "user", Content: "hello"}},
	}))

	var tokens strings.Builder
	for {
		var frame ReplyFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == TypeToken {
			tokens.WriteString(frame.Content)
			continue
		}
		require.Equal(t, TypeDone, frame.Type)
		break
	}
	assert.Equal(t, "a websocket streamed reply", tokens.String())
}

func TestWsChatPersistedSession(t *testing.T) {
	ts, mock, svc := newTestWsServer(t)
	mock.Reply = "ok"

	created, err := svc.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	conn := dialChat(t, ts)
	require.NoError(t, conn.WriteJSON(ChatFrame{
		ConversationID: created.ConversationID,
		Messages:       []domain.Message{{Role: "user", Content: "hello"}},
	}))

	var last ReplyFrame
	for {
		var frame ReplyFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == TypeToken {
			continue
		}
		last = frame
		break
	}
	assert.Equal(t, TypeDone, last.Type)
	assert.Equal(t, created.ConversationID, last.ConversationID)

	messages, err := svc.GetMessages(context.Background(), created.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestWsChatUnknownSession(t *testing.T) {
	ts, _, _ := newTestWsServer(t)

	conn := dialChat(t, ts)
	require.NoError(t, conn.WriteJSON(ChatFrame{
		ConversationID: "mcp-ghost",
		Messages:       []domain.Message{{Role: "user", Content: "hello"}},
	}))

	var frame ReplyFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, TypeError, frame.Type)
	assert.Contains(t, frame.Message, "mcp-ghost")
}

func TestWsChatInvalidFrame(t *testing.T) {
	ts, _, _ := newTestWsServer(t)

	conn := dialChat(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	var frame ReplyFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, TypeError, frame.Type)
}
