package llm

import (
	"context"
	"fmt"
	"time"
)

// MockClient is a mock implementation of LLMClient for testing. Reply, when
// set, is streamed back verbatim; Err fails every call.
type MockClient struct {
	Reply string
	Err   error
}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	content := m.reply(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(content)/4,
		},
	}, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	content := m.reply(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	// Simulate streaming by sending content in chunks
	chunks := splitIntoChunks(content, 10)

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index: 0,
					Delta: &ChatMessage{
						Role:    "assistant",
						Content: chunk,
					},
					FinishReason: finishReason,
				},
			},
		}

		if err := callback(streamChunk); err != nil {
			return nil, err
		}
	}

	usage := &Usage{
		PromptTokens:     m.estimateTokens(req),
		CompletionTokens: len(content) / 4,
		TotalTokens:      m.estimateTokens(req) + len(content)/4,
	}

	return usage, nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-gpt-4",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

// reply picks the configured reply or derives one from the last user message.
func (m *MockClient) reply(req *ChatCompletionRequest) string {
	if m.Reply != "" {
		return m.Reply
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
