package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/events"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

func testSettings(baseURL string) *settings.StepSettings {
	s := settings.NewStepSettings()
	s.API.APIKeys["claude-api-key"] = "test-key"
	if baseURL != "" {
		s.API.BaseURLs["claude-base-url"] = baseURL
	}
	return s
}

func TestNewClaudeEngineMissingAPIKey(t *testing.T) {
	s := settings.NewStepSettings()
	_, err := NewClaudeEngine(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, inference.ErrMissingAPIKey))
}

func TestMakeMessageRequest(t *testing.T) {
	s := testSettings("")
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleSystem, "You are terse."),
		conversation.NewMessage(conversation.RoleUser, "hello"),
		conversation.NewMessage(conversation.RoleAssistant, "hi"),
		conversation.NewMessage(conversation.RoleUser, "bye"),
	}

	req, err := makeMessageRequest(s, msgs)
	require.NoError(t, err)

	assert.Equal(t, settings.DefaultClaudeEngine, req.Model)
	assert.Equal(t, "You are terse.", req.System)
	assert.Equal(t, settings.DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "bye", req.Messages[2].Content[0].Text)
}

func TestMakeMessageRequestDefaultSystemPrompt(t *testing.T) {
	s := testSettings("")
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "hello"),
	}

	req, err := makeMessageRequest(s, msgs)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultSystemPrompt, req.System)
}

func TestMakeMessageRequestMissingEngine(t *testing.T) {
	s := testSettings("")
	s.Chat.Engine = nil

	_, err := makeMessageRequest(s, conversation.Conversation{})
	assert.True(t, errors.Is(err, inference.ErrMissingEngine))
}

func TestClaudeEngineRunInference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"type":"message_start","message":{"id":"msg_1","model":"claude-3-haiku-20240307"}}`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"こん"}}`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"にちは"}}`,
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}`,
			`data: {"type":"message_stop"}`,
		}
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n\n"))
		}
	}))
	defer server.Close()

	sink := events.NewCollectorSink()
	engine, err := NewClaudeEngine(testSettings(server.URL), inference.WithSink(sink))
	require.NoError(t, err)

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "挨拶して"),
	}

	reply, err := engine.RunInference(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleAssistant, reply.Role)
	assert.Equal(t, "こんにちは", reply.Text)

	assert.Equal(t, []string{"こん", "にちは"}, sink.Deltas())
	assert.True(t, sink.Finished())
}

func TestClaudeEngineNonStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, false, req["stream"])

		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-haiku-20240307",
			"content": [{"type": "text", "text": "東京の天気"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	s := testSettings(server.URL)
	s.Chat.Stream = false

	sink := events.NewCollectorSink()
	engine, err := NewClaudeEngine(s, inference.WithSink(sink))
	require.NoError(t, err)

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "summarize this"),
	}

	reply, err := engine.RunInference(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "東京の天気", reply.Text)

	// single shot: a final event but no partials
	assert.Empty(t, sink.Deltas())
	assert.True(t, sink.Finished())
	assert.Equal(t, "東京の天気", sink.Completion())
}

func TestClaudeEngineStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"par"}}`,
			`data: {"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`,
		}
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n\n"))
		}
	}))
	defer server.Close()

	sink := events.NewCollectorSink()
	engine, err := NewClaudeEngine(testSettings(server.URL), inference.WithSink(sink))
	require.NoError(t, err)

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "hi"),
	}

	_, err = engine.RunInference(context.Background(), msgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.False(t, sink.Finished())
	assert.Contains(t, sink.ErrorString(), "overloaded")
}
