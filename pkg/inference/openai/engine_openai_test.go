package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/events"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

func testSettings() *settings.StepSettings {
	s := settings.NewStepSettings()
	apiType := settings.ApiTypeOpenAI
	engine := settings.DefaultOpenAIEngine
	s.Chat.ApiType = &apiType
	s.Chat.Engine = &engine
	s.API.APIKeys["openai-api-key"] = "sk-test"
	return s
}

func TestNewOpenAIEngineMissingAPIKey(t *testing.T) {
	s := settings.NewStepSettings()
	_, err := NewOpenAIEngine(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, inference.ErrMissingAPIKey))
}

func TestMakeCompletionRequest(t *testing.T) {
	s := testSettings()
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "hello"),
		conversation.NewMessage(conversation.RoleAssistant, "hi"),
		conversation.NewMessage(conversation.RoleUser, "bye"),
	}

	req, err := makeCompletionRequest(s, msgs)
	require.NoError(t, err)

	assert.Equal(t, settings.DefaultOpenAIEngine, req.Model)
	assert.Equal(t, settings.DefaultMaxTokens, req.MaxTokens)

	// system prompt is prepended when the conversation has none
	require.Len(t, req.Messages, 4)
	assert.Equal(t, go_openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, settings.DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "hello", req.Messages[1].Content)
	assert.Equal(t, "bye", req.Messages[3].Content)
}

func TestMakeCompletionRequestKeepsExistingSystem(t *testing.T) {
	s := testSettings()
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleSystem, "You are terse."),
		conversation.NewMessage(conversation.RoleUser, "hello"),
	}

	req, err := makeCompletionRequest(s, msgs)
	require.NoError(t, err)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "You are terse.", req.Messages[0].Content)
}

func TestMakeCompletionRequestMissingEngine(t *testing.T) {
	s := testSettings()
	s.Chat.Engine = nil

	_, err := makeCompletionRequest(s, conversation.Conversation{})
	assert.True(t, errors.Is(err, inference.ErrMissingEngine))
}

func TestOpenAIEngineNonStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "こんにちは"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer server.Close()

	s := testSettings()
	s.Chat.Stream = false
	s.API.BaseURLs["openai-base-url"] = server.URL + "/v1"

	sink := events.NewCollectorSink()
	engine, err := NewOpenAIEngine(s, inference.WithSink(sink))
	require.NoError(t, err)

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "挨拶して"),
	}

	reply, err := engine.RunInference(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleAssistant, reply.Role)
	assert.Equal(t, "こんにちは", reply.Text)

	// single shot: a final event but no partials
	assert.Empty(t, sink.Deltas())
	assert.True(t, sink.Finished())
	assert.Equal(t, "こんにちは", sink.Completion())
}

func TestMakeClientMissingKey(t *testing.T) {
	api := settings.NewAPISettings()
	_, err := MakeClient(api, settings.NewClientSettings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, inference.ErrMissingAPIKey))
}
