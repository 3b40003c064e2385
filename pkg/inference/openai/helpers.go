package openai

import (
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

// MakeClient builds a go-openai client from the configured credentials.
// A missing API key is rejected here, before any request is attempted.
func MakeClient(apiSettings *settings.APISettings, clientSettings *settings.ClientSettings) (*go_openai.Client, error) {
	apiKey, ok := apiSettings.GetAPIKey(settings.ApiTypeOpenAI)
	if !ok {
		return nil, errors.Wrap(inference.ErrMissingAPIKey, "openai")
	}

	config := go_openai.DefaultConfig(apiKey)
	if baseURL := apiSettings.GetBaseURL(settings.ApiTypeOpenAI, ""); baseURL != "" {
		config.BaseURL = baseURL
	}
	if clientSettings != nil {
		if clientSettings.Organization != nil && *clientSettings.Organization != "" {
			config.OrgID = *clientSettings.Organization
		}
		if clientSettings.HTTPClient != nil {
			config.HTTPClient = clientSettings.HTTPClient
		}
	}

	return go_openai.NewClientWithConfig(config), nil
}

// makeCompletionRequest maps a conversation onto a chat completion request.
// The configured system prompt is prepended unless the conversation already
// carries its own system message.
func makeCompletionRequest(stepSettings *settings.StepSettings, msgs conversation.Conversation) (*go_openai.ChatCompletionRequest, error) {
	chat := stepSettings.Chat
	if chat.Engine == nil || *chat.Engine == "" {
		return nil, inference.ErrMissingEngine
	}

	chatMessages := []go_openai.ChatCompletionMessage{}
	hasSystem := false
	for _, msg := range msgs {
		if msg.Role == conversation.RoleSystem {
			hasSystem = true
		}
		chatMessages = append(chatMessages, go_openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}
	if !hasSystem && chat.SystemPrompt != "" {
		chatMessages = append([]go_openai.ChatCompletionMessage{
			{
				Role:    go_openai.ChatMessageRoleSystem,
				Content: chat.SystemPrompt,
			},
		}, chatMessages...)
	}

	req := &go_openai.ChatCompletionRequest{
		Model:    *chat.Engine,
		Messages: chatMessages,
		Stream:   chat.Stream,
		Stop:     chat.Stop,
	}

	if chat.MaxResponseTokens != nil && *chat.MaxResponseTokens > 0 {
		req.MaxTokens = *chat.MaxResponseTokens
	}
	if chat.Temperature != nil {
		req.Temperature = float32(*chat.Temperature)
	}
	if chat.TopP != nil {
		req.TopP = float32(*chat.TopP)
	}

	return req, nil
}
