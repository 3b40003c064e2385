package claude

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/claude/api"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

// MakeClient builds a Messages API client from the configured credentials.
// A missing API key is rejected here, before any request is attempted.
func MakeClient(apiSettings *settings.APISettings, clientSettings *settings.ClientSettings) (*api.Client, error) {
	apiKey, ok := apiSettings.GetAPIKey(settings.ApiTypeClaude)
	if !ok {
		return nil, errors.Wrap(inference.ErrMissingAPIKey, "claude")
	}

	baseURL := apiSettings.GetBaseURL(settings.ApiTypeClaude, settings.DefaultClaudeBaseURL)

	options := []api.ClientOption{}
	if clientSettings != nil {
		if clientSettings.HTTPClient != nil {
			options = append(options, api.WithHTTPClient(clientSettings.HTTPClient))
		}
		if clientSettings.Timeout != nil {
			options = append(options, api.WithTimeout(*clientSettings.Timeout))
		}
	}

	return api.NewClient(apiKey, baseURL, options...), nil
}

// makeMessageRequest maps a conversation onto a Messages API request. System
// messages are folded into the request's System field; the API only accepts
// user and assistant roles in the message list.
func makeMessageRequest(stepSettings *settings.StepSettings, msgs conversation.Conversation) (*api.MessageRequest, error) {
	chat := stepSettings.Chat
	if chat.Engine == nil || *chat.Engine == "" {
		return nil, inference.ErrMissingEngine
	}

	system := chat.SystemPrompt
	apiMessages := []api.Message{}
	for _, msg := range msgs {
		switch msg.Role {
		case conversation.RoleSystem:
			system = msg.Text
		case conversation.RoleUser:
			apiMessages = append(apiMessages, api.NewUserMessage(msg.Text))
		case conversation.RoleAssistant:
			apiMessages = append(apiMessages, api.NewAssistantMessage(msg.Text))
		}
	}

	maxTokens := settings.DefaultMaxTokens
	if chat.MaxResponseTokens != nil && *chat.MaxResponseTokens > 0 {
		maxTokens = *chat.MaxResponseTokens
	}

	req := &api.MessageRequest{
		Model:         *chat.Engine,
		Messages:      apiMessages,
		MaxTokens:     maxTokens,
		StopSequences: chat.Stop,
		System:        system,
		Temperature:   chat.Temperature,
		TopP:          chat.TopP,
		Stream:        chat.Stream,
	}

	return req, nil
}
