package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSELine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantType string
		wantText string
	}{
		{
			name:     "content block delta",
			line:     `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"こんにちは"}}`,
			wantOK:   true,
			wantType: StreamingEventTypeContentBlockDelta,
			wantText: "こんにちは",
		},
		{
			name:     "message stop",
			line:     `data: {"type":"message_stop"}`,
			wantOK:   true,
			wantType: StreamingEventTypeMessageStop,
		},
		{
			name:   "event name line is skipped",
			line:   "event: content_block_delta",
			wantOK: false,
		},
		{
			name:   "blank line is skipped",
			line:   "",
			wantOK: false,
		},
		{
			name:   "empty data is skipped",
			line:   "data:",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok, err := parseSSELine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, event.Type)
			if tt.wantText != "" {
				require.NotNil(t, event.Delta)
				assert.Equal(t, tt.wantText, event.Delta.Text)
			}
		})
	}
}

func TestParseSSELineMalformed(t *testing.T) {
	_, _, err := parseSSELine("data: {not json")
	assert.Error(t, err)
}

func TestStreamMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, defaultAPIVersion, r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			"event: message_start",
			`data: {"type":"message_start","message":{"id":"msg_1","model":"claude-3-haiku-20240307"}}`,
			"",
			"event: content_block_delta",
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
			"",
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
			"",
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
			"",
			`data: {"type":"message_stop"}`,
			"",
		}
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n"))
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	events, err := client.StreamMessage(context.Background(), &MessageRequest{
		Model:     "claude-3-haiku-20240307",
		Messages:  []Message{NewUserMessage("hi")},
		MaxTokens: 16,
	})
	require.NoError(t, err)

	text := ""
	var types []string
	for event := range events {
		types = append(types, event.Type)
		if event.Type == StreamingEventTypeContentBlockDelta && event.Delta != nil {
			text += event.Delta.Text
		}
	}

	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{
		StreamingEventTypeMessageStart,
		StreamingEventTypeContentBlockDelta,
		StreamingEventTypeContentBlockDelta,
		StreamingEventTypeMessageDelta,
		StreamingEventTypeMessageStop,
	}, types)
}

func TestStreamMessageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", server.URL)
	_, err := client.StreamMessage(context.Background(), &MessageRequest{
		Model:     "claude-3-haiku-20240307",
		Messages:  []Message{NewUserMessage("hi")},
		MaxTokens: 16,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

	client := NewClient("test-key", server.URL)
	resp, err := client.SendMessage(context.Background(), &MessageRequest{
		Model:     "claude-3-haiku-20240307",
		Messages:  []Message{NewUserMessage("summarize")},
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "東京の天気", resp.FullText())
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
}
