package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Streaming event types emitted by the Messages API.
const (
	StreamingEventTypeMessageStart      = "message_start"
	StreamingEventTypeContentBlockStart = "content_block_start"
	StreamingEventTypeContentBlockDelta = "content_block_delta"
	StreamingEventTypeContentBlockStop  = "content_block_stop"
	StreamingEventTypeMessageDelta      = "message_delta"
	StreamingEventTypeMessageStop       = "message_stop"
	StreamingEventTypePing              = "ping"
	StreamingEventTypeError             = "error"
)

// StreamingEvent is one decoded SSE frame from the Messages API stream.
type StreamingEvent struct {
	Type    string           `json:"type"`
	Index   int              `json:"index,omitempty"`
	Message *MessageResponse `json:"message,omitempty"`
	Delta   *Delta           `json:"delta,omitempty"`
	Usage   *Usage           `json:"usage,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// Delta carries the incremental part of a content_block_delta or
// message_delta frame.
type Delta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// StreamMessage opens a streaming message request and returns a channel of
// decoded events. The channel is closed when the stream ends, errors out, or
// the context is cancelled; a terminal error arrives as a StreamingEvent of
// type "error".
func (c *Client) StreamMessage(ctx context.Context, req *MessageRequest) (<-chan StreamingEvent, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		var errorResp ErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errorResp); unmarshalErr != nil {
			return nil, errors.Errorf("streaming request failed with status %d", resp.StatusCode)
		}
		return nil, errors.New(errorResp.Error.Message)
	}

	events := make(chan StreamingEvent)

	go func() {
		defer close(events)
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			event, ok, parseErr := parseSSELine(scanner.Text())
			if parseErr != nil {
				log.Warn().Err(parseErr).Msg("skipping malformed SSE frame")
				continue
			}
			if !ok || event.Type == StreamingEventTypePing {
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}

			if event.Type == StreamingEventTypeMessageStop || event.Type == StreamingEventTypeError {
				return
			}
		}

		if scanErr := scanner.Err(); scanErr != nil {
			select {
			case events <- StreamingEvent{
				Type:  StreamingEventTypeError,
				Error: &ErrorDetail{Type: "stream_error", Message: scanErr.Error()},
			}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}

// parseSSELine decodes a single "data: {...}" line. Event-name lines, blank
// separators and comments yield ok=false.
func parseSSELine(line string) (StreamingEvent, bool, error) {
	if !strings.HasPrefix(line, "data:") {
		return StreamingEvent{}, false, nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" {
		return StreamingEvent{}, false, nil
	}

	var event StreamingEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return StreamingEvent{}, false, errors.Wrap(err, "could not decode streaming event")
	}

	return event, true, nil
}
