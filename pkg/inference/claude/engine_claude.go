package claude

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/events"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/claude/api"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

// ClaudeEngine drives the Anthropic Messages API. With Stream on it consumes
// the streamed form of the API and publishes fragments as they arrive; with
// Stream off it makes a single blocking request. Either way the full reply is
// returned.
type ClaudeEngine struct {
	settings *settings.StepSettings
	config   *inference.Config
}

func NewClaudeEngine(stepSettings *settings.StepSettings, options ...inference.Option) (*ClaudeEngine, error) {
	config := inference.NewConfig()
	if err := inference.ApplyOptions(config, options...); err != nil {
		return nil, err
	}

	if _, ok := stepSettings.API.GetAPIKey(settings.ApiTypeClaude); !ok {
		return nil, errors.Wrap(inference.ErrMissingAPIKey, "claude")
	}

	return &ClaudeEngine{
		settings: stepSettings,
		config:   config,
	}, nil
}

func (e *ClaudeEngine) RunInference(ctx context.Context, msgs conversation.Conversation) (*conversation.Message, error) {
	client, err := MakeClient(e.settings.API, e.settings.Client)
	if err != nil {
		return nil, err
	}

	req, err := makeMessageRequest(e.settings, msgs)
	if err != nil {
		return nil, err
	}

	metadata := events.EventMetadata{
		ID:          uuid.New(),
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   &req.MaxTokens,
	}

	log.Debug().Fields(e.settings.GetMetadata()).Int("messages", len(req.Messages)).Msg("starting claude inference")

	if !e.settings.Chat.Stream {
		return e.runBlocking(ctx, client, req, metadata)
	}

	eventCh, err := client.StreamMessage(ctx, req)
	if err != nil {
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}

	e.publishEvent(ctx, events.NewStartEvent(metadata))

	completion := ""
	for {
		select {
		case <-ctx.Done():
			e.publishEvent(ctx, events.NewInterruptEvent(metadata, completion))
			return nil, ctx.Err()
		case event, ok := <-eventCh:
			if !ok {
				goto streamingComplete
			}

			switch event.Type {
			case api.StreamingEventTypeContentBlockDelta:
				if event.Delta == nil || event.Delta.Text == "" {
					continue
				}
				completion += event.Delta.Text
				e.publishEvent(ctx, events.NewPartialCompletionEvent(metadata, event.Delta.Text, completion))
			case api.StreamingEventTypeMessageDelta:
				if event.Delta != nil && event.Delta.StopReason != "" {
					stopReason := event.Delta.StopReason
					metadata.StopReason = &stopReason
				}
				if event.Usage != nil {
					metadata.Usage = &events.Usage{
						InputTokens:  event.Usage.InputTokens,
						OutputTokens: event.Usage.OutputTokens,
					}
				}
			case api.StreamingEventTypeError:
				streamErr := errors.New("claude stream error")
				if event.Error != nil {
					streamErr = errors.Errorf("claude stream error: %s", event.Error.Message)
				}
				e.publishEvent(ctx, events.NewErrorEvent(metadata, streamErr))
				return nil, streamErr
			case api.StreamingEventTypeMessageStop:
				goto streamingComplete
			}
		}
	}

streamingComplete:
	e.publishEvent(ctx, events.NewFinalEvent(metadata, completion))

	log.Debug().Str("model", req.Model).Int("completion_chars", len(completion)).Msg("claude inference complete")

	return conversation.NewMessage(conversation.RoleAssistant, completion), nil
}

// runBlocking is the non-streaming path used when Stream is off, for callers
// like the summarizer that only want the final text. It emits the same start
// and final events, just without partials.
func (e *ClaudeEngine) runBlocking(ctx context.Context, client *api.Client, req *api.MessageRequest, metadata events.EventMetadata) (*conversation.Message, error) {
	e.publishEvent(ctx, events.NewStartEvent(metadata))

	resp, err := client.SendMessage(ctx, req)
	if err != nil {
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}

	if resp.StopReason != "" {
		stopReason := resp.StopReason
		metadata.StopReason = &stopReason
	}
	metadata.Usage = &events.Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}

	text := resp.FullText()
	e.publishEvent(ctx, events.NewFinalEvent(metadata, text))

	return conversation.NewMessage(conversation.RoleAssistant, text), nil
}

func (e *ClaudeEngine) publishEvent(ctx context.Context, event events.Event) {
	e.config.PublishEvent(event)
	events.PublishEventToContext(ctx, event)
}

var _ inference.Engine = (*ClaudeEngine)(nil)
