package openai

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/events"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

// OpenAIEngine drives the OpenAI chat completion API. With Stream on it
// consumes the streamed form of the API and publishes fragments as they
// arrive; with Stream off it makes a single blocking request. Either way the
// full reply is returned.
type OpenAIEngine struct {
	settings *settings.StepSettings
	config   *inference.Config
}

func NewOpenAIEngine(stepSettings *settings.StepSettings, options ...inference.Option) (*OpenAIEngine, error) {
	config := inference.NewConfig()
	if err := inference.ApplyOptions(config, options...); err != nil {
		return nil, err
	}

	if _, ok := stepSettings.API.GetAPIKey(settings.ApiTypeOpenAI); !ok {
		return nil, errors.Wrap(inference.ErrMissingAPIKey, "openai")
	}

	return &OpenAIEngine{
		settings: stepSettings,
		config:   config,
	}, nil
}

func (e *OpenAIEngine) RunInference(ctx context.Context, msgs conversation.Conversation) (*conversation.Message, error) {
	client, err := MakeClient(e.settings.API, e.settings.Client)
	if err != nil {
		return nil, err
	}

	req, err := makeCompletionRequest(e.settings, msgs)
	if err != nil {
		return nil, err
	}

	metadata := events.EventMetadata{
		ID:          uuid.New(),
		Model:       req.Model,
		Temperature: e.settings.Chat.Temperature,
		MaxTokens:   e.settings.Chat.MaxResponseTokens,
	}

	log.Debug().Fields(e.settings.GetMetadata()).Int("messages", len(req.Messages)).Msg("starting openai inference")

	if !e.settings.Chat.Stream {
		return e.runBlocking(ctx, client, req, metadata)
	}

	req.Stream = true
	stream, err := client.CreateChatCompletionStream(ctx, *req)
	if err != nil {
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}
	defer func() {
		_ = stream.Close()
	}()

	e.publishEvent(ctx, events.NewStartEvent(metadata))

	completion := ""
	for {
		select {
		case <-ctx.Done():
			e.publishEvent(ctx, events.NewInterruptEvent(metadata, completion))
			return nil, ctx.Err()
		default:
			response, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				goto streamingComplete
			}
			if recvErr != nil {
				e.publishEvent(ctx, events.NewErrorEvent(metadata, recvErr))
				return nil, recvErr
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]
			if choice.FinishReason != "" {
				stopReason := string(choice.FinishReason)
				metadata.StopReason = &stopReason
			}
			if choice.Delta.Content == "" {
				continue
			}

			completion += choice.Delta.Content
			e.publishEvent(ctx, events.NewPartialCompletionEvent(metadata, choice.Delta.Content, completion))
		}
	}

streamingComplete:
	e.publishEvent(ctx, events.NewFinalEvent(metadata, completion))

	log.Debug().Str("model", req.Model).Int("completion_chars", len(completion)).Msg("openai inference complete")

	return conversation.NewMessage(conversation.RoleAssistant, completion), nil
}

// runBlocking is the non-streaming path used when Stream is off, for callers
// like the summarizer that only want the final text. It emits the same start
// and final events, just without partials.
func (e *OpenAIEngine) runBlocking(ctx context.Context, client *go_openai.Client, req *go_openai.ChatCompletionRequest, metadata events.EventMetadata) (*conversation.Message, error) {
	req.Stream = false
	e.publishEvent(ctx, events.NewStartEvent(metadata))

	resp, err := client.CreateChatCompletion(ctx, *req)
	if err != nil {
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := errors.New("no choices returned")
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}

	choice := resp.Choices[0]
	if choice.FinishReason != "" {
		stopReason := string(choice.FinishReason)
		metadata.StopReason = &stopReason
	}
	metadata.Usage = &events.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	e.publishEvent(ctx, events.NewFinalEvent(metadata, choice.Message.Content))

	return conversation.NewMessage(conversation.RoleAssistant, choice.Message.Content), nil
}

func (e *OpenAIEngine) publishEvent(ctx context.Context, event events.Event) {
	e.config.PublishEvent(event)
	events.PublishEventToContext(ctx, event)
}

var _ inference.Engine = (*OpenAIEngine)(nil)
