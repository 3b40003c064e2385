package inference

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/events"
)

// EchoEngine replays the last user message back, one rune at a time, through
// the same streaming event sequence the real providers use. It exists for
// tests and offline demos.
type EchoEngine struct {
	config *Config
	// TimePerCharacter throttles the stream; zero emits as fast as possible.
	TimePerCharacter time.Duration
	// FailAfter, when >= 0, aborts the stream with FailWith after that many
	// fragments, to exercise mid-stream provider failures.
	FailAfter int
	FailWith  error
}

func NewEchoEngine(options ...Option) (*EchoEngine, error) {
	config := NewConfig()
	if err := ApplyOptions(config, options...); err != nil {
		return nil, err
	}

	return &EchoEngine{
		config:    config,
		FailAfter: -1,
	}, nil
}

func (e *EchoEngine) RunInference(ctx context.Context, msgs conversation.Conversation) (*conversation.Message, error) {
	last := msgs.LastUserMessage()
	if last == nil {
		return nil, errors.New("no user message to echo")
	}

	metadata := events.EventMetadata{
		ID:    uuid.New(),
		Model: "echo",
	}
	e.publishEvent(ctx, events.NewStartEvent(metadata))

	completion := ""
	for i, r := range last.Text {
		if e.FailAfter >= 0 && i >= e.FailAfter {
			err := e.FailWith
			if err == nil {
				err = errors.New("echo stream failed")
			}
			e.publishEvent(ctx, events.NewErrorEvent(metadata, err))
			return nil, err
		}

		select {
		case <-ctx.Done():
			e.publishEvent(ctx, events.NewInterruptEvent(metadata, completion))
			return nil, ctx.Err()
		case <-time.After(e.TimePerCharacter):
		}

		delta := string(r)
		completion += delta
		e.publishEvent(ctx, events.NewPartialCompletionEvent(metadata, delta, completion))
	}

	e.publishEvent(ctx, events.NewFinalEvent(metadata, completion))
	return conversation.NewMessage(conversation.RoleAssistant, completion), nil
}

func (e *EchoEngine) publishEvent(ctx context.Context, event events.Event) {
	e.config.PublishEvent(event)
	events.PublishEventToContext(ctx, event)
}

var _ Engine = (*EchoEngine)(nil)
