package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WatermillSink publishes events as JSON messages on a watermill topic, the
// callback/subscriber side of the stream contract.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillSink) PublishEvent(event Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "could not marshal event")
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	return w.publisher.Publish(w.topic, msg)
}

var _ EventSink = (*WatermillSink)(nil)

// EventRouter wires engine event streams to handlers over an in-process
// gochannel pub/sub. One router typically serves one UI session.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}

	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// Sink returns a sink that publishes engine events on the given topic.
func (e *EventRouter) Sink(topic string) *WatermillSink {
	return NewWatermillSink(e.Publisher, topic)
}

// AddHandler subscribes a raw watermill handler to a topic.
func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

// AddChatEventHandler decodes incoming messages into chat events before
// invoking the handler, so consumers don't deal with the wire format.
func (e *EventRouter) AddChatEventHandler(name string, topic string, f func(Event) error) {
	e.AddHandler(name, topic, func(msg *message.Message) error {
		event, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("could not decode chat event")
			return nil
		}
		return f(event)
	})
}

// Run blocks until the context is cancelled or the router fails.
func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Running returns a channel closed once the router is ready to deliver.
func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Close() error {
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
	return e.router.Close()
}
