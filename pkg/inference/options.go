package inference

import (
	"github.com/go-go-golems/cricket/pkg/events"
)

// Option is a functional option for configuring inference engines.
type Option func(*Config) error

// Config holds configuration shared by all engines.
type Config struct {
	// EventSinks receive streaming events in registration order.
	EventSinks []events.EventSink
}

func NewConfig() *Config {
	return &Config{
		EventSinks: make([]events.EventSink, 0),
	}
}

// WithSink adds an EventSink; multiple sinks all receive every event.
func WithSink(sink events.EventSink) Option {
	return func(c *Config) error {
		c.EventSinks = append(c.EventSinks, sink)
		return nil
	}
}

func ApplyOptions(config *Config, options ...Option) error {
	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}
	return nil
}

// PublishEvent sends the event to every configured sink, best-effort.
func (c *Config) PublishEvent(event events.Event) {
	for _, sink := range c.EventSinks {
		_ = sink.PublishEvent(event)
	}
}
