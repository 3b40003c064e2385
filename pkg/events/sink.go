package events

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// EventSink is a destination for streaming inference events. Engines publish
// to every configured sink in order; a sink that returns an error does not
// stop the stream.
type EventSink interface {
	PublishEvent(event Event) error
}

// SinkFunc adapts a plain function to the EventSink interface.
type SinkFunc func(event Event) error

func (f SinkFunc) PublishEvent(event Event) error {
	return f(event)
}

// CollectorSink accumulates streamed fragments. It is the blocking-iteration
// side of the stream contract: callers attach it to an engine call, then read
// the deltas or the completed text once the call returns.
type CollectorSink struct {
	mu         sync.Mutex
	deltas     []string
	completion string
	final      bool
	err        string
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (c *CollectorSink) PublishEvent(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case *EventPartialCompletion:
		c.deltas = append(c.deltas, e.Delta)
		c.completion = e.Completion
	case *EventFinal:
		c.completion = e.Text
		c.final = true
	case *EventError:
		c.err = e.ErrorString
	case *EventInterrupt:
		c.completion = e.Text
	}
	return nil
}

// Deltas returns the fragments received so far, in arrival order.
func (c *CollectorSink) Deltas() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]string, len(c.deltas))
	copy(ret, c.deltas)
	return ret
}

func (c *CollectorSink) Completion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completion
}

func (c *CollectorSink) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final
}

func (c *CollectorSink) ErrorString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Joined concatenates all received deltas. When the stream completed this
// equals Completion, which is the semantic the invoke path relies on.
func (c *CollectorSink) Joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.deltas, "")
}

// ChannelSink forwards events to a channel, for select-based consumers. The
// channel must be buffered; a full channel drops the event rather than
// stalling the stream.
type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (c *ChannelSink) PublishEvent(event Event) error {
	select {
	case c.ch <- event:
		return nil
	default:
		return errors.New("event channel full")
	}
}

var _ EventSink = (*CollectorSink)(nil)
var _ EventSink = SinkFunc(nil)
var _ EventSink = (*ChannelSink)(nil)
