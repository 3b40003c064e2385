package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart to EventTypeFinal cover one streamed completion.
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"
	EventTypeInterrupt         EventType = "interrupt"
)

// Usage is the token accounting reported by the provider, when available.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EventMetadata identifies one inference call and carries the request
// parameters UI layers render alongside the stream.
type EventMetadata struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Model          string    `json:"model,omitempty"`
	Temperature    *float64  `json:"temperature,omitempty"`
	MaxTokens      *int      `json:"max_tokens,omitempty"`
	Usage          *Usage    `json:"usage,omitempty"`
	StopReason     *string   `json:"stop_reason,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", em.ID.String())
	if em.ConversationID != "" {
		e.Str("conversation_id", em.ConversationID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Temperature != nil {
		e.Float64("temperature", *em.Temperature)
	}
	if em.StopReason != nil {
		e.Str("stop_reason", *em.StopReason)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// set when the event was deserialized from JSON, see NewEventFromJSON
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

type EventPartialCompletionStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventPartialCompletionStart {
	return &EventPartialCompletionStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

// EventPartialCompletion carries one text fragment in arrival order. Delta is
// the fragment itself, Completion the text accumulated so far.
type EventPartialCompletion struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventPartialCompletionStart{}
var _ Event = &EventPartialCompletion{}
var _ Event = &EventFinal{}
var _ Event = &EventError{}
var _ Event = &EventInterrupt{}

// NewEventFromJSON decodes an event published over the wire (for instance by
// a WatermillSink) back into its concrete type.
func NewEventFromJSON(b []byte) (Event, error) {
	var base EventImpl
	if err := json.Unmarshal(b, &base); err != nil {
		return nil, errors.Wrap(err, "could not decode event envelope")
	}

	decode := func(e Event) (Event, error) {
		if err := json.Unmarshal(b, e); err != nil {
			return nil, errors.Wrapf(err, "could not decode %s event", base.Type_)
		}
		return e, nil
	}

	switch base.Type_ {
	case EventTypeStart:
		ret, err := decode(&EventPartialCompletionStart{})
		if err != nil {
			return nil, err
		}
		ret.(*EventPartialCompletionStart).payload = b
		return ret, nil
	case EventTypePartialCompletion:
		ret, err := decode(&EventPartialCompletion{})
		if err != nil {
			return nil, err
		}
		ret.(*EventPartialCompletion).payload = b
		return ret, nil
	case EventTypeFinal:
		ret, err := decode(&EventFinal{})
		if err != nil {
			return nil, err
		}
		ret.(*EventFinal).payload = b
		return ret, nil
	case EventTypeError:
		ret, err := decode(&EventError{})
		if err != nil {
			return nil, err
		}
		ret.(*EventError).payload = b
		return ret, nil
	case EventTypeInterrupt:
		ret, err := decode(&EventInterrupt{})
		if err != nil {
			return nil, err
		}
		ret.(*EventInterrupt).payload = b
		return ret, nil
	default:
		return nil, errors.Errorf("unknown event type %s", base.Type_)
	}
}
