package inference

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

// Engine is the uniform interface over the interchangeable LLM backends.
// After construction callers never branch on provider identity; the provider
// is resolved once by the factory.
type Engine interface {
	// RunInference sends the conversation to the provider and returns the
	// assistant's reply. When streaming, fragments are published in arrival
	// order to the sinks configured at construction and to any sinks carried
	// in ctx, then the accumulated text is returned; engines configured not
	// to stream publish the same start and final events around one blocking
	// request. The stream is finite and not restartable; a fresh call
	// re-executes the request. Provider-side errors surface unmodified, with
	// no retry and no fallback provider.
	RunInference(ctx context.Context, msgs conversation.Conversation) (*conversation.Message, error)
}

// ErrMissingAPIKey is returned before any network attempt when the selected
// provider has no credential configured.
var ErrMissingAPIKey = errors.New("missing provider API key")

// ErrMissingEngine is returned when no model identifier is configured.
var ErrMissingEngine = errors.New("no model specified")
