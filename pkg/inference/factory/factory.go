package factory

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/claude"
	"github.com/go-go-golems/cricket/pkg/inference/openai"
	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

// EngineFactory resolves a provider from settings and builds the matching
// engine. Resolution happens exactly once, at creation time; a built engine
// never re-routes between providers.
type EngineFactory interface {
	CreateEngine(settings_ *settings.StepSettings, options ...inference.Option) (inference.Engine, error)
	SupportedProviders() []string
	DefaultProvider() string
}

// StandardEngineFactory dispatches on the configured api type. The provider
// set is closed; an unknown api type is an error, not a fallback.
type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

func (f *StandardEngineFactory) CreateEngine(settings_ *settings.StepSettings, options ...inference.Option) (inference.Engine, error) {
	if settings_ == nil || settings_.Chat == nil || settings_.Chat.ApiType == nil {
		return nil, errors.New("no api type configured")
	}

	if err := f.validateSettings(settings_); err != nil {
		return nil, err
	}

	switch *settings_.Chat.ApiType {
	case settings.ApiTypeOpenAI:
		return openai.NewOpenAIEngine(settings_, options...)
	case settings.ApiTypeClaude:
		return claude.NewClaudeEngine(settings_, options...)
	default:
		return nil, errors.Errorf("unsupported provider: %s", *settings_.Chat.ApiType)
	}
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{
		string(settings.ApiTypeOpenAI),
		string(settings.ApiTypeClaude),
	}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return string(settings.ApiTypeClaude)
}

// validateSettings checks the engine and credentials before any engine is
// built, so that misconfiguration fails at startup rather than on the first
// submit.
func (f *StandardEngineFactory) validateSettings(settings_ *settings.StepSettings) error {
	apiType := *settings_.Chat.ApiType

	if settings_.Chat.Engine == nil || *settings_.Chat.Engine == "" {
		return errors.Wrapf(inference.ErrMissingEngine, "%s", apiType)
	}

	switch apiType {
	case settings.ApiTypeOpenAI, settings.ApiTypeClaude:
		if _, ok := settings_.API.GetAPIKey(apiType); !ok {
			return errors.Wrapf(inference.ErrMissingAPIKey, "%s", apiType)
		}
	default:
		return errors.Errorf("unsupported provider: %s", apiType)
	}

	return nil
}

var _ EngineFactory = (*StandardEngineFactory)(nil)
