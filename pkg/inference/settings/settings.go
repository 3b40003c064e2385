package settings

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

// ApiType selects which of the two provider backends an engine talks to.
// The set is closed; resolution happens once, in the factory.
type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeClaude ApiType = "claude"
)

const (
	DefaultOpenAIEngine  = "gpt-4o-mini"
	DefaultClaudeEngine  = "claude-3-haiku-20240307"
	DefaultClaudeBaseURL = "https://api.anthropic.com"
	DefaultMaxTokens     = 2048
	// DefaultSystemPrompt matches the chatbot's stock instruction.
	DefaultSystemPrompt = "必ず日本語で返答してください。"
)

type ChatSettings struct {
	ApiType           *ApiType `yaml:"api_type,omitempty"`
	Engine            *string  `yaml:"engine,omitempty"`
	MaxResponseTokens *int     `yaml:"max_response_tokens,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	TopP              *float64 `yaml:"top_p,omitempty"`
	Stop              []string `yaml:"stop,omitempty"`
	SystemPrompt      string   `yaml:"system_prompt,omitempty"`
	Stream            bool     `yaml:"stream,omitempty"`
}

func NewChatSettings() *ChatSettings {
	apiType := ApiTypeClaude
	engine := DefaultClaudeEngine
	maxTokens := DefaultMaxTokens
	temperature := 0.0

	return &ChatSettings{
		ApiType:           &apiType,
		Engine:            &engine,
		MaxResponseTokens: &maxTokens,
		Temperature:       &temperature,
		Stop:              []string{},
		SystemPrompt:      DefaultSystemPrompt,
		Stream:            true,
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

// APISettings holds per-provider credentials and endpoints, keyed by
// "<api-type>-api-key" and "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseURLs map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseURLs: map[string]string{},
	}
}

func (s *APISettings) GetAPIKey(apiType ApiType) (string, bool) {
	key, ok := s.APIKeys[string(apiType)+"-api-key"]
	return key, ok && key != ""
}

func (s *APISettings) GetBaseURL(apiType ApiType, fallback string) string {
	if url, ok := s.BaseURLs[string(apiType)+"-base-url"]; ok && url != "" {
		return url
	}
	return fallback
}

// LoadKeysFromEnv fills in credentials from the conventional environment
// variables, without overriding keys that are already set.
func (s *APISettings) LoadKeysFromEnv() {
	setIfEmpty := func(key string, envs ...string) {
		if s.APIKeys[key] != "" {
			return
		}
		for _, env := range envs {
			if v := os.Getenv(env); v != "" {
				s.APIKeys[key] = v
				return
			}
		}
	}

	setIfEmpty("openai-api-key", "OPENAI_API_KEY")
	setIfEmpty("claude-api-key", "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
}

type ClientSettings struct {
	Timeout        *time.Duration `yaml:"-"`
	TimeoutSeconds *int           `yaml:"timeout,omitempty"`
	Organization   *string        `yaml:"organization,omitempty"`
	UserAgent      *string        `yaml:"user_agent,omitempty"`
	HTTPClient     *http.Client   `yaml:"-" json:"-"`
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := 60 * time.Second
	timeoutSeconds := int(defaultTimeout.Seconds())
	return &ClientSettings{
		Timeout:        &defaultTimeout,
		TimeoutSeconds: &timeoutSeconds,
	}
}

// UnmarshalYAML converts the integer timeout field into a time.Duration.
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	type Alias ClientSettings
	aux := &struct {
		Timeout *int `yaml:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(cs),
	}
	if err := value.Decode(aux); err != nil {
		return err
	}
	if aux.Timeout != nil {
		t := time.Duration(*aux.Timeout) * time.Second
		cs.Timeout = &t
		cs.TimeoutSeconds = aux.Timeout
	}
	return nil
}

func (cs *ClientSettings) Clone() *ClientSettings {
	return clone.Clone(cs).(*ClientSettings)
}

// SummarySettings configures the one-shot summarizer: a fixed lightweight
// model with its own instruction, independent of the chat settings.
type SummarySettings struct {
	Engine            *string `yaml:"engine,omitempty"`
	MaxResponseTokens *int    `yaml:"max_response_tokens,omitempty"`
}

func NewSummarySettings() *SummarySettings {
	maxTokens := 64
	return &SummarySettings{
		MaxResponseTokens: &maxTokens,
	}
}

type StepSettings struct {
	Chat    *ChatSettings    `yaml:"chat,omitempty"`
	Client  *ClientSettings  `yaml:"client,omitempty"`
	API     *APISettings     `yaml:"api,omitempty"`
	Summary *SummarySettings `yaml:"summary,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat:    NewChatSettings(),
		Client:  NewClientSettings(),
		API:     NewAPISettings(),
		Summary: NewSummarySettings(),
	}
}

func NewStepSettingsFromYAML(r io.Reader) (*StepSettings, error) {
	settings_ := NewStepSettings()
	if err := yaml.NewDecoder(r).Decode(settings_); err != nil {
		return nil, err
	}
	return settings_, nil
}

func (s *StepSettings) Clone() *StepSettings {
	return clone.Clone(s).(*StepSettings)
}

// SummaryEngine returns the summarizer model: the configured one if set,
// otherwise the provider's lightweight default.
func (s *StepSettings) SummaryEngine() string {
	if s.Summary != nil && s.Summary.Engine != nil && *s.Summary.Engine != "" {
		return *s.Summary.Engine
	}
	if s.Chat != nil && s.Chat.ApiType != nil && *s.Chat.ApiType == ApiTypeOpenAI {
		return DefaultOpenAIEngine
	}
	return DefaultClaudeEngine
}

// GetMetadata flattens the effective settings for logging and event payloads.
func (s *StepSettings) GetMetadata() map[string]interface{} {
	metadata := map[string]interface{}{}

	if s.Chat != nil {
		if s.Chat.ApiType != nil {
			metadata["api-type"] = string(*s.Chat.ApiType)
		}
		if s.Chat.Engine != nil {
			metadata["engine"] = *s.Chat.Engine
		}
		if s.Chat.MaxResponseTokens != nil {
			metadata["max-response-tokens"] = *s.Chat.MaxResponseTokens
		}
		if s.Chat.Temperature != nil {
			metadata["temperature"] = *s.Chat.Temperature
		}
		if s.Chat.TopP != nil && *s.Chat.TopP != 1 {
			metadata["top-p"] = *s.Chat.TopP
		}
		if len(s.Chat.Stop) > 0 {
			metadata["stop"] = s.Chat.Stop
		}
		metadata["stream"] = s.Chat.Stream
	}

	if s.Client != nil {
		if s.Client.Timeout != nil {
			metadata["timeout"] = s.Client.Timeout.String()
		}
		if s.Client.Organization != nil && *s.Client.Organization != "" {
			metadata["organization"] = *s.Client.Organization
		}
	}

	return metadata
}
