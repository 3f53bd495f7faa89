// Package settings holds the configuration handed to completion providers.
//
// The assistant core treats the credential and the model identifier as opaque
// values: they are read here and passed through to the provider unmodified.
package settings

import (
	"io"
	"strings"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingApiType = errors.New("no api type specified")
	ErrMissingEngine  = errors.New("no engine specified")
)

// APISettings hold credentials and endpoints, keyed "<api-type>-api-key" and
// "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	baseUrls := map[string]string{}
	for apiType, url := range defaultBaseURLs {
		baseUrls[string(apiType)+"-base-url"] = url
	}
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: baseUrls,
	}
}

func (a *APISettings) Clone() *APISettings {
	return clone.Clone(a).(*APISettings)
}

type AssistantSettings struct {
	Name     string `yaml:"name,omitempty"`
	Language string `yaml:"language,omitempty"`
}

type Settings struct {
	Chat      *ChatSettings      `yaml:"chat,omitempty"`
	Client    *ClientSettings    `yaml:"client,omitempty"`
	API       *APISettings       `yaml:"api,omitempty"`
	Ollama    *OllamaSettings    `yaml:"ollama,omitempty"`
	Assistant *AssistantSettings `yaml:"assistant,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{
		Chat:      NewChatSettings(),
		Client:    NewClientSettings(),
		API:       NewAPISettings(),
		Ollama:    NewOllamaSettings(),
		Assistant: &AssistantSettings{},
	}
}

type settingsFileWrapper struct {
	Healthbot *Settings `yaml:"healthbot"`
}

// NewSettingsFromYAML reads settings nested under a top-level "healthbot" key,
// starting from the defaults.
func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	wrapper := settingsFileWrapper{
		Healthbot: NewSettings(),
	}
	if err := yaml.NewDecoder(r).Decode(&wrapper); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if wrapper.Healthbot == nil {
		return NewSettings(), nil
	}
	return wrapper.Healthbot, nil
}

func (s *Settings) ApiType() ApiType {
	if s.Chat == nil || s.Chat.ApiType == nil {
		return ""
	}
	return ApiType(strings.ToLower(string(*s.Chat.ApiType)))
}

func (s *Settings) Engine() string {
	if s.Chat == nil || s.Chat.Engine == nil {
		return ""
	}
	return *s.Chat.Engine
}

func (s *Settings) APIKey(apiType ApiType) (string, bool) {
	if s.API == nil {
		return "", false
	}
	key, ok := s.API.APIKeys[string(apiType)+"-api-key"]
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (s *Settings) BaseURL(apiType ApiType) (string, bool) {
	if s.API == nil {
		return "", false
	}
	url, ok := s.API.BaseUrls[string(apiType)+"-base-url"]
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

func (s *Settings) SetAPIKey(apiType ApiType, key string) {
	if s.API == nil {
		s.API = NewAPISettings()
	}
	s.API.APIKeys[string(apiType)+"-api-key"] = key
}

func (s *Settings) SetBaseURL(apiType ApiType, url string) {
	if s.API == nil {
		s.API = NewAPISettings()
	}
	s.API.BaseUrls[string(apiType)+"-base-url"] = url
}

// Validate checks that the settings are complete enough to build a provider
// for the configured api type.
func (s *Settings) Validate() error {
	if s.Chat == nil {
		return errors.New("chat settings cannot be nil")
	}
	apiType := s.ApiType()
	if apiType == "" {
		return ErrMissingApiType
	}
	if s.Engine() == "" {
		return ErrMissingEngine
	}
	if apiType.IsOpenAICompatible() {
		if _, ok := s.APIKey(apiType); !ok {
			return errors.Errorf("missing %s-api-key", apiType)
		}
		if _, ok := s.BaseURL(apiType); !ok {
			return errors.Errorf("missing %s-base-url", apiType)
		}
	}
	if s.Chat.Temperature != nil && (*s.Chat.Temperature < 0 || *s.Chat.Temperature > 2) {
		return errors.Errorf("temperature %v out of range [0, 2]", *s.Chat.Temperature)
	}
	return nil
}

// GetMetadata returns the non-secret settings, for logging and events.
func (s *Settings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if s.Chat != nil {
		if s.Chat.ApiType != nil {
			metadata["ai-api-type"] = string(*s.Chat.ApiType)
		}
		if s.Chat.Engine != nil {
			metadata["ai-engine"] = *s.Chat.Engine
		}
		if s.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *s.Chat.MaxResponseTokens
		}
		if s.Chat.TopP != nil && *s.Chat.TopP != 1 {
			metadata["ai-top-p"] = *s.Chat.TopP
		}
		if s.Chat.Temperature != nil {
			metadata["ai-temperature"] = *s.Chat.Temperature
		}
		if len(s.Chat.Stop) > 0 {
			metadata["ai-stop"] = s.Chat.Stop
		}
		metadata["ai-stream"] = s.Chat.Stream
	}

	if s.Client != nil {
		if s.Client.Timeout != nil {
			metadata["timeout"] = s.Client.Timeout.String()
		}
		if s.Client.UserAgent != nil {
			metadata["user-agent"] = *s.Client.UserAgent
		}
	}

	if s.API != nil {
		apiType := s.ApiType()
		if url, ok := s.BaseURL(apiType); ok {
			metadata["base-url"] = url
		}
	}

	return metadata
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
