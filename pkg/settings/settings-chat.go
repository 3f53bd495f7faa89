package settings

import (
	"github.com/huandu/go-clone"
)

const (
	DefaultEngine      = "gpt-4o-mini"
	DefaultTemperature = 0.4
)

type ChatSettings struct {
	ApiType           *ApiType `yaml:"api_type,omitempty"`
	Engine            *string  `yaml:"engine,omitempty"`
	MaxResponseTokens *int     `yaml:"max_response_tokens,omitempty"`
	TopP              *float64 `yaml:"top_p,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	Stop              []string `yaml:"stop,omitempty"`
	Stream            bool     `yaml:"stream,omitempty"`
}

func NewChatSettings() *ChatSettings {
	apiType := ApiTypeOpenAI
	engine := DefaultEngine
	temperature := DefaultTemperature
	return &ChatSettings{
		ApiType:     &apiType,
		Engine:      &engine,
		Temperature: &temperature,
		Stop:        []string{},
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}
