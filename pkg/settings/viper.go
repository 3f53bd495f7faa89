package settings

import (
	"github.com/spf13/viper"
)

// Viper keys read by NewSettingsFromViper. They double as flag names in
// cmd/healthbot.
const (
	KeyApiType           = "api-type"
	KeyModel             = "model"
	KeyTemperature       = "temperature"
	KeyMaxResponseTokens = "max-response-tokens"
	KeyStream            = "stream"
	KeyTimeout           = "timeout"
	KeyUserAgent         = "user-agent"
	KeyAssistantName     = "assistant-name"
	KeyLanguage          = "language"
	KeyOllamaNumCtx      = "ollama-num-ctx"
	KeyOllamaSeed        = "ollama-seed"
)

var openAICompatible = []ApiType{ApiTypeOpenAI, ApiTypeAnyScale, ApiTypeFireworks}

// NewSettingsFromViper overlays the values set in v (flags, environment,
// config file) on top of the defaults. Unset keys keep their defaults.
func NewSettingsFromViper(v *viper.Viper) *Settings {
	return UpdateFromViper(NewSettings(), v)
}

// UpdateFromViper overlays the values set in v on s and returns s.
func UpdateFromViper(s *Settings, v *viper.Viper) *Settings {
	if s.Chat == nil {
		s.Chat = NewChatSettings()
	}
	if s.Client == nil {
		s.Client = NewClientSettings()
	}
	if s.Ollama == nil {
		s.Ollama = NewOllamaSettings()
	}

	if v.IsSet(KeyApiType) {
		apiType := ApiType(v.GetString(KeyApiType))
		s.Chat.ApiType = &apiType
	}
	if v.IsSet(KeyModel) {
		engine := v.GetString(KeyModel)
		s.Chat.Engine = &engine
	}
	if v.IsSet(KeyTemperature) {
		temperature := v.GetFloat64(KeyTemperature)
		s.Chat.Temperature = &temperature
	}
	if v.IsSet(KeyMaxResponseTokens) {
		maxTokens := v.GetInt(KeyMaxResponseTokens)
		if maxTokens > 0 {
			s.Chat.MaxResponseTokens = &maxTokens
		}
	}
	if v.IsSet(KeyStream) {
		s.Chat.Stream = v.GetBool(KeyStream)
	}

	if v.IsSet(KeyTimeout) {
		timeout := v.GetDuration(KeyTimeout)
		seconds := int(timeout.Seconds())
		s.Client.Timeout = &timeout
		s.Client.TimeoutSeconds = &seconds
	}
	if v.IsSet(KeyUserAgent) {
		userAgent := v.GetString(KeyUserAgent)
		s.Client.UserAgent = &userAgent
	}

	for _, apiType := range openAICompatible {
		if key := v.GetString(string(apiType) + "-api-key"); key != "" {
			s.SetAPIKey(apiType, key)
		}
		if url := v.GetString(string(apiType) + "-base-url"); url != "" {
			s.SetBaseURL(apiType, url)
		}
	}

	if v.IsSet(KeyOllamaNumCtx) {
		numCtx := v.GetInt(KeyOllamaNumCtx)
		s.Ollama.NumCtx = &numCtx
	}
	if v.IsSet(KeyOllamaSeed) {
		seed := v.GetInt(KeyOllamaSeed)
		s.Ollama.Seed = &seed
	}

	if s.Assistant == nil {
		s.Assistant = &AssistantSettings{}
	}
	if v.IsSet(KeyAssistantName) {
		s.Assistant.Name = v.GetString(KeyAssistantName)
	}
	if v.IsSet(KeyLanguage) {
		s.Assistant.Language = v.GetString(KeyLanguage)
	}

	return s
}
