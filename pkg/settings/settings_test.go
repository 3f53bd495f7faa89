package settings

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOpenAISettings() *Settings {
	s := NewSettings()
	s.SetAPIKey(ApiTypeOpenAI, "sk-test")
	return s
}

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings()

	assert.Equal(t, ApiTypeOpenAI, s.ApiType())
	assert.Equal(t, DefaultEngine, s.Engine())
	require.NotNil(t, s.Chat.Temperature)
	assert.Equal(t, 0.4, *s.Chat.Temperature)
	assert.Equal(t, DefaultTimeout, s.Client.EffectiveTimeout())

	url, ok := s.BaseURL(ApiTypeOpenAI)
	require.True(t, ok)
	assert.Equal(t, "https://api.openai.com/v1", url)

	_, ok = s.APIKey(ApiTypeOpenAI)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOpenAISettings().Validate())

	missingKey := NewSettings()
	err := missingKey.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai-api-key")

	noEngine := validOpenAISettings()
	noEngine.Chat.Engine = nil
	require.ErrorIs(t, noEngine.Validate(), ErrMissingEngine)

	noApiType := validOpenAISettings()
	noApiType.Chat.ApiType = nil
	require.ErrorIs(t, noApiType.Validate(), ErrMissingApiType)

	hot := validOpenAISettings()
	temperature := 3.0
	hot.Chat.Temperature = &temperature
	require.Error(t, hot.Validate())

	ollama := NewSettings()
	apiType := ApiTypeOllama
	ollama.Chat.ApiType = &apiType
	require.NoError(t, ollama.Validate())
}

func TestGetMetadataOmitsSecrets(t *testing.T) {
	s := validOpenAISettings()
	md := s.GetMetadata()

	assert.Equal(t, "openai", md["ai-api-type"])
	assert.Equal(t, DefaultEngine, md["ai-engine"])
	assert.Equal(t, 0.4, md["ai-temperature"])
	assert.Equal(t, "https://api.openai.com/v1", md["base-url"])
	for _, v := range md {
		assert.NotEqual(t, "sk-test", v)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := validOpenAISettings()
	c := s.Clone()

	engine := "gpt-4o"
	c.Chat.Engine = &engine
	c.SetAPIKey(ApiTypeOpenAI, "other")

	assert.Equal(t, DefaultEngine, s.Engine())
	key, _ := s.APIKey(ApiTypeOpenAI)
	assert.Equal(t, "sk-test", key)
}

func TestNewSettingsFromYAML(t *testing.T) {
	in := `
healthbot:
  chat:
    engine: gpt-4o
    temperature: 0.2
  client:
    timeout: 5
  api:
    api_keys:
      openai-api-key: sk-yaml
  assistant:
    name: Nurse Bot
`
	s, err := NewSettingsFromYAML(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", s.Engine())
	assert.Equal(t, 0.2, *s.Chat.Temperature)
	assert.Equal(t, 5*time.Second, s.Client.EffectiveTimeout())
	key, ok := s.APIKey(ApiTypeOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-yaml", key)
	assert.Equal(t, "Nurse Bot", s.Assistant.Name)
	// untouched defaults survive
	assert.Equal(t, ApiTypeOpenAI, s.ApiType())
}

func TestNewSettingsFromYAMLInvalid(t *testing.T) {
	_, err := NewSettingsFromYAML(strings.NewReader("healthbot: [unclosed"))
	require.Error(t, err)
}

func TestNewSettingsFromViper(t *testing.T) {
	v := viper.New()
	v.Set(KeyApiType, "fireworks")
	v.Set(KeyModel, "llama-v3")
	v.Set(KeyTemperature, 0.7)
	v.Set(KeyTimeout, "10s")
	v.Set(KeyStream, true)
	v.Set("fireworks-api-key", "fw-key")
	v.Set(KeyLanguage, "french")

	s := NewSettingsFromViper(v)

	assert.Equal(t, ApiTypeFireworks, s.ApiType())
	assert.Equal(t, "llama-v3", s.Engine())
	assert.Equal(t, 0.7, *s.Chat.Temperature)
	assert.Equal(t, 10*time.Second, s.Client.EffectiveTimeout())
	assert.True(t, s.Chat.Stream)
	key, ok := s.APIKey(ApiTypeFireworks)
	require.True(t, ok)
	assert.Equal(t, "fw-key", key)
	assert.Equal(t, "french", s.Assistant.Language)
	require.NoError(t, s.Validate())
}

func TestOllamaOptions(t *testing.T) {
	s := NewOllamaSettings()
	opts, err := s.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	seed := 42
	s.Seed = &seed
	opts, err = s.Options()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"seed": 42}, opts)
}

func TestUpdateFromViperKeepsFileValues(t *testing.T) {
	in := `
healthbot:
  chat:
    engine: gpt-4o
  assistant:
    name: Nurse Bot
`
	s, err := NewSettingsFromYAML(strings.NewReader(in))
	require.NoError(t, err)

	v := viper.New()
	v.Set(KeyTemperature, 0.1)
	v.Set("openai-api-key", "sk-flag")
	UpdateFromViper(s, v)

	assert.Equal(t, "gpt-4o", s.Engine())
	assert.Equal(t, 0.1, *s.Chat.Temperature)
	assert.Equal(t, "Nurse Bot", s.Assistant.Name)
	key, _ := s.APIKey(ApiTypeOpenAI)
	assert.Equal(t, "sk-flag", key)
}
