package settings

type ApiType string

const (
	ApiTypeOpenAI    ApiType = "openai"
	ApiTypeAnyScale  ApiType = "anyscale"
	ApiTypeFireworks ApiType = "fireworks"
	ApiTypeOllama    ApiType = "ollama"
)

// IsOpenAICompatible reports whether the api type is served through the
// OpenAI chat completions protocol.
func (a ApiType) IsOpenAICompatible() bool {
	switch a {
	case ApiTypeOpenAI, ApiTypeAnyScale, ApiTypeFireworks:
		return true
	case ApiTypeOllama:
		return false
	}
	return false
}

var defaultBaseURLs = map[ApiType]string{
	ApiTypeOpenAI:    "https://api.openai.com/v1",
	ApiTypeAnyScale:  "https://api.endpoints.anyscale.com/v1",
	ApiTypeFireworks: "https://api.fireworks.ai/inference/v1",
}
