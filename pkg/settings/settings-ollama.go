package settings

import (
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OllamaSettings are passed to ollama as request options, keyed by their yaml
// names.
type OllamaSettings struct {
	NumCtx        *int     `yaml:"num_ctx,omitempty"`
	RepeatPenalty *float64 `yaml:"repeat_penalty,omitempty"`
	Seed          *int     `yaml:"seed,omitempty"`
	NumPredict    *int     `yaml:"num_predict,omitempty"`
	TopK          *int     `yaml:"top_k,omitempty"`
	TopP          *float64 `yaml:"top_p,omitempty"`
}

func NewOllamaSettings() *OllamaSettings {
	return &OllamaSettings{}
}

func (s *OllamaSettings) Clone() *OllamaSettings {
	return clone.Clone(s).(*OllamaSettings)
}

// Options converts the settings into an ollama options map by round-tripping
// through yaml, so that unset fields are left out.
func (s *OllamaSettings) Options() (map[string]interface{}, error) {
	ret := map[string]interface{}{}
	if s == nil {
		return ret, nil
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal ollama settings")
	}
	if err := yaml.Unmarshal(b, &ret); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal ollama settings")
	}
	return ret, nil
}
