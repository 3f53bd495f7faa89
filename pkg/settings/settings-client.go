package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

const DefaultTimeout = 60 * time.Second

type ClientSettings struct {
	Timeout        *time.Duration `yaml:"timeout,omitempty"`
	TimeoutSeconds *int           `yaml:"timeout_second,omitempty"`
	UserAgent      *string        `yaml:"user_agent,omitempty"`
	HTTPClient     *http.Client   `yaml:"-" json:"-"`
}

// UnmarshalYAML overrides YAML parsing to convert time.duration from int
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	aux := &struct {
		Timeout        *int    `yaml:"timeout,omitempty"`
		TimeoutSeconds *int    `yaml:"timeout_second,omitempty"`
		UserAgent      *string `yaml:"user_agent,omitempty"`
	}{}
	if err := value.Decode(aux); err != nil {
		return err
	}
	if aux.TimeoutSeconds != nil && aux.Timeout == nil {
		aux.Timeout = aux.TimeoutSeconds
	}
	if aux.Timeout != nil {
		t := time.Duration(*aux.Timeout) * time.Second
		cs.Timeout = &t
		cs.TimeoutSeconds = aux.Timeout
	}
	if aux.UserAgent != nil {
		cs.UserAgent = aux.UserAgent
	}
	return nil
}

func (cs *ClientSettings) Clone() *ClientSettings {
	return clone.Clone(cs).(*ClientSettings)
}

// EffectiveTimeout returns the configured timeout, DefaultTimeout if none is set.
func (cs *ClientSettings) EffectiveTimeout() time.Duration {
	if cs == nil || cs.Timeout == nil || *cs.Timeout <= 0 {
		return DefaultTimeout
	}
	return *cs.Timeout
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := DefaultTimeout
	return &ClientSettings{
		Timeout: &defaultTimeout,
		TimeoutSeconds: func() *int {
			i := int(defaultTimeout.Seconds())
			return &i
		}(),
	}
}
