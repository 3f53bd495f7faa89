package cmds

import (
	"os"

	"github.com/go-go-golems/healthbot/pkg/assistant"
	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/prompts"
	"github.com/go-go-golems/healthbot/pkg/provider/factory"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	KeySettingsFile = "settings-file"
	KeyCountTokens  = "count-tokens"
)

// Session bundles what a process needs to hold one conversation.
type Session struct {
	Settings     *settings.Settings
	Conversation *conversation.Conversation
	Orchestrator *assistant.Orchestrator
	// ProviderErr is set when no provider could be configured. The session
	// still works: non-emergency turns are answered with the error.
	ProviderErr error
}

// LoadSettings reads the settings file if one is configured and overlays the
// flags, environment and config file values from v.
func LoadSettings(v *viper.Viper) (*settings.Settings, error) {
	s := settings.NewSettings()

	if path := v.GetString(KeySettingsFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open settings file %s", path)
		}
		defer func() {
			_ = f.Close()
		}()
		s, err = settings.NewSettingsFromYAML(f)
		if err != nil {
			return nil, errors.Wrapf(err, "could not load settings file %s", path)
		}
	}

	return settings.UpdateFromViper(s, v), nil
}

func NewSession(v *viper.Viper) (*Session, error) {
	s, err := LoadSettings(v)
	if err != nil {
		return nil, err
	}

	p, providerErr := factory.NewProvider(s,
		factory.WithLogger(log.Logger),
		factory.WithTokenCounting(v.GetBool(KeyCountTokens)),
	)
	if providerErr != nil {
		log.Warn().Err(providerErr).Msg("assistant is not configured, only emergency screening is available")
	}

	systemPrompt, err := prompts.RenderSystemPrompt(prompts.SystemPromptData{
		AssistantName: s.Assistant.Name,
		Language:      s.Assistant.Language,
	})
	if err != nil {
		return nil, err
	}

	conv, err := conversation.New(systemPrompt, prompts.Greeting)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("conversation_id", conv.ID().String()).
		Interface("settings", s.GetMetadata()).
		Msg("session started")

	return &Session{
		Settings:     s,
		Conversation: conv,
		Orchestrator: assistant.New(p,
			assistant.WithLogger(log.Logger),
			assistant.WithModel(s.Engine()),
		),
		ProviderErr: providerErr,
	}, nil
}
