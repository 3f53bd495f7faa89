// Package factory builds the configured completion provider from settings.
package factory

import (
	"time"

	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/go-go-golems/healthbot/pkg/provider/ollama"
	"github.com/go-go-golems/healthbot/pkg/provider/openai"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Factory struct {
	middlewares []provider.Middleware
	logger      zerolog.Logger
	countTokens bool
}

type Option func(*Factory)

// WithMiddleware appends middlewares wrapped around every provider, after the
// timeout and logging middlewares.
func WithMiddleware(mws ...provider.Middleware) Option {
	return func(f *Factory) {
		f.middlewares = append(f.middlewares, mws...)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithTokenCounting logs prompt and completion token counts for every call.
func WithTokenCounting(enabled bool) Option {
	return func(f *Factory) {
		f.countTokens = enabled
	}
}

func SupportedProviders() []settings.ApiType {
	return []settings.ApiType{
		settings.ApiTypeOpenAI,
		settings.ApiTypeAnyScale,
		settings.ApiTypeFireworks,
		settings.ApiTypeOllama,
	}
}

func DefaultProvider() settings.ApiType {
	return settings.ApiTypeOpenAI
}

// NewProvider builds the provider for s.
//
// On a configuration problem (unknown api type, missing credential) it still
// returns a usable provider: an Unavailable one that fails every call with a
// KindConfiguration error. The configuration error is returned alongside so
// the caller can report it.
func NewProvider(s *settings.Settings, options ...Option) (provider.Provider, error) {
	f := &Factory{
		logger: log.Logger,
	}
	for _, o := range options {
		o(f)
	}

	name := string(DefaultProvider())
	if s != nil && s.ApiType() != "" {
		name = string(s.ApiType())
	}

	base, err := f.newBase(s)
	if err != nil {
		f.logger.Warn().Err(err).Str("api_type", name).Msg("provider unavailable")
		return provider.NewUnavailable(name, err), err
	}

	timeout := time.Duration(0)
	if s.Client != nil {
		timeout = s.Client.EffectiveTimeout()
	}

	mws := []provider.Middleware{
		provider.NewLoggingMiddleware(f.logger.With().Str("provider", name).Logger()),
		provider.WithTimeout(timeout),
	}
	if f.countTokens {
		codec, err := provider.NewCodec(s.Engine(), "")
		if err != nil {
			f.logger.Warn().Err(err).Msg("token counting disabled")
		} else {
			mws = append(mws, provider.NewTokenCountMiddleware(codec, f.logger))
		}
	}
	mws = append(mws, f.middlewares...)

	return provider.Chain(base, mws...), nil
}

func (f *Factory) newBase(s *settings.Settings) (provider.Provider, error) {
	if s == nil {
		return nil, errors.New("no settings")
	}
	if err := validateSettings(s); err != nil {
		return nil, err
	}

	switch apiType := s.ApiType(); {
	case apiType.IsOpenAICompatible():
		return openai.New(s)
	case apiType == settings.ApiTypeOllama:
		return ollama.New(s)
	default:
		return nil, errors.Errorf("unsupported api type %q", apiType)
	}
}

func validateSettings(s *settings.Settings) error {
	apiType := s.ApiType()
	if apiType == "" {
		return settings.ErrMissingApiType
	}
	supported := false
	for _, p := range SupportedProviders() {
		if p == apiType {
			supported = true
			break
		}
	}
	if !supported {
		return errors.Errorf("unsupported api type %q (supported: %v)", apiType, SupportedProviders())
	}
	return s.Validate()
}
