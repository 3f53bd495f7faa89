package provider

import (
	"context"
	"time"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// Middleware wraps a provider with additional behavior.
type Middleware func(Provider) Provider

// Chain wraps p with the middlewares so that the first middleware is the
// outermost one.
func Chain(p Provider, mws ...Middleware) Provider {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		p = mws[i](p)
	}
	return p
}

// WithTimeout bounds every call to d. A call that runs past its deadline fails
// with KindTimeout. A non-positive d leaves calls unbounded.
func WithTimeout(d time.Duration) Middleware {
	return func(next Provider) Provider {
		if d <= 0 {
			return next
		}
		return ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			text, err := next.Generate(ctx, history)
			if err != nil {
				if ctx.Err() == context.DeadlineExceeded {
					pe := Classify("", err)
					return "", &Error{Kind: KindTimeout, Provider: pe.Provider, Err: pe.Err}
				}
				return "", err
			}
			return text, nil
		})
	}
}

// NewLoggingMiddleware logs each call with its duration and outcome.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next Provider) Provider {
		return ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}
			lg = lg.With().Int("history_length", len(history)).Logger()

			lg.Debug().Msg("provider: generating reply")
			start := time.Now()

			text, err := next.Generate(ctx, history)
			lg = lg.With().Dur("duration", time.Since(start)).Logger()
			if err != nil {
				lg.Warn().Err(err).Str("kind", string(KindOf(err))).Msg("provider: generation failed")
				return "", err
			}

			lg.Debug().Int("reply_length", len(text)).Msg("provider: generation completed")
			return text, nil
		})
	}
}

// NewCodec returns the tokenizer for model, or for encoding if the model is
// unknown to the tokenizer.
func NewCodec(model string, encoding string) (tokenizer.Codec, error) {
	if model != "" {
		if c, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
			return c, nil
		}
	}
	if encoding == "" {
		encoding = string(tokenizer.Cl100kBase)
	}
	return tokenizer.Get(tokenizer.Encoding(encoding))
}

// CountTokens returns the number of tokens codec produces for the contents of
// history.
func CountTokens(codec tokenizer.Codec, history []conversation.ChatMessage) (int, error) {
	total := 0
	for _, m := range history {
		ids, _, err := codec.Encode(m.Content)
		if err != nil {
			return 0, err
		}
		total += len(ids)
	}
	return total, nil
}

// NewTokenCountMiddleware logs the prompt and completion token counts of each
// call. Counting failures are logged and do not affect the call.
func NewTokenCountMiddleware(codec tokenizer.Codec, logger zerolog.Logger) Middleware {
	return func(next Provider) Provider {
		return ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
			promptTokens, err := CountTokens(codec, history)
			if err != nil {
				logger.Warn().Err(err).Msg("could not count prompt tokens")
			}

			text, err := next.Generate(ctx, history)
			if err != nil {
				return "", err
			}

			ids, _, cerr := codec.Encode(text)
			if cerr != nil {
				logger.Warn().Err(cerr).Msg("could not count completion tokens")
			}
			logger.Debug().
				Int("prompt_tokens", promptTokens).
				Int("completion_tokens", len(ids)).
				Msg("token usage")

			return text, nil
		})
	}
}
