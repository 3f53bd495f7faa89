package provider

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHistory = []conversation.ChatMessage{
	{Role: conversation.RoleSystem, Content: "You are helpful."},
	{Role: conversation.RoleUser, Content: "How much water should I drink?"},
}

func TestClassify(t *testing.T) {
	timeoutErr := &net.OpError{Op: "dial", Err: timeoutError{}}

	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"deadline", errors.Wrap(context.DeadlineExceeded, "calling"), KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"empty", errors.Wrap(ErrEmptyResponse, "no choices"), KindMalformed},
		{"unauthorized", &go_openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, KindAuth},
		{"forbidden", &go_openai.RequestError{HTTPStatusCode: http.StatusForbidden, Err: errors.New("nope")}, KindAuth},
		{"server error", &go_openai.APIError{HTTPStatusCode: http.StatusBadGateway, Message: "down"}, KindNetwork},
		{"unknown model", &go_openai.APIError{HTTPStatusCode: http.StatusNotFound, Message: "no such model"}, KindConfiguration},
		{"net timeout", timeoutErr, KindTimeout},
		{"net", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindNetwork},
		{"other", errors.New("weird"), KindUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pe := Classify("openai", c.err)
			require.NotNil(t, pe)
			assert.Equal(t, c.kind, pe.Kind)
			assert.Equal(t, "openai", pe.Provider)
			assert.True(t, errors.Is(pe, c.err))
		})
	}

	assert.Nil(t, Classify("openai", nil))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyKeepsProviderErrors(t *testing.T) {
	orig := NewError(KindAuth, "ollama", errors.New("denied"))
	wrapped := errors.Wrap(orig, "context")

	assert.Same(t, orig, Classify("openai", wrapped))
	assert.Equal(t, KindAuth, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "ollama: denied", orig.Error())
}

func TestUnavailable(t *testing.T) {
	p := NewUnavailable("openai", errors.New("missing openai-api-key"))
	_, err := p.Generate(context.Background(), testHistory)
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindConfiguration, pe.Kind)
	assert.Contains(t, err.Error(), "missing openai-api-key")
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Provider) Provider {
			return ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
				calls = append(calls, name)
				return next.Generate(ctx, history)
			})
		}
	}
	base := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		calls = append(calls, "base")
		return "ok", nil
	})

	p := Chain(base, mw("a"), nil, mw("b"))
	text, err := p.Generate(context.Background(), testHistory)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, []string{"a", "b", "base"}, calls)
}

func TestWithTimeout(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "waiting for completion")
		case <-time.After(time.Second):
			return "late", nil
		}
	})

	p := Chain(slow, WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := p.Generate(context.Background(), testHistory)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	fast := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return "quick", nil
	})
	text, err := Chain(fast, WithTimeout(time.Second)).Generate(context.Background(), testHistory)
	require.NoError(t, err)
	assert.Equal(t, "quick", text)

	unbounded := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return "", NewError(KindAuth, "openai", errors.New("denied"))
	})
	_, err = Chain(unbounded, WithTimeout(0)).Generate(context.Background(), testHistory)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestLoggingMiddlewarePassesResults(t *testing.T) {
	logger := zerolog.Nop()
	ok := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		return "fine", nil
	})
	text, err := Chain(ok, NewLoggingMiddleware(logger)).Generate(context.Background(), testHistory)
	require.NoError(t, err)
	assert.Equal(t, "fine", text)

	failing := ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		return "", NewError(KindNetwork, "openai", errors.New("down"))
	})
	_, err = Chain(failing, NewLoggingMiddleware(logger)).Generate(context.Background(), testHistory)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestTokenCount(t *testing.T) {
	codec, err := NewCodec("not-a-model", "")
	require.NoError(t, err)

	n, err := CountTokens(codec, testHistory)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	empty, err := CountTokens(codec, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty)

	p := Chain(ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		return "Drink about two liters a day.", nil
	}), NewTokenCountMiddleware(codec, zerolog.Nop()))
	text, err := p.Generate(context.Background(), testHistory)
	require.NoError(t, err)
	assert.Equal(t, "Drink about two liters a day.", text)
}
