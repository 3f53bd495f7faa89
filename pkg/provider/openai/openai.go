// Package openai implements the completion provider for OpenAI and the
// OpenAI-compatible APIs (anyscale, fireworks).
package openai

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

type Provider struct {
	client   *go_openai.Client
	settings *settings.Settings
	name     string
}

var _ provider.Provider = (*Provider)(nil)

// MakeClient builds a go-openai client from the credential and base URL
// configured for apiType.
func MakeClient(s *settings.Settings, apiType settings.ApiType) (*go_openai.Client, error) {
	apiKey, ok := s.APIKey(apiType)
	if !ok {
		return nil, errors.Errorf("no API key for %s", apiType)
	}
	baseURL, ok := s.BaseURL(apiType)
	if !ok {
		return nil, errors.Errorf("no base URL for %s", apiType)
	}
	config := go_openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	httpClient := http.DefaultClient
	if s.Client != nil && s.Client.HTTPClient != nil {
		httpClient = s.Client.HTTPClient
	}
	if s.Client != nil && s.Client.UserAgent != nil && *s.Client.UserAgent != "" {
		httpClient = &http.Client{
			Transport: &userAgentTransport{
				userAgent: *s.Client.UserAgent,
				next:      transportOf(httpClient),
			},
			Timeout: httpClient.Timeout,
		}
	}
	config.HTTPClient = httpClient

	return go_openai.NewClientWithConfig(config), nil
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}

func transportOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

func New(s *settings.Settings) (*Provider, error) {
	if s == nil {
		return nil, errors.New("no settings")
	}
	s = s.Clone()
	apiType := s.ApiType()
	if !apiType.IsOpenAICompatible() {
		return nil, errors.Errorf("api type %q is not openai compatible", apiType)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	client, err := MakeClient(s, apiType)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:   client,
		settings: s,
		name:     string(apiType),
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) makeRequest(history []conversation.ChatMessage) go_openai.ChatCompletionRequest {
	messages := make([]go_openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	chat := p.settings.Chat
	req := go_openai.ChatCompletionRequest{
		Model:    p.settings.Engine(),
		Messages: messages,
		Stream:   chat.Stream,
		Stop:     chat.Stop,
	}
	if chat.Temperature != nil {
		req.Temperature = float32(*chat.Temperature)
	}
	if chat.TopP != nil {
		req.TopP = float32(*chat.TopP)
	}
	if chat.MaxResponseTokens != nil {
		req.MaxTokens = *chat.MaxResponseTokens
	}
	return req
}

// Generate sends the history to the chat completion endpoint. With streaming
// enabled, partial completions are published to the sinks in ctx as they
// arrive.
func (p *Provider) Generate(ctx context.Context, history []conversation.ChatMessage) (string, error) {
	req := p.makeRequest(history)

	log.Debug().
		Str("provider", p.name).
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Bool("stream", req.Stream).
		Msg("sending chat completion request")

	var text string
	var err error
	if req.Stream {
		text, err = p.generateStream(ctx, req)
	} else {
		text, err = p.generate(ctx, req)
	}
	if err != nil {
		return "", provider.Classify(p.name, err)
	}
	return text, nil
}

func (p *Provider) generate(ctx context.Context, req go_openai.ChatCompletionRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(provider.ErrEmptyResponse, "no choices in response")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", errors.Wrap(provider.ErrEmptyResponse, "empty message content")
	}

	md := p.metadata(ctx)
	events.PublishEventToContext(ctx, events.NewFinalEvent(md, text))
	return text, nil
}

func (p *Provider) generateStream(ctx context.Context, req go_openai.ChatCompletionRequest) (string, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	md := p.metadata(ctx)
	message := ""

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		message += delta
		events.PublishEventToContext(ctx, events.NewPartialCompletionEvent(md, delta, message))
	}

	if strings.TrimSpace(message) == "" {
		return "", errors.Wrap(provider.ErrEmptyResponse, "stream closed without content")
	}

	events.PublishEventToContext(ctx, events.NewFinalEvent(md, message))
	return message, nil
}

func (p *Provider) metadata(ctx context.Context) events.EventMetadata {
	md := events.GetEventMetadata(ctx)
	md.Model = p.settings.Engine()
	return md
}
