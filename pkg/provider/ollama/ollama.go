// Package ollama implements the completion provider for a local ollama server.
// The server address is read from OLLAMA_HOST.
package ollama

import (
	"context"
	"strings"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const Name = "ollama"

type Provider struct {
	client   *api.Client
	settings *settings.Settings
	options  map[string]interface{}
}

var _ provider.Provider = (*Provider)(nil)

func New(s *settings.Settings) (*Provider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "could not create ollama client")
	}
	return NewWithClient(client, s)
}

func NewWithClient(client *api.Client, s *settings.Settings) (*Provider, error) {
	if s == nil {
		return nil, errors.New("no settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s = s.Clone()

	var options map[string]interface{}
	if s.Ollama != nil {
		var err error
		options, err = s.Ollama.Options()
		if err != nil {
			return nil, errors.Wrap(err, "could not convert ollama options")
		}
	}
	if s.Chat.Temperature != nil {
		if options == nil {
			options = map[string]interface{}{}
		}
		options["temperature"] = *s.Chat.Temperature
	}

	return &Provider{
		client:   client,
		settings: s,
		options:  options,
	}, nil
}

func (p *Provider) Generate(ctx context.Context, history []conversation.ChatMessage) (string, error) {
	messages := make([]api.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, api.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	stream := p.settings.Chat.Stream
	req := &api.ChatRequest{
		Model:    p.settings.Engine(),
		Messages: messages,
		Stream:   &stream,
		Options:  p.options,
	}

	md := events.GetEventMetadata(ctx)
	md.Model = p.settings.Engine()

	log.Debug().Str("provider", Name).Str("model", req.Model).Int("messages", len(messages)).Msg("sending chat request")

	message := ""
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		delta := messageContent(resp.Message)
		if delta == "" {
			return nil
		}
		message += delta
		if stream {
			events.PublishEventToContext(ctx, events.NewPartialCompletionEvent(md, delta, message))
		}
		return nil
	})
	if err != nil {
		return "", provider.Classify(Name, err)
	}

	if strings.TrimSpace(message) == "" {
		return "", provider.Classify(Name, errors.Wrap(provider.ErrEmptyResponse, "no content in chat response"))
	}

	events.PublishEventToContext(ctx, events.NewFinalEvent(md, message))
	return message, nil
}

// messageContent reads the content of a chat response message, which the
// server omits on the closing chunk of a stream.
func messageContent(m interface{}) string {
	switch v := m.(type) {
	case *api.Message:
		if v == nil {
			return ""
		}
		return v.Content
	case api.Message:
		return v.Content
	}
	return ""
}
