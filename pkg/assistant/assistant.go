// Package assistant runs conversation turns: every user message is screened by
// the safety filter, emergencies get a fixed reply without contacting the
// provider, and everything else is forwarded to the provider together with
// the full history.
package assistant

import (
	"context"
	"strings"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/prompts"
	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/go-go-golems/healthbot/pkg/safety"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyInput        = errors.New("empty input")
	ErrNilConversation   = errors.New("no conversation")
	ErrConversationEnded = conversation.ErrEnded
)

type ReplyKind string

const (
	ReplyKindEmergency       ReplyKind = "emergency"
	ReplyKindGenerated       ReplyKind = "generated"
	ReplyKindProviderFailure ReplyKind = "provider-failure"
)

// Reply is the outcome of a turn. Err is set for ReplyKindProviderFailure and
// holds the classified provider error the text was built from.
type Reply struct {
	Text       string
	Kind       ReplyKind
	Indicators []string
	Err        *provider.Error
	Message    conversation.Message
}

type Orchestrator struct {
	provider       provider.Provider
	filter         *safety.Filter
	emergencyReply string
	errorPrefix    string
	sinks          []events.EventSink
	logger         zerolog.Logger
	model          string
}

type Option func(*Orchestrator)

func WithFilter(filter *safety.Filter) Option {
	return func(o *Orchestrator) {
		if filter != nil {
			o.filter = filter
		}
	}
}

func WithEmergencyReply(reply string) Option {
	return func(o *Orchestrator) {
		o.emergencyReply = reply
	}
}

func WithErrorReplyPrefix(prefix string) Option {
	return func(o *Orchestrator) {
		o.errorPrefix = prefix
	}
}

func WithEventSinks(sinks ...events.EventSink) Option {
	return func(o *Orchestrator) {
		o.sinks = append(o.sinks, sinks...)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithModel sets the model name carried in event metadata.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// New returns an orchestrator forwarding to p. A nil p makes every
// non-emergency turn fail with a configuration error reply.
func New(p provider.Provider, options ...Option) *Orchestrator {
	if p == nil {
		p = provider.NewUnavailable("", errors.New("no provider configured"))
	}
	o := &Orchestrator{
		provider:       p,
		filter:         safety.Default(),
		emergencyReply: prompts.EmergencyReply,
		errorPrefix:    prompts.ErrorReplyPrefix,
		logger:         log.Logger,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

func (o *Orchestrator) Filter() *safety.Filter {
	return o.filter
}

// Submit runs one turn of conv for userText. On success the conversation has
// grown by exactly two messages: the user message and the reply.
//
// Provider failures never surface as errors: they are turned into reply text.
// Submit returns an error for blank input, a nil or ended conversation, and
// leaves the conversation unchanged in those cases.
func (o *Orchestrator) Submit(ctx context.Context, conv *conversation.Conversation, userText string) (*Reply, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyInput
	}

	turn, err := conv.BeginTurn(userText)
	if err != nil {
		return nil, err
	}
	defer turn.Abort()

	lg := o.logger.With().
		Str("conversation_id", conv.ID().String()).
		Str("message_id", turn.UserMessage().ID.String()).
		Logger()

	ctx = events.WithEventSinks(ctx, o.sinks...)
	ctx = events.WithEventMetadata(ctx, events.EventMetadata{
		ConversationID: conv.ID(),
		Model:          o.model,
	})
	events.PublishEventToContext(ctx, events.NewTurnStartEvent(events.GetEventMetadata(ctx), userText))

	indicators := o.filter.Matches(userText)
	emergency := len(indicators) > 0
	if err := turn.Dispatch(emergency); err != nil {
		return nil, err
	}

	var reply *Reply
	if emergency {
		lg.Info().Strs("indicators", indicators).Msg("red flag detected, skipping provider")
		reply = &Reply{
			Text:       o.emergencyReply,
			Kind:       ReplyKindEmergency,
			Indicators: indicators,
		}
		events.PublishEventToContext(ctx, events.NewEmergencyEvent(events.GetEventMetadata(ctx), indicators, o.emergencyReply))
	} else {
		reply = o.generate(ctx, lg, conv.History())
	}

	msg, err := turn.Commit(reply.Text)
	if err != nil {
		return nil, err
	}
	reply.Message = msg

	events.PublishEventToContext(ctx, events.NewReplyEvent(events.GetEventMetadata(ctx), string(reply.Kind), reply.Text))
	lg.Debug().Str("kind", string(reply.Kind)).Int("messages", conv.Len()).Msg("turn completed")

	return reply, nil
}

func (o *Orchestrator) generate(ctx context.Context, lg zerolog.Logger, history []conversation.ChatMessage) *Reply {
	events.PublishEventToContext(ctx, events.NewProviderStartEvent(events.GetEventMetadata(ctx), len(history)))

	text, err := o.provider.Generate(ctx, history)
	if err == nil && strings.TrimSpace(text) == "" {
		err = provider.NewError(provider.KindMalformed, "", provider.ErrEmptyResponse)
	}
	if err != nil {
		pe := provider.Classify("", err)
		lg.Error().Err(pe).Str("kind", string(pe.Kind)).Msg("provider failed")
		events.PublishEventToContext(ctx, events.NewProviderErrorEvent(events.GetEventMetadata(ctx), string(pe.Kind), pe))
		return &Reply{
			Text: prompts.ErrorReply(o.errorPrefix, pe),
			Kind: ReplyKindProviderFailure,
			Err:  pe,
		}
	}

	return &Reply{
		Text: text,
		Kind: ReplyKindGenerated,
	}
}
