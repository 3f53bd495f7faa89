package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeTurnStart is published once the user message of a turn is recorded.
	EventTypeTurnStart EventType = "turn-start"
	// EventTypeEmergency is published when the safety filter short-circuits a turn.
	EventTypeEmergency EventType = "emergency"

	// EventTypeProviderStart to EventTypeFinal are for text completion by a provider.
	EventTypeProviderStart     EventType = "provider-start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeProviderError     EventType = "provider-error"

	// EventTypeReply closes every turn, whichever branch produced the reply.
	EventTypeReply EventType = "reply"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventMetadata struct {
	ID             uuid.UUID              `json:"message_id"`
	ConversationID uuid.UUID              `json:"conversation_id"`
	Model          string                 `json:"model,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	e.Str("conversation_id", em.ConversationID.String())
	if em.Model != "" {
		e.Str("model", em.Model)
	}
}

// NewEventMetadata returns metadata with a fresh event ID.
func NewEventMetadata(conversationID uuid.UUID, model string) EventMetadata {
	return EventMetadata{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Model:          model,
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventTurnStart struct {
	EventImpl
	Text string `json:"text"`
}

func NewTurnStartEvent(metadata EventMetadata, text string) *EventTurnStart {
	return &EventTurnStart{
		EventImpl: EventImpl{
			Type_:     EventTypeTurnStart,
			Metadata_: metadata,
		},
		Text: text,
	}
}

var _ Event = &EventTurnStart{}

type EventEmergency struct {
	EventImpl
	Indicators []string `json:"indicators"`
	Reply      string   `json:"reply"`
}

func NewEmergencyEvent(metadata EventMetadata, indicators []string, reply string) *EventEmergency {
	return &EventEmergency{
		EventImpl: EventImpl{
			Type_:     EventTypeEmergency,
			Metadata_: metadata,
		},
		Indicators: indicators,
		Reply:      reply,
	}
}

var _ Event = &EventEmergency{}

type EventProviderStart struct {
	EventImpl
	HistoryLength int `json:"history_length"`
}

func NewProviderStartEvent(metadata EventMetadata, historyLength int) *EventProviderStart {
	return &EventProviderStart{
		EventImpl: EventImpl{
			Type_:     EventTypeProviderStart,
			Metadata_: metadata,
		},
		HistoryLength: historyLength,
	}
}

var _ Event = &EventProviderStart{}

// EventPartialCompletion is the event type for streamed text.
type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// This is the complete completion string so far
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{
			Type_:     EventTypePartialCompletion,
			Metadata_: metadata,
		},
		Delta:      delta,
		Completion: completion,
	}
}

var _ Event = &EventPartialCompletion{}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{
			Type_:     EventTypeFinal,
			Metadata_: metadata,
		},
		Text: text,
	}
}

var _ Event = &EventFinal{}

type EventProviderError struct {
	EventImpl
	Kind        string `json:"kind"`
	ErrorString string `json:"error_string"`
}

func NewProviderErrorEvent(metadata EventMetadata, kind string, err error) *EventProviderError {
	ret := &EventProviderError{
		EventImpl: EventImpl{
			Type_:     EventTypeProviderError,
			Metadata_: metadata,
		},
		Kind: kind,
	}
	if err != nil {
		ret.ErrorString = err.Error()
	}
	return ret
}

var _ Event = &EventProviderError{}

type EventReply struct {
	EventImpl
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func NewReplyEvent(metadata EventMetadata, kind string, text string) *EventReply {
	return &EventReply{
		EventImpl: EventImpl{
			Type_:     EventTypeReply,
			Metadata_: metadata,
		},
		Kind: kind,
		Text: text,
	}
}

var _ Event = &EventReply{}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event")
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeTurnStart:
		return toTypedEvent[EventTurnStart](b)
	case EventTypeEmergency:
		return toTypedEvent[EventEmergency](b)
	case EventTypeProviderStart:
		return toTypedEvent[EventProviderStart](b)
	case EventTypePartialCompletion:
		return toTypedEvent[EventPartialCompletion](b)
	case EventTypeFinal:
		return toTypedEvent[EventFinal](b)
	case EventTypeProviderError:
		return toTypedEvent[EventProviderError](b)
	case EventTypeReply:
		return toTypedEvent[EventReply](b)
	}

	return e, nil
}

type payloadSetter interface {
	setPayload([]byte)
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

func toTypedEvent[T any](b []byte) (Event, error) {
	var ret *T
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("could not decode event")
	}
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, fmt.Errorf("%T is not an event", ret)
	}
	if s, ok := ev.(payloadSetter); ok {
		s.setPayload(b)
	}
	return ev, nil
}
