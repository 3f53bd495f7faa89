package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
	ctxKeyEventMetadata
)

// WithEventMetadata stores the metadata that events published further down the
// call chain should carry.
func WithEventMetadata(ctx context.Context, md EventMetadata) context.Context {
	return context.WithValue(ctx, ctxKeyEventMetadata, md)
}

// GetEventMetadata returns the metadata stored in ctx, with a fresh event ID.
func GetEventMetadata(ctx context.Context) EventMetadata {
	md, _ := ctx.Value(ctxKeyEventMetadata).(EventMetadata)
	md.ID = uuid.New()
	return md
}

// WithEventSinks attaches one or more EventSink instances to the context, on
// top of the ones already present.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	for _, s := range sinks {
		if s != nil {
			combined = append(combined, s)
		}
	}
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes the event to all sinks stored in the context.
// Sink errors are logged and otherwise ignored.
func PublishEventToContext(ctx context.Context, event Event) {
	sinks := GetEventSinks(ctx)
	if len(sinks) == 0 {
		return
	}
	for _, sink := range sinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("event sink failed")
		}
	}
}
