// Package provider defines the completion collaborator the assistant forwards
// non-emergency turns to, the typed errors it fails with, and the middlewares
// wrapped around it.
package provider

import (
	"context"

	"github.com/go-go-golems/healthbot/pkg/conversation"
)

// Provider turns the ordered conversation history into the next assistant
// reply. Failures are returned as *Error.
type Provider interface {
	Generate(ctx context.Context, history []conversation.ChatMessage) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, history []conversation.ChatMessage) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, history []conversation.ChatMessage) (string, error) {
	return f(ctx, history)
}

var _ Provider = ProviderFunc(nil)

// Unavailable is a provider that always fails with the configuration error it
// was built with. It lets a session stay interactive when no real provider
// could be constructed.
type Unavailable struct {
	Name string
	Err  error
}

func NewUnavailable(name string, err error) *Unavailable {
	return &Unavailable{Name: name, Err: err}
}

func (u *Unavailable) Generate(ctx context.Context, history []conversation.ChatMessage) (string, error) {
	return "", NewError(KindConfiguration, u.Name, u.Err)
}

var _ Provider = (*Unavailable)(nil)
