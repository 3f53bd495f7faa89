// Package conversation holds the ordered, append-only message history of a
// single chat session.
//
// A Conversation always starts with the system instructions, optionally
// followed by a seeded assistant greeting. It is never truncated: the complete
// history is what gets replayed to the completion provider on every turn.
//
// New messages are only recorded through the turn protocol (BeginTurn, Dispatch,
// Commit), which guarantees that a user message and the assistant reply it
// provoked are recorded together, and that at most one turn is in flight per
// conversation.
package conversation

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrEnded             = errors.New("conversation has ended")
	ErrEmptySystemPrompt = errors.New("system prompt is empty")
)

type Conversation struct {
	id uuid.UUID

	mu       sync.RWMutex
	messages []Message
	state    State

	// held for the duration of a turn
	turnMu sync.Mutex
}

// New creates a conversation seeded with the system instructions and, if
// greeting is not empty, an assistant greeting.
func New(systemPrompt string, greeting string) (*Conversation, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, ErrEmptySystemPrompt
	}

	ret := &Conversation{
		id:    uuid.New(),
		state: StateIdle,
	}

	ret.messages = append(ret.messages, NewMessage(RoleSystem, systemPrompt))
	if greeting != "" {
		ret.messages = append(ret.messages, NewMessage(RoleAssistant, greeting))
	}

	return ret, nil
}

func (c *Conversation) ID() uuid.UUID {
	return c.id
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *Conversation) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Messages returns a copy of the full history, system message included.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]Message, len(c.messages))
	copy(ret, c.messages)
	return ret
}

// Visible returns the messages a user gets to see, which is everything but
// the system instructions.
func (c *Conversation) Visible() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			continue
		}
		ret = append(ret, m)
	}
	return ret
}

// History returns the ordered role/content pairs sent to a completion provider.
func (c *Conversation) History() []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		ret = append(ret, m.ChatMessage())
	}
	return ret
}

// LastReply returns the most recent assistant message, the greeting if no turn
// has completed yet.
func (c *Conversation) LastReply() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// End moves the conversation into its terminal state. It waits for an
// in-flight turn to finish first.
func (c *Conversation) End() {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateEnded
}

func (c *Conversation) transition(next State) error {
	if !c.state.CanTransition(next) {
		if c.state == StateEnded {
			return ErrEnded
		}
		return errors.Errorf("invalid state transition %s -> %s", c.state, next)
	}
	c.state = next
	return nil
}
