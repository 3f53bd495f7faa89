package conversation

import (
	"github.com/pkg/errors"
)

// Turn is the handle for one user message and the assistant reply it provokes.
// It holds the conversation's turn lock from BeginTurn until Commit or Abort.
type Turn struct {
	conv *Conversation
	user Message
	done bool
}

// BeginTurn records the user message and moves the conversation to
// StateFilterCheck. It blocks while another turn of the same conversation is in
// flight.
func (c *Conversation) BeginTurn(text string) (*Turn, error) {
	c.turnMu.Lock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transition(StateAwaitingUserInput); err != nil {
		c.turnMu.Unlock()
		return nil, err
	}

	user := NewMessage(RoleUser, text)
	c.messages = append(c.messages, user)

	if err := c.transition(StateFilterCheck); err != nil {
		c.turnMu.Unlock()
		return nil, err
	}

	return &Turn{conv: c, user: user}, nil
}

func (t *Turn) UserMessage() Message {
	return t.user
}

// Dispatch records which branch the turn takes once the user message has been
// checked: the emergency short-circuit or the provider call.
func (t *Turn) Dispatch(emergency bool) error {
	if t.done {
		return errors.New("turn already finished")
	}
	next := StateProviderDispatch
	if emergency {
		next = StateEmergencyShortCircuit
	}

	t.conv.mu.Lock()
	defer t.conv.mu.Unlock()
	return t.conv.transition(next)
}

// Commit appends the assistant reply, returns the conversation to StateIdle and
// releases the turn lock.
func (t *Turn) Commit(reply string) (Message, error) {
	if t.done {
		return Message{}, errors.New("turn already finished")
	}

	c := t.conv
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transition(StateReplyAppended); err != nil {
		return Message{}, err
	}
	assistant := NewMessage(RoleAssistant, reply)
	c.messages = append(c.messages, assistant)
	if err := c.transition(StateIdle); err != nil {
		return Message{}, err
	}

	t.done = true
	c.turnMu.Unlock()

	return assistant, nil
}

// Abort drops the user message of an unfinished turn and releases the turn
// lock, so that a turn is either recorded completely or not at all. It is a
// no-op after Commit.
func (t *Turn) Abort() {
	if t.done {
		return
	}
	t.done = true

	c := t.conv
	c.mu.Lock()
	n := len(c.messages)
	if n > 0 && c.messages[n-1].ID == t.user.ID {
		c.messages = c.messages[:n-1]
	}
	c.state = StateIdle
	c.mu.Unlock()

	c.turnMu.Unlock()
}
