package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single entry of a conversation. Messages are values: once
// appended to a Conversation they are only ever handed out as copies.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

type MessageOption func(*Message)

func WithID(id uuid.UUID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func WithTime(time time.Time) MessageOption {
	return func(message *Message) {
		message.Time = time
	}
}

func NewMessage(role Role, content string, options ...MessageOption) Message {
	ret := Message{
		ID:      uuid.New(),
		Role:    role,
		Content: content,
		Time:    time.Now(),
	}

	for _, option := range options {
		option(&ret)
	}

	return ret
}

// View renders the message as "[role]: text", the way it shows up in logs and
// in the line-based chat.
func (m Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

// ChatMessage is the provider-facing projection of a Message.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m Message) ChatMessage() ChatMessage {
	return ChatMessage{Role: m.Role, Content: m.Content}
}
