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
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation's append-only log. Messages
// within a conversation are strictly ordered by Time; the Summary field is
// only populated on the conversation's first message, which by convention
// carries the conversation-level summary label.
type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID string    `json:"conversationID" db:"conversation_id"`
	UserID         string    `json:"userID,omitempty" db:"user_id"`
	Role           Role      `json:"role" db:"sender"`
	Text           string    `json:"text" db:"body"`
	// Caption carries latency/model metadata attached to assistant replies,
	// e.g. "time: 1.2s, model: claude-3-haiku-20240307".
	Caption string    `json:"caption,omitempty" db:"caption"`
	Summary string    `json:"summary,omitempty" db:"summary"`
	Time    time.Time `json:"time" db:"timestamp"`
}

type MessageOption func(*Message)

func WithConversationID(conversationID string) MessageOption {
	return func(m *Message) {
		m.ConversationID = conversationID
	}
}

func WithUserID(userID string) MessageOption {
	return func(m *Message) {
		m.UserID = userID
	}
}

func WithCaption(caption string) MessageOption {
	return func(m *Message) {
		m.Caption = caption
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func NewMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:   uuid.New(),
		Role: role,
		Text: text,
		Time: time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

type Conversation []*Message

// GetSinglePrompt renders the conversation as a single transcript string,
// one "[role]: text" line per message. Used to feed the summarizer, which
// takes a flat transcript rather than a structured history.
func (c Conversation) GetSinglePrompt() string {
	if len(c) == 0 {
		return ""
	}

	if len(c) == 1 {
		return c[0].Text
	}

	sb := strings.Builder{}
	for _, m := range c {
		sb.WriteString(m.View())
		sb.WriteString("\n")
	}

	return sb.String()
}

// LastUserMessage returns the most recent user message, or nil.
func (c Conversation) LastUserMessage() *Message {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i]
		}
	}
	return nil
}
