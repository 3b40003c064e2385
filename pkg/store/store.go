package store

import (
	"context"
	"time"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

// ConversationRef identifies a stored conversation together with its most
// recent activity, used by UI layers to render a history sidebar ordered by
// recency.
type ConversationRef struct {
	ConversationID string    `db:"conversation_id"`
	LastActivity   time.Time `db:"last_activity"`
	Summary        string    `db:"summary"`
}

// Store is the persistence contract for the append-only conversation log.
//
// Conversations are not materialized rows; they are the set of messages
// sharing a conversation id, and are deleted by removing all of those
// messages. The per-conversation summary lives on the conversation's
// earliest message. Listing messages of an id that was never written to
// returns an empty conversation, not an error, and a conversation without a
// summary yields an empty string.
type Store interface {
	InsertMessage(ctx context.Context, msg *conversation.Message) error
	ListMessages(ctx context.Context, conversationID string) (conversation.Conversation, error)
	// ListConversations returns one ref per conversation, most recent first.
	// An empty userID returns every conversation.
	ListConversations(ctx context.Context, userID string) ([]ConversationRef, error)
	SetSummary(ctx context.Context, conversationID string, summary string) error
	GetSummary(ctx context.Context, conversationID string) (string, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}
