package store

import (
	"context"
	"sort"
	"sync"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

// MemStore is an in-process Store used by tests and demos. It mimics the SQL
// layout faithfully, including storing the summary on the conversation's
// earliest message, so that the two implementations are interchangeable.
type MemStore struct {
	mu       sync.RWMutex
	messages map[string][]*conversation.Message
}

func NewMemStore() *MemStore {
	return &MemStore{
		messages: map[string][]*conversation.Message{},
	}
}

func (s *MemStore) InsertMessage(_ context.Context, msg *conversation.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &clone)
	return nil
}

func (s *MemStore) ListMessages(_ context.Context, conversationID string) (conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	ret := make(conversation.Conversation, 0, len(msgs))
	for _, m := range s.sorted(msgs) {
		clone := *m
		ret = append(ret, &clone)
	}
	return ret, nil
}

func (s *MemStore) ListConversations(_ context.Context, userID string) ([]ConversationRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := []ConversationRef{}
	for id, msgs := range s.messages {
		if len(msgs) == 0 {
			continue
		}
		// any message carrying the user id matches, like the SQL WHERE clause
		if userID != "" {
			match := false
			for _, m := range msgs {
				if m.UserID == userID {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		sorted := s.sorted(msgs)
		refs = append(refs, ConversationRef{
			ConversationID: id,
			LastActivity:   sorted[len(sorted)-1].Time,
			Summary:        sorted[0].Summary,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].LastActivity.After(refs[j].LastActivity)
	})
	return refs, nil
}

func (s *MemStore) SetSummary(_ context.Context, conversationID string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	if len(msgs) == 0 {
		return nil
	}
	s.sorted(msgs)[0].Summary = summary
	return nil
}

func (s *MemStore) GetSummary(_ context.Context, conversationID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	if len(msgs) == 0 {
		return "", nil
	}
	return s.sorted(msgs)[0].Summary, nil
}

func (s *MemStore) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, conversationID)
	return nil
}

// sorted returns the messages ordered by timestamp with the id as a stable
// tiebreak, matching the SQL implementation's ORDER BY. It sorts a copy so
// that readers holding only the read lock never mutate the shared slice.
func (s *MemStore) sorted(msgs []*conversation.Message) []*conversation.Message {
	ret := make([]*conversation.Message, len(msgs))
	copy(ret, msgs)
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Time.Equal(ret[j].Time) {
			return ret[i].ID.String() < ret[j].ID.String()
		}
		return ret[i].Time.Before(ret[j].Time)
	})
	return ret
}

var _ Store = (*MemStore)(nil)
