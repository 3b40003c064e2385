package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/memory"
	"github.com/go-go-golems/cricket/pkg/store"
)

// Reserved conversation identifiers. Everything else is an opaque UUID.
const (
	// ConversationNew asks Select to allocate a fresh conversation id.
	ConversationNew = "new"
	// ConversationNone deselects; it is the id of "nothing selected".
	ConversationNone = "default"
)

type State string

const (
	StateUnselected       State = "unselected"
	StateActive           State = "active"
	StateAwaitingResponse State = "awaiting-response"
)

// Session binds a memory manager and an engine into one request/response
// cycle over a selected conversation. It is scoped to one user session and
// processes one interaction at a time; distinct conversations run in distinct
// sessions that share nothing but the store.
//
// The memory manager is never the source of truth. The store is written
// before Submit returns control, so a session rebuilt from scratch (Select on
// the same id) reproduces the same context.
type Session struct {
	store      store.Store
	engine     inference.Engine
	memory     memory.Manager
	summarizer *Summarizer
	model      string
	userID     string

	state          State
	conversationID string
}

type SessionOption func(*Session)

// WithSummarizer enables summary regeneration after each successful exchange.
func WithSummarizer(summarizer *Summarizer) SessionOption {
	return func(s *Session) {
		s.summarizer = summarizer
	}
}

// WithModel sets the model identifier recorded in reply captions.
func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.model = model
	}
}

// WithUserID stamps persisted messages with a user id.
func WithUserID(userID string) SessionOption {
	return func(s *Session) {
		s.userID = userID
	}
}

func NewSession(store_ store.Store, engine inference.Engine, manager memory.Manager, options ...SessionOption) *Session {
	ret := &Session{
		store:  store_,
		engine: engine,
		memory: manager,
		state:  StateUnselected,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (s *Session) State() State {
	return s.state
}

// ConversationID returns the selected conversation id, or ConversationNone.
func (s *Session) ConversationID() string {
	if s.conversationID == "" {
		return ConversationNone
	}
	return s.conversationID
}

// Select switches the session to the given conversation and returns its
// persisted transcript, hydrating memory from the store. The ConversationNew
// sentinel allocates a fresh UUID and starts with an empty context, skipping
// hydration entirely. Selecting ConversationNone deselects. Any previously
// active context is discarded; selection never leaks turns across
// conversations.
func (s *Session) Select(ctx context.Context, conversationID string) (conversation.Conversation, error) {
	switch conversationID {
	case ConversationNone:
		s.memory.Reset()
		s.conversationID = ""
		s.state = StateUnselected
		return nil, nil
	case ConversationNew:
		s.memory.Reset()
		s.conversationID = uuid.NewString()
		s.state = StateActive
		log.Debug().Str("conversation_id", s.conversationID).Msg("started new conversation")
		return conversation.Conversation{}, nil
	}

	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load conversation %s", conversationID)
	}

	s.memory.Hydrate(msgs)
	s.conversationID = conversationID
	s.state = StateActive
	log.Debug().Str("conversation_id", conversationID).Int("messages", len(msgs)).Msg("selected conversation")

	return msgs, nil
}

// Submit runs one exchange: it sends the active context plus userText to the
// engine, then commits the turn. The two writes happen user-first, and only
// after the stream has fully succeeded; a mid-stream provider failure leaves
// the store and the memory manager exactly as they were, so the caller can
// retry. Partial output reaches the caller only through event sinks.
func (s *Session) Submit(ctx context.Context, userText string) (*conversation.Message, error) {
	switch s.state {
	case StateUnselected:
		return nil, ErrNoActiveConversation
	case StateAwaitingResponse:
		return nil, ErrPendingResponse
	case StateActive:
	}

	s.state = StateAwaitingResponse
	defer func() {
		s.state = StateActive
	}()

	msgs := conversation.TurnsToConversation(s.memory.Snapshot())
	userMsg := conversation.NewMessage(conversation.RoleUser, userText,
		conversation.WithConversationID(s.conversationID),
		conversation.WithUserID(s.userID),
	)
	msgs = append(msgs, userMsg)

	start := time.Now()
	reply, err := s.engine.RunInference(ctx, msgs)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", s.conversationID).Msg("inference failed, discarding turn")
		return nil, err
	}
	elapsed := time.Since(start)

	reply.ConversationID = s.conversationID
	reply.UserID = s.userID
	reply.Caption = fmt.Sprintf("time: %.1fs, model: %s", elapsed.Seconds(), s.model)
	if !reply.Time.After(userMsg.Time) {
		reply.Time = userMsg.Time.Add(time.Millisecond)
	}

	if err := s.store.InsertMessage(ctx, userMsg); err != nil {
		return nil, errors.Wrap(err, "could not persist user message")
	}
	if err := s.store.InsertMessage(ctx, reply); err != nil {
		// the user message is already durable; surfaced as a dangling
		// unanswered turn rather than rolled back
		return nil, errors.Wrap(err, "could not persist assistant message")
	}

	s.memory.Append(userText, reply.Text)

	s.refreshSummary(ctx)

	return reply, nil
}

// refreshSummary regenerates and overwrites the stored conversation label.
// Failures are logged and swallowed: the exchange itself already succeeded.
func (s *Session) refreshSummary(ctx context.Context) {
	if s.summarizer == nil {
		return
	}

	transcript := conversation.TurnsToConversation(s.memory.Snapshot()).GetSinglePrompt()
	label, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", s.conversationID).Msg("could not regenerate summary")
		return
	}

	if err := s.store.SetSummary(ctx, s.conversationID, label); err != nil {
		log.Warn().Err(err).Str("conversation_id", s.conversationID).Msg("could not store summary")
	}
}

// Delete removes every persisted message of the given conversation. Deleting
// the active conversation deselects the session.
func (s *Session) Delete(ctx context.Context, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return errors.Wrapf(err, "could not delete conversation %s", conversationID)
	}

	if conversationID == s.conversationID {
		s.memory.Reset()
		s.conversationID = ""
		s.state = StateUnselected
	}

	log.Debug().Str("conversation_id", conversationID).Msg("deleted conversation")
	return nil
}
