package memory

import (
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

// DefaultWindowSize is the number of turn pairs kept in the windowed memory.
const DefaultWindowSize = 10

// Manager holds the process-local, rehydratable context of recent turns used
// to condition the next model request. It is a read-through, write-behind
// cache over the Store: never the source of truth, always cheaply
// reconstructible from persisted messages via Hydrate.
type Manager interface {
	// Hydrate clears any active state and loads the persisted messages as
	// ordered (user, assistant) turn pairs, oldest first. Bounded managers
	// keep only the most recent pairs. Hydrating an empty conversation
	// yields an empty context; hydrating twice without an intervening
	// Append is idempotent.
	Hydrate(msgs conversation.Conversation)
	// Append adds the newest turn after a successful exchange, evicting the
	// oldest turn when a bounded manager exceeds capacity.
	Append(userText string, assistantText string)
	// Snapshot returns a read-only copy of the active turns, oldest first.
	Snapshot() []conversation.Turn
	// Reset clears the active context, used when a brand-new conversation
	// starts or the selection changes.
	Reset()
}

// Buffer keeps every turn of the active conversation, the unbounded
// equivalent of a conversation buffer memory.
type Buffer struct {
	turns []conversation.Turn
}

func NewBuffer() *Buffer {
	return &Buffer{turns: []conversation.Turn{}}
}

func (b *Buffer) Hydrate(msgs conversation.Conversation) {
	b.turns = conversation.PairTurns(msgs)
	log.Debug().Int("turns", len(b.turns)).Msg("hydrated buffer memory")
}

func (b *Buffer) Append(userText string, assistantText string) {
	b.turns = append(b.turns, conversation.Turn{User: userText, Assistant: assistantText})
}

func (b *Buffer) Snapshot() []conversation.Turn {
	ret := make([]conversation.Turn, len(b.turns))
	copy(ret, b.turns)
	return ret
}

func (b *Buffer) Reset() {
	b.turns = b.turns[:0]
}

// Window keeps only the most recent K turns, evicting oldest first. Eviction
// is purely count-based; token budgets are the provider's problem.
type Window struct {
	turns    []conversation.Turn
	capacity int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		turns:    []conversation.Turn{},
		capacity: capacity,
	}
}

func (w *Window) Capacity() int {
	return w.capacity
}

func (w *Window) Hydrate(msgs conversation.Conversation) {
	turns := conversation.PairTurns(msgs)
	if len(turns) > w.capacity {
		turns = turns[len(turns)-w.capacity:]
	}
	w.turns = turns
	log.Debug().Int("turns", len(w.turns)).Int("capacity", w.capacity).Msg("hydrated window memory")
}

func (w *Window) Append(userText string, assistantText string) {
	w.turns = append(w.turns, conversation.Turn{User: userText, Assistant: assistantText})
	if len(w.turns) > w.capacity {
		w.turns = w.turns[len(w.turns)-w.capacity:]
	}
}

func (w *Window) Snapshot() []conversation.Turn {
	ret := make([]conversation.Turn, len(w.turns))
	copy(ret, w.turns)
	return ret
}

func (w *Window) Reset() {
	w.turns = w.turns[:0]
}

var _ Manager = (*Buffer)(nil)
var _ Manager = (*Window)(nil)
