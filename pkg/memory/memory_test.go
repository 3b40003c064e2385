package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

func exchange(n int) conversation.Conversation {
	c := conversation.Conversation{}
	for i := 0; i < n; i++ {
		c = append(c,
			conversation.NewMessage(conversation.RoleUser, fmt.Sprintf("question %d", i)),
			conversation.NewMessage(conversation.RoleAssistant, fmt.Sprintf("answer %d", i)),
		)
	}
	return c
}

func TestHydrateEmptyConversation(t *testing.T) {
	for name, m := range map[string]Manager{"buffer": NewBuffer(), "window": NewWindow(10)} {
		t.Run(name, func(t *testing.T) {
			m.Hydrate(conversation.Conversation{})
			assert.Empty(t, m.Snapshot())
		})
	}
}

func TestHydratePairsMessages(t *testing.T) {
	m := NewWindow(10)
	m.Hydrate(conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "Hi"),
		conversation.NewMessage(conversation.RoleAssistant, "Hello"),
	})

	assert.Equal(t, []conversation.Turn{{User: "Hi", Assistant: "Hello"}}, m.Snapshot())
}

func TestHydrateIsIdempotent(t *testing.T) {
	msgs := exchange(4)

	for name, m := range map[string]Manager{"buffer": NewBuffer(), "window": NewWindow(10)} {
		t.Run(name, func(t *testing.T) {
			m.Hydrate(msgs)
			first := m.Snapshot()
			m.Hydrate(msgs)
			assert.Equal(t, first, m.Snapshot())
		})
	}
}

func TestHydrateClearsPreviousConversation(t *testing.T) {
	m := NewWindow(10)
	m.Hydrate(exchange(3))
	require.Len(t, m.Snapshot(), 3)

	m.Hydrate(conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "fresh start"),
		conversation.NewMessage(conversation.RoleAssistant, "indeed"),
	})

	turns := m.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, "fresh start", turns[0].User)
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	m := NewWindow(3)
	for i := 0; i < 5; i++ {
		m.Append(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	turns := m.Snapshot()
	require.Len(t, turns, 3)
	assert.Equal(t, "question 2", turns[0].User)
	assert.Equal(t, "question 4", turns[2].User)
}

func TestWindowInvariantAfterNAppends(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{n: 0, expected: 0},
		{n: 4, expected: 4},
		{n: 10, expected: 10},
		{n: 17, expected: 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			m := NewWindow(DefaultWindowSize)
			for i := 0; i < tt.n; i++ {
				m.Append(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
			}

			turns := m.Snapshot()
			require.Len(t, turns, tt.expected)
			if tt.expected > 0 {
				// always the most recent turns, oldest evicted first
				assert.Equal(t, fmt.Sprintf("question %d", tt.n-1), turns[len(turns)-1].User)
				assert.Equal(t, fmt.Sprintf("question %d", tt.n-tt.expected), turns[0].User)
			}
		})
	}
}

func TestWindowHydrateKeepsMostRecentTurns(t *testing.T) {
	m := NewWindow(2)
	m.Hydrate(exchange(5))

	turns := m.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, "question 3", turns[0].User)
	assert.Equal(t, "question 4", turns[1].User)
}

func TestBufferIsUnbounded(t *testing.T) {
	m := NewBuffer()
	for i := 0; i < 25; i++ {
		m.Append(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}
	assert.Len(t, m.Snapshot(), 25)
}

func TestReset(t *testing.T) {
	for name, m := range map[string]Manager{"buffer": NewBuffer(), "window": NewWindow(10)} {
		t.Run(name, func(t *testing.T) {
			m.Append("Hi", "Hello")
			m.Reset()
			assert.Empty(t, m.Snapshot())
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewWindow(10)
	m.Append("Hi", "Hello")

	turns := m.Snapshot()
	turns[0].User = "mutated"

	assert.Equal(t, "Hi", m.Snapshot()[0].User)
}

func TestNewWindowDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultWindowSize, NewWindow(0).Capacity())
	assert.Equal(t, DefaultWindowSize, NewWindow(-3).Capacity())
	assert.Equal(t, 5, NewWindow(5).Capacity())
}
