package conversation

// Turn is one (user utterance, assistant reply) pair. A trailing user message
// that never received a reply is represented as a Turn with an empty
// Assistant side rather than being dropped from context.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// PairTurns folds an ordered conversation into user/assistant turn pairs.
// System messages are skipped. Senders normally alternate user -> assistant;
// when they don't (two user messages in a row, or an assistant message at the
// start), the incomplete turn is emitted with its missing side empty so that
// no persisted utterance silently disappears from memory.
func PairTurns(c Conversation) []Turn {
	turns := []Turn{}

	open := false
	current := Turn{}
	flush := func() {
		turns = append(turns, current)
		current = Turn{}
		open = false
	}

	for _, m := range c {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			if open {
				flush()
			}
			current.User = m.Text
			open = true
		case RoleAssistant:
			current.Assistant = m.Text
			flush()
		}
	}
	if open {
		flush()
	}

	return turns
}

// TurnsToConversation expands turn pairs back into an ordered message list,
// user before assistant. Turns with an empty assistant side only contribute
// their user message.
func TurnsToConversation(turns []Turn) Conversation {
	c := Conversation{}
	for _, t := range turns {
		if t.User != "" {
			c = append(c, NewMessage(RoleUser, t.User))
		}
		if t.Assistant != "" {
			c = append(c, NewMessage(RoleAssistant, t.Assistant))
		}
	}
	return c
}
