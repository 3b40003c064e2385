package chat

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/inference"
)

// SummarySystemPrompt instructs the label model. The label is advisory UI
// text; the length guidance is enforced by the prompt, not by code.
const SummarySystemPrompt = `You label chat conversations. Reply with a single short label for the transcript you are given, and nothing else.
Rules:
- a noun phrase, about 20 characters at most
- written in the language of the conversation
- when several unrelated topics appear, label the most recent one
- describe what the user wanted, not how the assistant phrased its answers
- never mention anything that is not in the transcript
No quotes, no trailing punctuation, no explanation.`

// Summarizer condenses a transcript into a short conversation label with a
// single zero-history inference call.
type Summarizer struct {
	engine inference.Engine
}

func NewSummarizer(engine inference.Engine) *Summarizer {
	return &Summarizer{engine: engine}
}

// Summarize returns a label for the given transcript. The call carries no
// history: only the instruction and the transcript itself.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("empty transcript")
	}

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleSystem, SummarySystemPrompt),
		conversation.NewMessage(conversation.RoleUser, transcript),
	}

	reply, err := s.engine.RunInference(ctx, msgs)
	if err != nil {
		return "", errors.Wrap(err, "could not summarize conversation")
	}

	label := strings.TrimSpace(reply.Text)
	label = strings.Trim(label, "\"「」『』")
	if idx := strings.IndexByte(label, '\n'); idx >= 0 {
		label = strings.TrimSpace(label[:idx])
	}

	return label, nil
}
