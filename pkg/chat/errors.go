package chat

import "github.com/pkg/errors"

// ErrNoActiveConversation is returned by Submit when nothing is selected.
var ErrNoActiveConversation = errors.New("no active conversation")

// ErrPendingResponse is returned when a Submit is attempted while a previous
// one on the same session has not finished.
var ErrPendingResponse = errors.New("a response is still pending")
