package chat

import "context"

// Roles of a completion turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of the prompt sent to the model.
type Turn struct {
	Role    string
	Content string
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model       string
	Turns       []Turn
	Temperature float32
	MaxTokens   int
}

// Completer produces the assistant reply for a prompt. An empty string
// with a nil error means the model returned no text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
