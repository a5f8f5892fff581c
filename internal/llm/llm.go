// ABOUTME: Generator interface and shared types for the text-generation backend
// ABOUTME: Fragments stream over a channel; a chunk with Err set is terminal

package llm

import "context"

// Message roles understood by the generation backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair in a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is one incremental piece of generated text. A chunk with a non-nil
// Err is terminal; the channel is closed after it. A channel that closes
// without an error chunk means the backend completed normally.
type Chunk struct {
	Text string
	Err  error
}

// Generator produces model output for a conversation history.
//
// Stream returns a lazy sequence of text fragments. The sequence is consumed
// at most once; abandoning consumption early is a defined, non-error outcome
// for the caller (the implementation stops producing when ctx is cancelled).
type Generator interface {
	Stream(ctx context.Context, history []Message) (<-chan Chunk, error)
	Title(ctx context.Context, query string) string
}

// DefaultTitle is used whenever title generation cannot produce a usable
// result. Title generation is decorative and must never fail an operation.
const DefaultTitle = "New chat"
