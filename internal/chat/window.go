// ABOUTME: History windowing for generation requests
// ABOUTME: The backend sees the last windowSize turns in chronological order

package chat

import (
	"context"

	"github.com/murmurhq/murmur/internal/llm"
)

// windowSize is how many recent turns the generation backend sees. Turns
// older than the window still exist in storage; they just stop influencing
// new replies.
const windowSize = 5

// window fetches the most recent turns and returns them oldest-first, the
// order generation backends expect. The store hands them back newest-first,
// so they are reversed in place.
func (s *Service) window(ctx context.Context, chatID string) ([]llm.Message, error) {
	msgs, err := s.chats.ListRecentMessagesDesc(ctx, chatID, windowSize)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}
