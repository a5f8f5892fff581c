// ABOUTME: Streaming orchestrator: persist the user turn, relay fragments, finalize
// ABOUTME: Whatever text arrived is persisted even on error or disconnect

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murmurhq/murmur/internal/llm"
	"github.com/murmurhq/murmur/internal/store"
)

// Event names on the stream wire.
const (
	EventMeta   = "meta"
	EventStream = "stream"
	EventError  = "error"
	EventDone   = "done"
)

// Event is one server-sent event emitted during streaming.
type Event struct {
	Name string
	Data interface{}
}

// finalizeTimeout bounds the post-stream persistence write. Finalization
// runs after the request context may already be dead, so it gets its own.
const finalizeTimeout = 5 * time.Second

// Stream runs one conversational exchange. An empty chatID starts a fresh
// chat; otherwise the chat must exist and belong to ownerID.
//
// Errors are returned only before the first event is emitted, so the HTTP
// layer can still answer with a plain status. Once fragments start flowing,
// every outcome ends in a terminal event: done on success, error on backend
// failure. Caller disconnect ends the stream with neither, and whatever
// text accumulated is persisted regardless.
func (s *Service) Stream(ctx context.Context, ownerID, chatID, query string, emit func(Event)) error {
	query, err := validateQuery(query)
	if err != nil {
		return err
	}

	chat, created, err := s.resolveChat(ctx, ownerID, chatID, query)
	if err != nil {
		return err
	}

	if err := s.chats.SaveMessage(ctx, newMessage(chat.ID, store.RoleUser, query)); err != nil {
		return err
	}

	history, err := s.window(ctx, chat.ID)
	if err != nil {
		// The user turn is already persisted; generate from it alone
		// rather than failing the whole exchange.
		s.logger.Error("failed to build history window", "error", err, "chat_id", chat.ID)
		history = []llm.Message{{Role: llm.RoleUser, Content: query}}
	}

	if created {
		emit(Event{Name: EventMeta, Data: map[string]string{"chat_id": chat.ID}})
	}

	ch, err := s.gen.Stream(ctx, history)
	if err != nil {
		s.logger.Error("failed to open generation stream", "error", err, "chat_id", chat.ID)
		emit(Event{Name: EventError, Data: map[string]string{"error": "generation failed"}})
		return nil
	}

	// Finalization must run exactly once on every exit path, and on normal
	// completion it must run before the terminal event: a client acting on
	// done may immediately fetch the transcript and has to see both turns.
	var buffer strings.Builder
	finalized := false
	finalize := func() {
		if finalized {
			return
		}
		finalized = true
		s.finalize(chat.ID, &buffer)
	}
	defer finalize()

	for chunk := range ch {
		// One cooperative check per fragment. A disconnected caller stops
		// the relay; the deferred finalize still persists the partial text.
		if ctx.Err() != nil {
			s.logger.Info("stream abandoned by caller", "chat_id", chat.ID)
			return nil
		}
		if chunk.Err != nil {
			s.logger.Error("generation stream failed", "error", chunk.Err, "chat_id", chat.ID)
			emit(Event{Name: EventError, Data: map[string]string{"error": "generation failed"}})
			return nil
		}
		buffer.WriteString(chunk.Text)
		emit(Event{Name: EventStream, Data: map[string]string{"text": chunk.Text}})
	}

	finalize()
	emit(Event{Name: EventDone, Data: map[string]string{}})
	return nil
}

// resolveChat finds or creates the chat for an exchange. Fresh chats get a
// generated title up front so a listing never shows an untitled row.
func (s *Service) resolveChat(ctx context.Context, ownerID, chatID, query string) (*store.Chat, bool, error) {
	if chatID != "" {
		chat, err := s.requireOwned(ctx, ownerID, chatID)
		return chat, false, err
	}

	chat := &store.Chat{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     s.gen.Title(ctx, query),
		CreatedAt: time.Now(),
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

// finalize persists whatever assistant text accumulated, trimmed. It uses a
// fresh context: the request context is typically cancelled by the time a
// disconnect reaches here, and the write must happen anyway.
func (s *Service) finalize(chatID string, buffer *strings.Builder) {
	text := strings.TrimSpace(buffer.String())
	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	if err := s.chats.SaveMessage(ctx, newMessage(chatID, store.RoleAssistant, text)); err != nil {
		s.logger.Error("failed to persist assistant turn", "error", err, "chat_id", chatID)
	}
}
