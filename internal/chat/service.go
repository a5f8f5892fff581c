// ABOUTME: Chat service operations: list, fetch, delete, retitle
// ABOUTME: Every operation checks existence before ownership

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/murmurhq/murmur/internal/llm"
	"github.com/murmurhq/murmur/internal/store"
)

// Service errors
var (
	ErrForbidden  = errors.New("chat belongs to another user")
	ErrEmptyQuery = errors.New("query must not be blank")
	ErrTooLong    = errors.New("query too long")
)

// maxContentRunes bounds the length of a single turn's content.
const maxContentRunes = 10_000

// Service implements the conversational operations on top of the chat store
// and a generation backend.
type Service struct {
	chats  store.Chats
	gen    llm.Generator
	logger *slog.Logger
}

// NewService creates a chat service.
func NewService(chats store.Chats, gen llm.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chats:  chats,
		gen:    gen,
		logger: logger.With("component", "chat"),
	}
}

// requireOwned loads the chat and verifies ownership. Existence is checked
// first: a caller probing another user's chat id learns only that the id
// resolves, never receives its content.
func (s *Service) requireOwned(ctx context.Context, ownerID, chatID string) (*store.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return chat, nil
}

// List returns the owner's chats, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*store.Chat, error) {
	return s.chats.ListChatsByOwner(ctx, ownerID)
}

// Fetch returns the full transcript of an owned chat in chronological order.
func (s *Service) Fetch(ctx context.Context, ownerID, chatID string) ([]*store.Message, error) {
	if _, err := s.requireOwned(ctx, ownerID, chatID); err != nil {
		return nil, err
	}
	return s.chats.ListMessagesAsc(ctx, chatID)
}

// Delete removes an owned chat and, via cascade, its messages.
func (s *Service) Delete(ctx context.Context, ownerID, chatID string) error {
	if _, err := s.requireOwned(ctx, ownerID, chatID); err != nil {
		return err
	}
	return s.chats.DeleteChat(ctx, chatID)
}

// DeleteAll removes every chat the owner has. Deleting nothing is fine.
func (s *Service) DeleteAll(ctx context.Context, ownerID string) error {
	return s.chats.DeleteChatsByOwner(ctx, ownerID)
}

// Retitle regenerates an owned chat's title from the given query.
// Title generation itself cannot fail; it falls back to a default.
func (s *Service) Retitle(ctx context.Context, ownerID, chatID, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if _, err := s.requireOwned(ctx, ownerID, chatID); err != nil {
		return "", err
	}

	title := s.gen.Title(ctx, query)
	if err := s.chats.UpdateChatTitle(ctx, chatID, title); err != nil {
		return "", fmt.Errorf("updating title: %w", err)
	}
	return title, nil
}

// validateQuery trims the query and enforces the per-turn content bound.
func validateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > maxContentRunes {
		return "", ErrTooLong
	}
	return query, nil
}

// newMessage builds a message row for the given chat and role.
func newMessage(chatID, role, content string) *store.Message {
	return &store.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
