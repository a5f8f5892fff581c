// ABOUTME: Store interfaces and data types for murmur persistence
// ABOUTME: Defines User, Chat, Message structs and the Users/Chats interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that is already taken
var ErrDuplicateEmail = errors.New("email already exists")

// Message roles. The set is closed and enforced by a CHECK constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is an account record. Immutable once created.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Chat is a conversation owned by exactly one user.
type Chat struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
}

// Message is a single turn within a chat. Append-only; never mutated.
type Message struct {
	ID        string
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Users defines what the auth service needs from storage.
type Users interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
}

// Chats defines what the chat service needs from storage.
type Chats interface {
	CreateChat(ctx context.Context, chat *Chat) error
	GetChat(ctx context.Context, id string) (*Chat, error)
	ListChatsByOwner(ctx context.Context, ownerID string) ([]*Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	DeleteChat(ctx context.Context, id string) error
	DeleteChatsByOwner(ctx context.Context, ownerID string) error

	SaveMessage(ctx context.Context, msg *Message) error
	ListRecentMessagesDesc(ctx context.Context, chatID string, limit int) ([]*Message, error)
	ListMessagesAsc(ctx context.Context, chatID string) ([]*Message, error)
}
