// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers user uniqueness, chat CRUD, cascade deletes, and message ordering

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newUserStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewUserStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newChatStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewChatStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewChatStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewUserStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewUserStore(dbPath)
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewChatStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewChatStore(dbPath)
	if err != nil {
		t.Fatalf("NewChatStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSchemaIsPerService(t *testing.T) {
	ctx := context.Background()

	// The auth database has no chat tables.
	users := newUserStore(t)
	if err := users.CreateChat(ctx, &Chat{ID: "c", OwnerID: "u", Title: "t", CreatedAt: time.Now()}); err == nil {
		t.Error("user store should not carry a chats table")
	}

	// The chat database has no users table.
	chats := newChatStore(t)
	if _, err := chats.GetUserByID(ctx, "u"); err == nil || err == ErrNotFound {
		t.Errorf("chat store should not carry a users table, got %v", err)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newUserStore(t)
	ctx := context.Background()

	user := &User{
		ID:           "user-1",
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, user.ID)
	}
	if got.Name != user.Name {
		t.Errorf("Name mismatch: got %q, want %q", got.Name, user.Name)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash mismatch: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, user.CreatedAt)
	}

	byID, err := s.GetUserByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("Email mismatch: got %q, want %q", byID.Email, user.Email)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newUserStore(t)
	ctx := context.Background()

	user := &User{
		ID:           "user-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := &User{
		ID:           "user-2",
		Name:         "Other Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash2",
		CreatedAt:    time.Now(),
	}
	if err := s.CreateUser(ctx, dup); err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newUserStore(t)
	ctx := context.Background()

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); err != ErrNotFound {
		t.Errorf("GetUserByEmail: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByID(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("GetUserByID: expected ErrNotFound, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	s := newUserStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		user := &User{
			ID:           fmt.Sprintf("user-%d", i),
			Name:         fmt.Sprintf("User %d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: "hash",
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}
	if users[0].ID != "user-0" || users[2].ID != "user-2" {
		t.Error("users not ordered by creation time")
	}
}

func createTestChat(t *testing.T, s *SQLiteStore, id, ownerID string, createdAt time.Time) {
	t.Helper()
	chat := &Chat{
		ID:        id,
		OwnerID:   ownerID,
		Title:     "Test chat",
		CreatedAt: createdAt,
	}
	if err := s.CreateChat(context.Background(), chat); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
}

func TestCreateAndGetChat(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Second)
	createTestChat(t, s, "chat-1", "user-1", created)

	got, err := s.GetChat(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if got.OwnerID != "user-1" {
		t.Errorf("OwnerID mismatch: got %q, want %q", got.OwnerID, "user-1")
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, created)
	}
}

func TestGetChat_NotFound(t *testing.T) {
	s := newChatStore(t)

	if _, err := s.GetChat(context.Background(), "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListChatsByOwner_NewestFirst(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	createTestChat(t, s, "chat-old", "user-1", base.Add(-2*time.Hour))
	createTestChat(t, s, "chat-new", "user-1", base)
	createTestChat(t, s, "chat-mid", "user-1", base.Add(-time.Hour))
	createTestChat(t, s, "chat-other", "user-2", base)

	chats, err := s.ListChatsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListChatsByOwner failed: %v", err)
	}
	if len(chats) != 3 {
		t.Fatalf("got %d chats, want 3", len(chats))
	}
	want := []string{"chat-new", "chat-mid", "chat-old"}
	for i, id := range want {
		if chats[i].ID != id {
			t.Errorf("chats[%d].ID = %q, want %q", i, chats[i].ID, id)
		}
	}
}

func TestUpdateChatTitle(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())

	if err := s.UpdateChatTitle(ctx, "chat-1", "Renamed"); err != nil {
		t.Fatalf("UpdateChatTitle failed: %v", err)
	}

	got, err := s.GetChat(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", got.Title, "Renamed")
	}

	if err := s.UpdateChatTitle(ctx, "nonexistent", "x"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func saveTestMessage(t *testing.T, s *SQLiteStore, id, chatID, role, content string, at time.Time) {
	t.Helper()
	msg := &Message{
		ID:        id,
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
}

func TestDeleteChat_CascadesMessages(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())
	saveTestMessage(t, s, "msg-1", "chat-1", RoleUser, "hello", time.Now())
	saveTestMessage(t, s, "msg-2", "chat-1", RoleAssistant, "hi there", time.Now().Add(time.Second))

	if err := s.DeleteChat(ctx, "chat-1"); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}

	if _, err := s.GetChat(ctx, "chat-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	msgs, err := s.ListMessagesAsc(ctx, "chat-1")
	if err != nil {
		t.Fatalf("ListMessagesAsc failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected cascade delete to remove messages, got %d", len(msgs))
	}
}

func TestDeleteChat_NotFound(t *testing.T) {
	s := newChatStore(t)

	if err := s.DeleteChat(context.Background(), "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteChatsByOwner_Idempotent(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())
	createTestChat(t, s, "chat-2", "user-1", time.Now())

	if err := s.DeleteChatsByOwner(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteChatsByOwner failed: %v", err)
	}

	chats, err := s.ListChatsByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListChatsByOwner failed: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("got %d chats after delete, want 0", len(chats))
	}

	// Zero matches is still a success
	if err := s.DeleteChatsByOwner(ctx, "user-1"); err != nil {
		t.Errorf("DeleteChatsByOwner on empty owner failed: %v", err)
	}
}

func TestListRecentMessagesDesc_LimitAndOrder(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())

	base := time.Now().UTC()
	for i := 0; i < 8; i++ {
		saveTestMessage(t, s, fmt.Sprintf("msg-%d", i), "chat-1", RoleUser,
			fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
	}

	msgs, err := s.ListRecentMessagesDesc(ctx, "chat-1", 5)
	if err != nil {
		t.Fatalf("ListRecentMessagesDesc failed: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	// Newest first: msg-7 down to msg-3
	for i, msg := range msgs {
		want := fmt.Sprintf("msg-%d", 7-i)
		if msg.ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msg.ID, want)
		}
	}
}

func TestListMessagesAsc_ChronologicalOrder(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())

	base := time.Now().UTC()
	// Insert out of order; retrieval must sort by creation time
	saveTestMessage(t, s, "msg-2", "chat-1", RoleAssistant, "second", base.Add(time.Second))
	saveTestMessage(t, s, "msg-0", "chat-1", RoleUser, "first", base)
	saveTestMessage(t, s, "msg-4", "chat-1", RoleUser, "third", base.Add(2*time.Second))

	msgs, err := s.ListMessagesAsc(ctx, "chat-1")
	if err != nil {
		t.Fatalf("ListMessagesAsc failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	want := []string{"msg-0", "msg-2", "msg-4"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, id)
		}
	}
}

func TestSaveMessage_SubSecondOrdering(t *testing.T) {
	s := newChatStore(t)
	ctx := context.Background()

	createTestChat(t, s, "chat-1", "user-1", time.Now())

	base := time.Now().UTC().Truncate(time.Second)
	saveTestMessage(t, s, "msg-a", "chat-1", RoleUser, "a", base.Add(50*time.Millisecond))
	saveTestMessage(t, s, "msg-b", "chat-1", RoleAssistant, "b", base.Add(500*time.Millisecond))
	saveTestMessage(t, s, "msg-c", "chat-1", RoleUser, "c", base.Add(510*time.Millisecond))

	msgs, err := s.ListMessagesAsc(ctx, "chat-1")
	if err != nil {
		t.Fatalf("ListMessagesAsc failed: %v", err)
	}
	want := []string{"msg-a", "msg-b", "msg-c"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, id)
		}
	}
}
