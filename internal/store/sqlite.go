// ABOUTME: SQLite implementation of the Users and Chats interfaces using modernc.org/sqlite
// ABOUTME: Provides user/chat/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is RFC3339 with fixed-width nanoseconds so that lexicographic
// ordering of stored values matches chronological ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Users and Chats interfaces using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserStore creates a SQLite store carrying only the users table,
// for the auth service's database.
func NewUserStore(path string) (*SQLiteStore, error) {
	return newSQLiteStore(path, userSchema)
}

// NewChatStore creates a SQLite store carrying only the chats and messages
// tables, for the chat service's database.
func NewChatStore(path string) (*SQLiteStore, error) {
	return newSQLiteStore(path, chatSchema)
}

// newSQLiteStore opens the database at path and creates the given schema if
// it doesn't exist. Parent directories are created if needed.
func newSQLiteStore(path, schema string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; cascade deletes need them
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// Each service's database carries only its own tables: the auth service
// never sees chats, the chat service never sees users.
const userSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

const chatSchema = `
	CREATE TABLE IF NOT EXISTS chats (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		title      TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chats_owner ON chats(owner_id, created_at);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,

		CHECK (role IN ('user', 'assistant'))
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat_created
		ON messages(chat_id, created_at);
`

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// CreateUser inserts a new user record.
// Returns ErrDuplicateEmail if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID)
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAtStr string

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
// Returns ErrNotFound if no such user exists.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user by ID.
// Returns ErrNotFound if no such user exists.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var user User
		var createdAtStr string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		user.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// CreateChat inserts a new chat record.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *Chat) error {
	query := `
		INSERT INTO chats (id, owner_id, title, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		chat.ID,
		chat.OwnerID,
		chat.Title,
		chat.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}

	s.logger.Debug("created chat", "id", chat.ID, "owner_id", chat.OwnerID)
	return nil
}

// GetChat retrieves a chat by ID.
// Returns ErrNotFound if the chat doesn't exist.
func (s *SQLiteStore) GetChat(ctx context.Context, id string) (*Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at
		FROM chats
		WHERE id = ?
	`

	var chat Chat
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&chat.ID,
		&chat.OwnerID,
		&chat.Title,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat: %w", err)
	}

	chat.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &chat, nil
}

// ListChatsByOwner returns all chats owned by a user, newest first.
func (s *SQLiteStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]*Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at
		FROM chats
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		var chat Chat
		var createdAtStr string
		if err := rows.Scan(&chat.ID, &chat.OwnerID, &chat.Title, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chat.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		chats = append(chats, &chat)
	}

	return chats, rows.Err()
}

// UpdateChatTitle sets a new title for a chat.
// Returns ErrNotFound if the chat doesn't exist.
func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, id, title string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE chats SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("updating chat title: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteChat removes a chat. Its messages cascade via the foreign key.
// Returns ErrNotFound if the chat doesn't exist.
func (s *SQLiteStore) DeleteChat(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted chat", "id", id)
	return nil
}

// DeleteChatsByOwner removes every chat owned by a user.
// Deleting zero chats is not an error.
func (s *SQLiteStore) DeleteChatsByOwner(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("deleting chats: %w", err)
	}

	s.logger.Debug("deleted chats", "owner_id", ownerID)
	return nil
}

// SaveMessage inserts a new message record.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ChatID,
		msg.Role,
		msg.Content,
		msg.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "chat_id", msg.ChatID, "role", msg.Role)
	return nil
}

// ListRecentMessagesDesc returns the most recent messages for a chat, newest
// first, capped at limit. The DESC + LIMIT shape avoids scanning the whole
// chat when only the tail is needed.
func (s *SQLiteStore) ListRecentMessagesDesc(ctx context.Context, chatID string, limit int) ([]*Message, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return s.queryMessages(ctx, query, chatID, limit)
}

// ListMessagesAsc returns all messages for a chat in chronological order.
func (s *SQLiteStore) ListMessagesAsc(ctx context.Context, chatID string) ([]*Message, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC
	`
	return s.queryMessages(ctx, query, chatID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var createdAtStr string
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
