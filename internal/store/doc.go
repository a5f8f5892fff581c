// Package store provides persistent storage for murmur using SQLite.
//
// # Architecture
//
// The store package separates plain data records from the persistence layer:
//
//   - Users: account lookup and creation, used only by the auth service
//   - Chats: chat and message persistence, used only by the chat service
//
// SQLiteStore implements both interfaces in a single struct, but each
// service opens its own database with its own schema: NewUserStore creates
// only the users table, NewChatStore only chats and messages. The two
// services never share a database. Cross-service trust is carried entirely
// by the token verification key, not by shared storage.
//
// # Data Models
//
//   - User: identity with unique email and bcrypt password hash
//   - Chat: conversation owned by exactly one user
//   - Message: append-only turn ('user' or 'assistant') within a chat
//
// Messages cascade-delete with their chat via a foreign key. Timestamps are
// stored as fixed-width RFC3339 strings so string ordering in SQL matches
// chronological ordering.
package store
