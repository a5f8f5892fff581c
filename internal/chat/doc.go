// Package chat implements the conversational service: chat management,
// history windowing, and the streaming exchange orchestrator.
//
// An exchange persists the user's turn before generation starts, relays
// backend fragments as server-sent events, and persists whatever assistant
// text accumulated when the stream ends. That last step runs on success,
// backend failure, and caller disconnect alike, so a transcript can hold a
// truncated assistant turn but never loses text the caller already saw.
package chat
