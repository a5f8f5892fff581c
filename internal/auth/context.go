// ABOUTME: Request context plumbing for the authenticated user id
// ABOUTME: Provides WithUser/UserFromContext used by protected handlers

package auth

import "context"

// userContextKey is the key type for storing the user id in context.Context.
type userContextKey struct{}

// WithUser returns a new context with the authenticated user id attached.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserFromContext retrieves the authenticated user id, empty if not present.
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userContextKey{}).(string)
	return id
}
