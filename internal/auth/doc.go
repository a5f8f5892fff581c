// Package auth implements the identity service's HTTP surface and the
// session primitives shared with other services.
//
// Sessions are a pair of EdDSA-signed tokens carried in cookies: a
// short-lived access token scoped to the whole origin and a long-lived
// refresh token scoped to the refresh endpoint. Only the identity service
// holds the private key; other services verify access tokens with the
// public key via RequireUser, so they can authenticate callers without a
// shared user database.
package auth
