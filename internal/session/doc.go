// Package session issues single-use submission tokens.
//
// Tokens are random uuids kept in the shared cache for the session TTL. A
// submission must present a live token, and an accepted submission deletes it,
// so one token authorizes at most one post. This deters replays and naive bots;
// it is not an identity mechanism.
package session
