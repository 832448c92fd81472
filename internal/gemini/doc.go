// Package gemini serves the board over the Gemini protocol.
//
// Server runs a go-gemini server with the host's certificate, read and
// write timeouts, and a recovery wrapper that answers a handler panic with
// status 40. Router maps board paths onto a Board; any board failure renders
// the generic oops page with status 20 so clients always get a readable page.
package gemini
