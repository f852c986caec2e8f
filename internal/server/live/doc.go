// Package live implements the push side of the server: the registry of
// live connections, per-connection ordered delivery, the broadcaster that
// fans timer snapshots out to a user's connections, and the Hub that runs
// a connection from handshake to close.
//
// A connection starts pending-auth, becomes authenticated once a token is
// validated, and ends closed. Only authenticated connections are ever
// written to. Every close, whatever its cause, removes the connection from
// the registry.
package live
