// Package cli provides the interactive timekeeper command-line client.
//
// It wires configuration, the local cache, the REST client and the push
// subscriber into a REPL. A saved session is resumed on start; while logged
// in, a background loop keeps the push channel subscribed and reconnects at
// a fixed interval, so `status` reflects changes made from other clients.
//
// Commands: signup, login, logout, start, stop, status, status old, export,
// help, exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
