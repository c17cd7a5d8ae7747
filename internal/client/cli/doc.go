// Package cli provides the interactive gophauth command-line client.
//
// It dials the credential service over gRPC, keeps the current session in
// memory and runs a REPL with register, login, refresh, whoami and logout.
// A background watcher probes the server health endpoint and flips the
// prompt between online and offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
