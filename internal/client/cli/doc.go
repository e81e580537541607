// Package cli provides the interactive Dispersed command-line client.
//
// It drives the sync core in internal/client/state from a simple REPL: sign
// up or in, browse and edit campsites, manage their photos and reviews, and
// use the public search and location lookup features.
//
// The REPL is started with App.Run(ctx), which blocks until the user exits
// or input ends. See runREPL for the command dispatch.
package cli
