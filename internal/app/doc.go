// Package app contains the routegrid daemon. It wires the route loader, the
// sink registry and the route host together, feeds log entries from an input
// stream into the live routes and reloads the configuration when its files
// change. It is decoupled from any specific entrypoint like a CLI.
package app
