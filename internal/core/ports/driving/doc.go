// Package driving provides interfaces for inbound adapters (primary ports).
//
// Transport adapters (CLI, HTTP/WebSocket, MCP) drive the core through
// these interfaces and never reach into service internals.
package driving
