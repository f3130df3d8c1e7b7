// Package mcp provides an MCP (Model Context Protocol) server adapter for Quill.
// It lets AI assistants rewrite queries, submit runs and read the latest
// session exports.
package mcp

import "errors"

// ErrMissingRewriteService is returned when the rewrite service is not provided.
var ErrMissingRewriteService = errors.New("mcp: rewrite service is required")
