// Package cmd implements the command-line interface for calpal.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or streamable-http, which also serves
//     the find-time HTTP API)
//   - find-time: Search for common free slots and print the JSON response
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
