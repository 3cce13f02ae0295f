// Package batch provides helpers for MCP tools that act on several items at
// once, such as a list of participants.
//
// This package includes helpers for:
//   - Parsing list arguments sent as a string, a JSON array or an array
//   - Running a bounded number of per-item calls concurrently
//   - Reporting partial failures in a consistent JSON shape
package batch
