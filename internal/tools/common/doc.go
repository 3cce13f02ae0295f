// Package common provides helpers shared by the MCP tool packages: account
// resolution and the instrumentation wrapper every tool is registered with.
package common
