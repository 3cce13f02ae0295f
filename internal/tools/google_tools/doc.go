// Package google_tools provides MCP tools for authorizing Google accounts.
//
// A Google participant can only be searched once its account holds a saved
// OAuth token. The flow is:
//  1. Call google_get_auth_url with the account name
//  2. Visit the URL and grant read-only calendar access
//  3. Call google_save_auth_code with the same account and the code
//
// Saved tokens are refreshed automatically.
package google_tools
