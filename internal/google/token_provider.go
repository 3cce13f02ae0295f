package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenProvider supplies per-account OAuth tokens and authenticated clients
// for the Google APIs.
type TokenProvider interface {
	// GetTokenForAccount retrieves the OAuth token for account.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for account.
	HasTokenForAccount(account string) bool

	// HTTPClient returns an authenticated client for account.
	HTTPClient(ctx context.Context, account string) (*http.Client, error)
}

var _ TokenProvider = (*FileTokenProvider)(nil)
