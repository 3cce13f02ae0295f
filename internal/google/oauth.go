package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the account used when a caller names none.
const DefaultAccount = "default"

// ErrNoToken is returned when an account has not been authorized yet.
var ErrNoToken = errors.New("no Google OAuth token")

var accountNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_@+.-]*$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNameRE.MatchString(account) || strings.Contains(account, "..") {
		return fmt.Errorf("invalid account name %q: use letters, digits, '-', '_', '.', '+' or '@'", account)
	}
	return nil
}

// NewOAuthConfig returns the OAuth2 client configuration for Google Calendar.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// DefaultTokenDir is where tokens are stored when no directory is configured.
func DefaultTokenDir() string {
	return filepath.Join(userCacheDir(), "calpal")
}

// FileTokenProvider stores one OAuth token per account as a JSON file.
type FileTokenProvider struct {
	dir  string
	conf *oauth2.Config
}

// NewFileTokenProvider returns a provider rooted at dir, or DefaultTokenDir
// when dir is empty.
func NewFileTokenProvider(dir string, conf *oauth2.Config) *FileTokenProvider {
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &FileTokenProvider{dir: dir, conf: conf}
}

// Dir returns the token directory.
func (p *FileTokenProvider) Dir() string {
	return p.dir
}

func (p *FileTokenProvider) tokenFilePath(account string) string {
	return filepath.Join(p.dir, "google-"+account+".token")
}

// HasTokenForAccount reports whether a token file exists for account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(p.tokenFilePath(account))
	return err == nil
}

// GetTokenForAccount reads the stored token for account.
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.tokenFilePath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token for account %s: %w", account, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	return &tok, nil
}

// AuthURL returns the consent URL the user visits to authorize account.
func (p *FileTokenProvider) AuthURL(account string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	return p.conf.AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// SaveToken exchanges an authorization code and stores the token for account.
func (p *FileTokenProvider) SaveToken(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if strings.TrimSpace(authCode) == "" {
		return fmt.Errorf("authorization code cannot be empty")
	}
	tok, err := p.conf.Exchange(ctx, strings.TrimSpace(authCode))
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return p.writeToken(account, tok)
}

func (p *FileTokenProvider) writeToken(account string, tok *oauth2.Token) error {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(p.tokenFilePath(account), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// HTTPClient returns a client that authenticates as account and refreshes
// its token as needed. The client is pinned to HTTP/1.1.
func (p *FileTokenProvider) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	tok, err := p.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, p.conf.TokenSource(ctx, tok))
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}

// MigrateLegacyToken renames a pre-multi-account google.token file to the
// default account's file. It is a no-op when there is nothing to migrate.
func (p *FileTokenProvider) MigrateLegacyToken() error {
	oldPath := filepath.Join(p.dir, "google.token")
	newPath := p.tokenFilePath(DefaultAccount)
	if _, err := os.Stat(oldPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := os.Stat(newPath); err == nil {
		return nil
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to migrate legacy token: %w", err)
	}
	return nil
}

// AuthenticationErrorMessage tells the user how to authorize account.
func AuthenticationErrorMessage(account string) string {
	return fmt.Sprintf(`Google OAuth token not found for account %q.

Authorize calpal to read this account's calendars:
1. Call google_get_auth_url with account %q and open the URL
2. Grant read-only calendar access
3. Call google_save_auth_code with the same account and the code you received`, account, account)
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	if runtime.GOOS == "windows" {
		return os.TempDir()
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}
