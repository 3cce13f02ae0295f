// Package google manages OAuth2 tokens for the Google accounts whose
// calendars calpal reads.
//
// Each account has its own token file under the token directory
// (google-<account>.token). Accounts are authorized out of band: AuthURL
// returns the consent URL and SaveToken exchanges the code the user pastes
// back. The TokenProvider interface is what the calendar client consumes.
package google
