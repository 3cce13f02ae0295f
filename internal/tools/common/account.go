package common

import "strings"

// GetAccountFromArgs returns the "account" argument, or fallback when it is
// missing, empty or not a string.
func GetAccountFromArgs(args map[string]any, fallback string) string {
	if account, ok := args["account"].(string); ok {
		if account = strings.TrimSpace(account); account != "" {
			return account
		}
	}
	return fallback
}
