// Package calendar reads busy time from the Google Calendar API.
//
// A Client lists an account's calendars, keeps the ones that count toward
// its availability (the primary calendar and every calendar the account
// owns) and queries their free/busy data. Provider adapts clients to
// availability.BusyProvider, one cached client per account.
//
//	provider := calendar.NewProvider(ctx, tokens, metrics)
//	busy, err := provider.BusyIntervals(ctx, "work", window)
package calendar
