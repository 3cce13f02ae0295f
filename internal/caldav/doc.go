// Package caldav reads busy time from CalDAV servers.
//
// A Client discovers the principal's calendar home set, queries every event
// calendar in it with a time-range filter and turns the returned iCalendar
// objects into busy intervals, expanding recurring events with their
// RRULE, RDATE and EXDATE properties.
package caldav
