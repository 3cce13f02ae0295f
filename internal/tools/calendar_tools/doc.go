// Package calendar_tools provides the MCP tools for calendar availability.
//
// calendar_suggest_slots runs the slot finder over a set of participants and
// returns the best common free slots. calendar_query_freebusy reports each
// participant's busy periods separately, and calendar_list_calendars shows
// which calendars of an account count toward its availability.
//
// Participants are Google accounts with a saved token (a bare name or
// google:<account>) or configured CalDAV accounts (caldav:<account>).
package calendar_tools
