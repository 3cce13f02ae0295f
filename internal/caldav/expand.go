package caldav

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/LamPham123/CalPal.ai/internal/availability"
)

// BusyFromCalendar returns the busy blocks of every event in cal that
// overlaps window. Recurring events are expanded; overridden instances
// (RECURRENCE-ID) replace the occurrence they override. Transparent and
// cancelled events do not block time. Events that cannot be parsed are
// skipped and counted.
func BusyFromCalendar(cal *ical.Calendar, window availability.Window, loc *time.Location) (busy []availability.Interval, skipped int) {
	if cal == nil {
		return nil, 0
	}
	events := cal.Events()

	overridden := make(map[string]map[int64]bool)
	for _, ev := range events {
		rid := ev.Props.Get(ical.PropRecurrenceID)
		if rid == nil {
			continue
		}
		t, err := rid.DateTime(loc)
		if err != nil {
			continue
		}
		uid := eventUID(ev)
		if overridden[uid] == nil {
			overridden[uid] = make(map[int64]bool)
		}
		overridden[uid][t.Unix()] = true
	}

	for _, ev := range events {
		if !blocksTime(ev) {
			continue
		}
		blocks, err := eventBusy(ev, window, loc, overridden[eventUID(ev)])
		if err != nil {
			skipped++
			continue
		}
		busy = append(busy, blocks...)
	}
	sort.SliceStable(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, skipped
}

func eventUID(ev ical.Event) string {
	if p := ev.Props.Get(ical.PropUID); p != nil {
		return p.Value
	}
	return ""
}

func blocksTime(ev ical.Event) bool {
	if p := ev.Props.Get(ical.PropTransparency); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return false
	}
	if p := ev.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return false
	}
	return true
}

func eventBusy(ev ical.Event, window availability.Window, loc *time.Location, overridden map[int64]bool) ([]availability.Interval, error) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid DTSTART: %w", err)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid DTEND: %w", err)
	}
	dur := end.Sub(start)
	if dur == 0 {
		return nil, nil
	}

	// Overrides are standalone instances even though they share the UID.
	if ev.Props.Get(ical.PropRecurrenceID) != nil || !isRecurring(ev) {
		iv := availability.Interval{Start: start, End: end}
		if dur < 0 || iv.Overlaps(window.Interval()) {
			return []availability.Interval{iv}, nil
		}
		return nil, nil
	}
	if dur < 0 {
		return []availability.Interval{{Start: start, End: end}}, nil
	}

	set, err := recurrenceSet(ev, start, loc)
	if err != nil {
		return nil, err
	}
	var out []availability.Interval
	for _, occ := range set.Between(window.Start.Add(-dur), window.End, false) {
		if overridden[occ.Unix()] {
			continue
		}
		out = append(out, availability.Interval{Start: occ, End: occ.Add(dur)})
	}
	return out, nil
}

func isRecurring(ev ical.Event) bool {
	return ev.Props.Get(ical.PropRecurrenceRule) != nil || ev.Props.Get(ical.PropRecurrenceDates) != nil
}

func recurrenceSet(ev ical.Event, start time.Time, loc *time.Location) (*rrule.Set, error) {
	set := &rrule.Set{}
	set.DTStart(start)
	set.RDate(start)

	if p := ev.Props.Get(ical.PropRecurrenceRule); p != nil {
		opt, err := rrule.StrToROptionInLocation(p.Value, start.Location())
		if err != nil {
			return nil, fmt.Errorf("invalid RRULE %q: %w", p.Value, err)
		}
		opt.Dtstart = start
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("invalid RRULE %q: %w", p.Value, err)
		}
		set.RRule(r)
	}

	rdates, err := dateList(ev, ical.PropRecurrenceDates, loc)
	if err != nil {
		return nil, err
	}
	for _, t := range rdates {
		set.RDate(t)
	}
	exdates, err := dateList(ev, ical.PropExceptionDates, loc)
	if err != nil {
		return nil, err
	}
	for _, t := range exdates {
		set.ExDate(t)
	}
	return set, nil
}

// dateList parses every value of a multi-valued date property such as EXDATE.
func dateList(ev ical.Event, name string, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, p := range ev.Props[name] {
		for _, v := range strings.Split(p.Value, ",") {
			single := ical.Prop{Name: p.Name, Params: p.Params, Value: strings.TrimSpace(v)}
			t, err := single.DateTime(loc)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}
