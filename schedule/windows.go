package schedule

import (
	"slices"
	"time"
)

// Calendar is the schedule data of one resource: its rules, its exceptions
// and the zone the wall-clock times are expressed in.
type Calendar struct {
	Rules      []*Rule
	Exceptions []*Exception
	Location   *time.Location
}

// ResolveWindows returns the raw availability windows of svc on res within
// [from, to), ordered by start and with overlapping or touching windows
// merged.
//
// An exception on a date replaces that date's recurring windows entirely:
// any blackout closes the date, otherwise the union of the additions is the
// date's availability.
func ResolveWindows(svc *Service, res *Resource, cal Calendar, from, to time.Time) []Window {
	if svc == nil || res == nil || !from.Before(to) {
		return nil
	}

	loc := cal.Location
	if loc == nil {
		loc = time.UTC
	}

	rules := make([]*Rule, 0, len(cal.Rules))
	for _, r := range cal.Rules {
		if r.ResourceID == res.ID && r.AppliesTo(svc.ID) {
			rules = append(rules, r)
		}
	}

	exceptions := make(map[Date][]*Exception)
	for _, e := range cal.Exceptions {
		if e.ResourceID == res.ID && e.AppliesTo(svc.ID) {
			exceptions[e.Date] = append(exceptions[e.Date], e)
		}
	}

	var out []Window
	last := DateOf(to.In(loc))
	for d := DateOf(from.In(loc)); !last.Before(d); d = d.AddDays(1) {
		for _, w := range windowsOn(d, rules, exceptions[d], loc) {
			if w.Start.Before(from) {
				w.Start = from
			}
			if w.End.After(to) {
				w.End = to
			}
			if w.Start.Before(w.End) {
				out = append(out, w)
			}
		}
	}

	return merge(out)
}

func windowsOn(d Date, rules []*Rule, exceptions []*Exception, loc *time.Location) []Window {
	if len(exceptions) > 0 {
		var out []Window
		for _, e := range exceptions {
			if e.Kind == ExceptionBlackout {
				return nil
			}
			out = append(out, Window{Start: d.At(e.Start, loc), End: d.At(e.End, loc)})
		}
		return out
	}

	var out []Window
	for _, r := range rules {
		if r.Matches(d) {
			out = append(out, Window{Start: d.At(r.Start, loc), End: d.At(r.End, loc)})
		}
	}
	return out
}

func merge(ws []Window) []Window {
	if len(ws) < 2 {
		return ws
	}

	slices.SortFunc(ws, func(a, b Window) int {
		return a.Start.Compare(b.Start)
	})

	out := ws[:1]
	for _, w := range ws[1:] {
		cur := &out[len(out)-1]
		if !w.Start.After(cur.End) {
			if w.End.After(cur.End) {
				cur.End = w.End
			}
			continue
		}
		out = append(out, w)
	}
	return out
}
