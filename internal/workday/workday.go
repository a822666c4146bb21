// Package workday resolves date expressions into the workday being reported on
// and the UTC window that captures activity for it.
package workday

import (
	"strings"
	"time"

	perr "github.com/Afrawles/standup/internal/errors"
)

// ISODate is the layout used whenever a resolved date is printed or parsed back
const ISODate = "2006-01-02"

// carryOver widens the window into the next UTC day so late-evening work in
// US timezones still lands on the right workday
const carryOver = 8 * time.Hour

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
}

var layouts = []string{
	ISODate,
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// Resolver turns expressions like "yesterday", "fri" or "2024-07-22" into a
// calendar date at 00:00 UTC
type Resolver struct {
	Now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Resolve returns the workday named by expr. An empty expression means the most
// recent prior workday: Friday when today is Monday, otherwise yesterday.
func (r *Resolver) Resolve(expr string) (time.Time, error) {
	today := r.today()
	e := strings.ToLower(strings.TrimSpace(expr))

	switch e {
	case "":
		if today.Weekday() == time.Monday {
			return today.AddDate(0, 0, -3), nil
		}
		return today.AddDate(0, 0, -1), nil
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if wd, ok := weekdays[strings.TrimPrefix(e, "last ")]; ok {
		return lastWeekday(today, wd), nil
	}

	raw := strings.TrimSpace(expr)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date(t), nil
		}
	}

	return time.Time{}, perr.Newf(perr.ErrorCodeInvalidDateExpression,
		"unrecognised date expression %q (use a weekday, yesterday, YYYY-MM-DD or Month D, YYYY)", expr)
}

func (r *Resolver) today() time.Time {
	now := time.Now
	if r != nil && r.Now != nil {
		now = r.Now
	}
	return Date(now())
}

// lastWeekday is the most recent wd strictly before today
func lastWeekday(today time.Time, wd time.Weekday) time.Time {
	back := (int(today.Weekday()) - int(wd) + 7) % 7
	if back == 0 {
		back = 7
	}
	return today.AddDate(0, 0, -back)
}

// Date truncates t to its calendar date, expressed at 00:00 UTC
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window is the inclusive UTC range of activity that counts toward one workday
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BuildWindow spans d 00:00:00 UTC through the next day 07:59:59 UTC
func BuildWindow(d time.Time) Window {
	start := Date(d)
	end := start.AddDate(0, 0, 1).Add(carryOver - time.Second)
	return Window{Start: start, End: end}
}

// Contains reports whether t falls within the window, both ends included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
