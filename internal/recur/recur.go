package recur

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRule is wrapped by all rule validation failures.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Type identifies how a task repeats.
type Type string

const (
	None         Type = "NONE"
	Daily        Type = "DAILY"
	Weekly       Type = "WEEKLY"
	Monthly      Type = "MONTHLY"
	CustomDays   Type = "CUSTOM_DAYS"
	EveryNDays   Type = "EVERY_N_DAYS"
	BiweeklyOdd  Type = "BIWEEKLY_ODD"
	BiweeklyEven Type = "BIWEEKLY_EVEN"
)

var types = map[Type]bool{
	None: true, Daily: true, Weekly: true, Monthly: true,
	CustomDays: true, EveryNDays: true, BiweeklyOdd: true, BiweeklyEven: true,
}

// ParseType converts a stored string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if s == "" {
		return None, nil
	}
	if !types[t] {
		return None, fmt.Errorf("%w: unknown type %q", ErrInvalidRule, s)
	}
	return t, nil
}

// Rule describes a recurrence schedule. EndDate and MaxCount both terminate
// generation; whichever is reached first wins.
type Rule struct {
	Type     Type
	Weekdays []time.Weekday // CUSTOM_DAYS only
	Interval int            // EVERY_N_DAYS only, must be >= 1
	EndDate  *time.Time
	MaxCount int // 0 = unlimited, counted from the anchor
}

// Validate checks rule parameters. Called when a task is saved, never
// deferred to evaluation time.
func (r Rule) Validate() error {
	if !types[r.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Type)
	}
	if r.Type == CustomDays && len(r.Weekdays) == 0 {
		return fmt.Errorf("%w: CUSTOM_DAYS requires at least one weekday", ErrInvalidRule)
	}
	if r.Type == EveryNDays && r.Interval < 1 {
		return fmt.Errorf("%w: EVERY_N_DAYS requires interval >= 1, got %d", ErrInvalidRule, r.Interval)
	}
	if r.MaxCount < 0 {
		return fmt.Errorf("%w: negative max count %d", ErrInvalidRule, r.MaxCount)
	}
	return nil
}

// Repeats reports whether the rule produces any occurrences at all.
func (r Rule) Repeats() bool {
	return r.Type != None && r.Type != ""
}

// Dates evaluates the rule over [from, to] and returns the ordered occurrence
// dates, each normalized to midnight UTC. All dates are >= anchor and
// <= min(EndDate, to). MaxCount caps total occurrences counted from the
// anchor, so a cap exhausted before the window opens yields an empty result.
// Pure: no storage is touched and repeated calls are equivalent.
func (r Rule) Dates(anchor, from, to time.Time) []time.Time {
	if !r.Repeats() {
		return nil
	}
	anchor = Midnight(anchor)
	from = Midnight(from)
	limit := Midnight(to)
	if r.EndDate != nil {
		if end := Midnight(*r.EndDate); end.Before(limit) {
			limit = end
		}
	}
	if limit.Before(anchor) {
		return nil
	}

	var out []time.Time
	count := 0
	capped := func() bool { return r.MaxCount > 0 && count >= r.MaxCount }
	collect := func(d time.Time) {
		count++
		if !d.Before(from) {
			out = append(out, d)
		}
	}

	switch r.Type {
	case Daily, Weekly, EveryNDays:
		step := 1
		switch r.Type {
		case Weekly:
			step = 7
		case EveryNDays:
			step = r.Interval
		}
		if step < 1 {
			return nil
		}
		for d := anchor; !d.After(limit) && !capped(); d = d.AddDate(0, 0, step) {
			collect(d)
		}

	case CustomDays:
		allowed := make(map[time.Weekday]bool, len(r.Weekdays))
		for _, w := range r.Weekdays {
			allowed[w] = true
		}
		if len(allowed) == 0 {
			return nil
		}
		for d := anchor; !d.After(limit) && !capped(); d = d.AddDate(0, 0, 1) {
			if allowed[d.Weekday()] {
				collect(d)
			}
		}

	case Monthly:
		for n := 0; !capped(); n++ {
			d := monthlyDate(anchor, n)
			if d.After(limit) {
				break
			}
			collect(d)
		}

	case BiweeklyOdd, BiweeklyEven:
		wantOdd := r.Type == BiweeklyOdd
		// Weekly candidates filtered by ISO week parity: parity is
		// recomputed per candidate, so a 14-day stride that drifts
		// across a year-numbering reset self-corrects.
		for d := anchor; !d.After(limit) && !capped(); d = d.AddDate(0, 0, 7) {
			_, week := d.ISOWeek()
			if (week%2 == 1) == wantOdd {
				collect(d)
			}
		}
	}
	return out
}

// monthlyDate returns the n-th monthly occurrence after anchor, clamping the
// day-of-month to the target month's last day (Jan 31 -> Feb 28/29).
func monthlyDate(anchor time.Time, n int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := anchor.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

// Midnight normalizes t to a pure calendar date at midnight UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "MON": time.Monday, "TUE": time.Tuesday, "WED": time.Wednesday,
	"THU": time.Thursday, "FRI": time.Friday, "SAT": time.Saturday,
}

var weekdayCodes = map[time.Weekday]string{
	time.Sunday: "SUN", time.Monday: "MON", time.Tuesday: "TUE", time.Wednesday: "WED",
	time.Thursday: "THU", time.Friday: "FRI", time.Saturday: "SAT",
}

// EncodeWeekdays renders a weekday set as a comma-separated list for storage.
func EncodeWeekdays(days []time.Weekday) string {
	codes := make([]string, 0, len(days))
	for _, d := range days {
		codes = append(codes, weekdayCodes[d])
	}
	return strings.Join(codes, ",")
}

// ParseWeekdays parses the storage encoding produced by EncodeWeekdays.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		d, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, part)
		}
		days = append(days, d)
	}
	return days, nil
}
