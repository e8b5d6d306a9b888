package recur

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datesEqual(t *testing.T, got []time.Time, want ...time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("date[%d] = %s, want %s", i, got[i].Format(time.DateOnly), want[i].Format(time.DateOnly))
		}
	}
}

// ============================================================
// Validation
// ============================================================

func TestValidateNone(t *testing.T) {
	if err := (Rule{Type: None}).Validate(); err != nil {
		t.Fatalf("NONE should validate: %v", err)
	}
}

func TestValidateUnknownType(t *testing.T) {
	err := (Rule{Type: "FORTNIGHTLY"}).Validate()
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestValidateCustomDaysRequiresWeekdays(t *testing.T) {
	err := (Rule{Type: CustomDays}).Validate()
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for empty weekday set, got %v", err)
	}
}

func TestValidateEveryNDaysInterval(t *testing.T) {
	for _, n := range []int{0, -3} {
		err := (Rule{Type: EveryNDays, Interval: n}).Validate()
		if !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("interval %d should be rejected, got %v", n, err)
		}
	}
	if err := (Rule{Type: EveryNDays, Interval: 1}).Validate(); err != nil {
		t.Fatalf("interval 1 should validate: %v", err)
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("daily")
	if err != nil || typ != Daily {
		t.Fatalf("ParseType(daily) = %v, %v", typ, err)
	}
	if _, err := ParseType("sometimes"); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	typ, err = ParseType("")
	if err != nil || typ != None {
		t.Fatalf("empty type should parse as NONE, got %v, %v", typ, err)
	}
}

// ============================================================
// Evaluation
// ============================================================

func TestNoneProducesNothing(t *testing.T) {
	got := Rule{Type: None}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 12, 31))
	if got != nil {
		t.Fatalf("NONE should produce no dates, got %v", got)
	}
}

func TestDaily(t *testing.T) {
	got := Rule{Type: Daily}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 5))
	datesEqual(t, got,
		date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 4), date(2024, 1, 5),
	)
}

func TestWeekly(t *testing.T) {
	got := Rule{Type: Weekly}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 31))
	datesEqual(t, got,
		date(2024, 1, 1), date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22), date(2024, 1, 29),
	)
}

func TestEveryNDays(t *testing.T) {
	got := Rule{Type: EveryNDays, Interval: 3}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 10))
	datesEqual(t, got,
		date(2024, 1, 1), date(2024, 1, 4), date(2024, 1, 7), date(2024, 1, 10),
	)
}

func TestMonthlyClampsToShortMonth(t *testing.T) {
	// Anchor on the 31st: February clamps to its last day.
	got := Rule{Type: Monthly}.Dates(date(2023, 1, 31), date(2023, 2, 1), date(2023, 2, 28))
	datesEqual(t, got, date(2023, 2, 28))

	// Leap year February clamps to the 29th, not the 28th.
	got = Rule{Type: Monthly}.Dates(date(2024, 1, 31), date(2024, 2, 1), date(2024, 2, 29))
	datesEqual(t, got, date(2024, 2, 29))
}

func TestMonthlyKeepsAnchorDayAfterClamp(t *testing.T) {
	// The clamp applies per month; March reverts to the 31st.
	got := Rule{Type: Monthly}.Dates(date(2023, 1, 31), date(2023, 1, 1), date(2023, 3, 31))
	datesEqual(t, got, date(2023, 1, 31), date(2023, 2, 28), date(2023, 3, 31))
}

func TestCustomDays(t *testing.T) {
	// 2024-01-01 is a Monday.
	rule := Rule{Type: CustomDays, Weekdays: []time.Weekday{time.Monday, time.Wednesday}}
	got := rule.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 10))
	datesEqual(t, got,
		date(2024, 1, 1), date(2024, 1, 3), date(2024, 1, 8), date(2024, 1, 10),
	)
}

func TestCustomDaysAnchorNotMatching(t *testing.T) {
	// Anchor is a Monday but only Friday is selected.
	rule := Rule{Type: CustomDays, Weekdays: []time.Weekday{time.Friday}}
	got := rule.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 14))
	datesEqual(t, got, date(2024, 1, 5), date(2024, 1, 12))
}

func TestBiweeklyParity(t *testing.T) {
	// 2024-01-01 is a Monday in ISO week 1 (odd).
	odd := Rule{Type: BiweeklyOdd}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 31))
	datesEqual(t, odd, date(2024, 1, 1), date(2024, 1, 15), date(2024, 1, 29))

	even := Rule{Type: BiweeklyEven}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 31))
	datesEqual(t, even, date(2024, 1, 8), date(2024, 1, 22))
}

func TestBiweeklyParityAcrossYearReset(t *testing.T) {
	// 2020 has 53 ISO weeks, so week 53 (odd) is followed by week 1 (odd).
	// Per-candidate parity keeps both; a fixed 14-day stride would skip
	// 2021-01-04 and land on 01-11 instead.
	got := Rule{Type: BiweeklyOdd}.Dates(date(2020, 12, 14), date(2020, 12, 14), date(2021, 1, 10))
	datesEqual(t, got, date(2020, 12, 14), date(2020, 12, 28), date(2021, 1, 4))
}

// ============================================================
// Window, end date, max count
// ============================================================

func TestWindowBounds(t *testing.T) {
	anchor := date(2024, 1, 1)
	from, to := date(2024, 3, 10), date(2024, 3, 20)
	rules := []Rule{
		{Type: Daily},
		{Type: Weekly},
		{Type: Monthly},
		{Type: EveryNDays, Interval: 4},
		{Type: CustomDays, Weekdays: []time.Weekday{time.Tuesday}},
		{Type: BiweeklyOdd},
		{Type: BiweeklyEven},
	}
	for _, rule := range rules {
		for _, d := range rule.Dates(anchor, from, to) {
			if d.Before(from) || d.After(to) || d.Before(anchor) {
				t.Fatalf("%s produced %s outside [%s, %s]",
					rule.Type, d.Format(time.DateOnly), from.Format(time.DateOnly), to.Format(time.DateOnly))
			}
		}
	}
}

func TestAnchorAfterWindowStart(t *testing.T) {
	got := Rule{Type: Daily}.Dates(date(2024, 1, 10), date(2024, 1, 1), date(2024, 1, 12))
	datesEqual(t, got, date(2024, 1, 10), date(2024, 1, 11), date(2024, 1, 12))
}

func TestEndDateStopsGeneration(t *testing.T) {
	end := date(2024, 1, 3)
	got := Rule{Type: Daily, EndDate: &end}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 31))
	datesEqual(t, got, date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3))
}

func TestMaxCountLimitsTotal(t *testing.T) {
	got := Rule{Type: Daily, MaxCount: 3}.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 31))
	datesEqual(t, got, date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3))
}

func TestMaxCountCountsFromAnchor(t *testing.T) {
	// The cap is exhausted before the window opens, so nothing is produced.
	got := Rule{Type: Daily, MaxCount: 5}.Dates(date(2024, 1, 1), date(2024, 2, 1), date(2024, 2, 28))
	if len(got) != 0 {
		t.Fatalf("expected empty sequence when cap exhausted before window, got %v", got)
	}
}

func TestMaxCountPartialOverlap(t *testing.T) {
	// Occurrences 4 and 5 fall inside the window; 1-3 precede it.
	got := Rule{Type: Daily, MaxCount: 5}.Dates(date(2024, 1, 1), date(2024, 1, 4), date(2024, 1, 31))
	datesEqual(t, got, date(2024, 1, 4), date(2024, 1, 5))
}

func TestPureAndRestartable(t *testing.T) {
	rule := Rule{Type: EveryNDays, Interval: 2, MaxCount: 10}
	a := rule.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 20))
	b := rule.Dates(date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 20))
	datesEqual(t, a, b...)
}

// ============================================================
// Weekday encoding
// ============================================================

func TestWeekdayRoundTrip(t *testing.T) {
	days := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	encoded := EncodeWeekdays(days)
	if encoded != "MON,WED,FRI" {
		t.Fatalf("encoded = %q", encoded)
	}
	decoded, err := ParseWeekdays(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 3 || decoded[0] != time.Monday || decoded[2] != time.Friday {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestParseWeekdaysRejectsGarbage(t *testing.T) {
	if _, err := ParseWeekdays("MON,NOPE"); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestParseWeekdaysEmpty(t *testing.T) {
	days, err := ParseWeekdays("")
	if err != nil || days != nil {
		t.Fatalf("empty input should parse to nil, got %v, %v", days, err)
	}
}
