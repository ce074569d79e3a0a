package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-03-10 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != (Date{Year: 2026, Month: time.March, Day: 10}) {
		t.Fatalf("unexpected date %+v", d)
	}
	if d.Weekday() != time.Tuesday {
		t.Fatalf("expected Tuesday, got %s", d.Weekday())
	}
	if d.Long() != "March 10, 2026" {
		t.Fatalf("unexpected long form %q", d.Long())
	}
	if _, err := ParseDate("10/03/2026"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestDate_AddDaysAndCompare(t *testing.T) {
	d := Date{Year: 2025, Month: time.December, Day: 31}
	next := d.AddDays(1)
	if next.String() != "2026-01-01" {
		t.Fatalf("expected rollover, got %s", next)
	}
	if !d.Before(next) || !next.After(d) || d.Compare(d) != 0 {
		t.Fatal("comparison mismatch")
	}
}

func TestToday_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	if got := Today(now, loc).String(); got != "2026-01-01" {
		t.Fatalf("expected previous day in UTC-5, got %s", got)
	}
}

func TestDateRange_Days(t *testing.T) {
	r := DateRange{From: Date{2026, time.February, 27}, To: Date{2026, time.March, 2}}
	days := r.Days()
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	if !r.Contains(Date{2026, time.March, 1}) || r.Contains(Date{2026, time.March, 3}) {
		t.Fatal("contains mismatch")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw  string
		want Clock
	}{
		{"10:00", NewClock(10, 0)},
		{"9:30", NewClock(9, 30)},
		{"14:45:00", NewClock(14, 45)},
		{"2:15 pm", NewClock(14, 15)},
		{"12:00 AM", NewClock(0, 0)},
		{"3PM", NewClock(15, 0)},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.raw)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseClock(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
	if _, err := ParseClock("quarter past"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClock_Formats(t *testing.T) {
	if got := NewClock(9, 5).Kitchen(); got != "09:05 AM" {
		t.Fatalf("got %q", got)
	}
	if got := NewClock(12, 30).Kitchen(); got != "12:30 PM" {
		t.Fatalf("got %q", got)
	}
	if got := NewClock(0, 0).Kitchen(); got != "12:00 AM" {
		t.Fatalf("got %q", got)
	}
	if got := NewClock(17, 0).String(); got != "17:00" {
		t.Fatalf("got %q", got)
	}
}

func TestTimeRange_Overlaps(t *testing.T) {
	booked := RangeFor(NewClock(10, 0), 30)
	tests := []struct {
		name string
		r    TimeRange
		want bool
	}{
		{"identical", RangeFor(NewClock(10, 0), 30), true},
		{"starts inside", RangeFor(NewClock(10, 15), 30), true},
		{"ends inside", RangeFor(NewClock(9, 45), 30), true},
		{"adjacent before", RangeFor(NewClock(9, 30), 30), false},
		{"adjacent after", RangeFor(NewClock(10, 30), 30), false},
	}
	for _, tt := range tests {
		if got := booked.Overlaps(tt.r); got != tt.want {
			t.Fatalf("%s: overlaps=%v want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"Friday", "mon", "Monday", "WED"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected duplicates dropped, got %v", days)
	}
	names := WeekdayNames(append(days, time.Sunday))
	want := []string{"Monday", "Wednesday", "Friday", "Sunday"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if _, err := ParseWeekday("Caturday"); err == nil {
		t.Fatal("expected error")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Date Date  `json:"date"`
		Time Clock `json:"time"`
	}
	raw := `{"date":"2026-05-04","time":"13:30"}`
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("got %s", out)
	}
}
