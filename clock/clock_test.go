package clock_test

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/cmdq/clock"
)

func TestFormat_FixedWidthUTC(t *testing.T) {
	t.Parallel()

	in := time.Date(2025, 3, 7, 9, 4, 5, 60_000_000, time.FixedZone("X", 3600))
	got := clock.Format(in)
	if got != "2025-03-07T08:04:05.060Z" {
		t.Errorf("Format() = %q, want %q", got, "2025-03-07T08:04:05.060Z")
	}
	if len(got) != len(clock.Layout) {
		t.Errorf("Format() width = %d, want %d", len(got), len(clock.Layout))
	}
}

func TestFormat_LexicographicEqualsChronological(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(5 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Hour),
		base.AddDate(0, 1, 0),
		base.AddDate(1, 0, 0),
	}
	for i := 1; i < len(times); i++ {
		a, b := clock.Format(times[i-1]), clock.Format(times[i])
		if !(strings.Compare(a, b) < 0) {
			t.Errorf("expected %q < %q", a, b)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	in := time.Date(2025, 6, 30, 23, 59, 59, 999_000_000, time.UTC)
	got, err := clock.Parse(clock.Format(in))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestParse_RejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := clock.Parse("not-a-time"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestParseUserTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			// Naked timestamps are read in the fixed +05:30 offset.
			name: "naked seconds",
			in:   "2025-03-07T10:30:00",
			want: time.Date(2025, 3, 7, 5, 0, 0, 0, time.UTC),
		},
		{
			name: "naked space separator",
			in:   "2025-03-07 10:30:00",
			want: time.Date(2025, 3, 7, 5, 0, 0, 0, time.UTC),
		},
		{
			name: "naked minutes",
			in:   "2025-03-07T10:30",
			want: time.Date(2025, 3, 7, 5, 0, 0, 0, time.UTC),
		},
		{
			name: "explicit zulu",
			in:   "2025-03-07T10:30:00Z",
			want: time.Date(2025, 3, 7, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "explicit offset",
			in:   "2025-03-07T10:30:00+02:00",
			want: time.Date(2025, 3, 7, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			in:   "2025-03-07",
			want: time.Date(2025, 3, 6, 18, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clock.ParseUserTime(tt.in)
			if err != nil {
				t.Fatalf("ParseUserTime(%q) returned error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseUserTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseUserTime(%q) location = %v, want UTC", tt.in, got.Location())
			}
		})
	}
}

func TestParseUserTime_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "soon", "25:99:00"} {
		if _, err := clock.ParseUserTime(in); err == nil {
			t.Errorf("ParseUserTime(%q) expected error", in)
		}
	}
}

func TestSystem_ReturnsUTC(t *testing.T) {
	t.Parallel()

	now := clock.System().Now()
	if now.Location() != time.UTC {
		t.Errorf("System().Now() location = %v, want UTC", now.Location())
	}
}
