// Package clock provides the queue's time encoding and parsing rules.
//
// All persisted timestamps are fixed-width ISO-8601 UTC strings in
// [Layout]. The width is fixed so that lexicographic ordering on the
// stored string equals chronological ordering, which is what the store
// backends rely on for comparisons.
package clock

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the storage encoding for timestamps: ISO-8601 UTC with
// millisecond precision and a literal 'Z' designator.
const Layout = "2006-01-02T15:04:05.000Z"

// LocalOffset is the fixed offset applied to user-supplied run_at
// timestamps that carry no timezone designator. Naked timestamps are
// interpreted in this offset and converted to UTC before storage.
// This is a product choice for the primary deployment locale, not a
// derived value; change it here to re-configure.
var LocalOffset = time.FixedZone("UTC+05:30", 5*3600+30*60)

// Clock is a wall-clock source. The queue takes a Clock so tests can
// substitute a frozen one.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by time.Now in UTC.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Format encodes t as a storage timestamp string.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse decodes a storage timestamp string.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: parse %q: %w", s, err)
	}
	return t, nil
}

// userLayouts are the accepted shapes for user-supplied timestamps,
// tried in order. Layouts without a timezone designator are parsed in
// LocalOffset.
var userLayouts = []struct {
	layout string
	naked  bool
}{
	{time.RFC3339Nano, false},
	{time.RFC3339, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02", true},
}

// ParseUserTime parses a user-supplied ISO-8601 timestamp. A timestamp
// with an explicit timezone designator is honoured as written; a naked
// timestamp is interpreted in LocalOffset. The result is always UTC.
func ParseUserTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("clock: empty timestamp")
	}
	for _, ul := range userLayouts {
		var (
			t   time.Time
			err error
		)
		if ul.naked {
			t, err = time.ParseInLocation(ul.layout, s, LocalOffset)
		} else {
			t, err = time.Parse(ul.layout, s)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("clock: unrecognised timestamp %q", s)
}
