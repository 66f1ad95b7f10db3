package domain

import (
	"fmt"
	"time"
)

// TimeKind distinguishes the two wire representations an activity time can
// arrive in: a full timestamp or a bare time of day.
type TimeKind int

const (
	// KindTimeOfDay is a clock time with no date (wire form "15:04:05").
	KindTimeOfDay TimeKind = iota + 1
	// KindInstant is a full RFC 3339 timestamp.
	KindInstant
)

// TimeValue is a tagged activity start/end time. The original wire form is
// preserved: an instant round-trips as RFC 3339 and a time of day as
// "15:04:05". Anchoring a time of day onto a calendar date is a display
// concern only and never written back to the gateway.
type TimeValue struct {
	kind TimeKind
	t    time.Time // instant, or clock time on the zero date in UTC
	wire string    // instant as parsed off the wire; empty when built in process
}

// NewInstant returns a TimeValue holding a full timestamp.
func NewInstant(t time.Time) TimeValue {
	return TimeValue{kind: KindInstant, t: t}
}

// NewTimeOfDay returns a TimeValue holding a bare clock time.
// Components are normalised modulo 24h by time.Date.
func NewTimeOfDay(hour, min, sec int) TimeValue {
	return TimeValue{
		kind: KindTimeOfDay,
		t:    time.Date(1, time.January, 1, hour, min, sec, 0, time.UTC),
	}
}

// ParseTimeValue decodes a wire time string. It accepts RFC 3339 instants and
// "15:04:05" / "15:04" clock times. ok is false for anything else; callers
// treat that as an absent value rather than an error.
func ParseTimeValue(s string) (TimeValue, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		// Keep the exact string: re-rendering would drop fractional seconds
		// and rewrite a "+00:00" offset as "Z", and the gateway stores the
		// column verbatim.
		return TimeValue{kind: KindInstant, t: t, wire: s}, true
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), true
		}
	}
	return TimeValue{}, false
}

// Kind reports which representation this value holds.
func (v TimeValue) Kind() TimeKind { return v.kind }

// Instant returns the full timestamp and true when the value is an instant.
func (v TimeValue) Instant() (time.Time, bool) {
	return v.t, v.kind == KindInstant
}

// Clock returns the hour, minute, and second components. For instants these
// are the components of the timestamp in its own location.
func (v TimeValue) Clock() (hour, min, sec int) {
	return v.t.Clock()
}

// DaySeconds returns the seconds elapsed since midnight, the ordering key for
// "time-of-day then creation time" itinerary sorting. Both kinds compare on
// their clock components.
func (v TimeValue) DaySeconds() int {
	h, m, s := v.t.Clock()
	return h*3600 + m*60 + s
}

// Anchor places the value on the given calendar date for display or
// comparison. Instants are returned unchanged; the anchored form must never
// be sent back to the gateway.
func (v TimeValue) Anchor(date time.Time) time.Time {
	if v.kind == KindInstant {
		return v.t
	}
	h, m, s := v.t.Clock()
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, date.Location())
}

// Wire returns the value in its original wire representation. Instants built
// in process (never parsed) render as RFC 3339 with any fractional seconds
// kept.
func (v TimeValue) Wire() string {
	if v.kind == KindInstant {
		if v.wire != "" {
			return v.wire
		}
		return v.t.Format(time.RFC3339Nano)
	}
	h, m, s := v.t.Clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// String implements fmt.Stringer using the wire form.
func (v TimeValue) String() string { return v.Wire() }
