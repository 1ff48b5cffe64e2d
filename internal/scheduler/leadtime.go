package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReminderWindowWidth is the width of every reminder detection window.
const ReminderWindowWidth = time.Minute

// LeadTime is a duration before a meeting's start at which a reminder fires.
type LeadTime time.Duration

// DefaultLeadTimes mirrors the reminder cadence used when nothing is configured.
var DefaultLeadTimes = LeadTimes{
	LeadTime(180 * time.Minute),
	LeadTime(60 * time.Minute),
	LeadTime(10 * time.Minute),
	LeadTime(1 * time.Minute),
}

// Duration returns the lead time as a time.Duration.
func (l LeadTime) Duration() time.Duration {
	return time.Duration(l)
}

// Key is the stable identifier used to record reminder flags, e.g. "10m".
func (l LeadTime) Key() string {
	return strconv.FormatInt(int64(l.Duration()/time.Minute), 10) + "m"
}

// Minutes returns the lead time in whole minutes.
func (l LeadTime) Minutes() int {
	return int(l.Duration() / time.Minute)
}

// Window returns the detection window [now+lead, now+lead+1m).
func (l LeadTime) Window(now time.Time) TimeRange {
	start := now.UTC().Add(l.Duration())
	return TimeRange{Start: start, End: start.Add(ReminderWindowWidth)}
}

// Humanize renders the lead time for reminder messages, e.g. "3 hours".
func (l LeadTime) Humanize() string {
	d := l.Duration()
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ParseLeadTime parses a key ("10m") or any time.ParseDuration value.
func ParseLeadTime(value string) (LeadTime, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("scheduler: invalid lead time %q: %w", value, err)
	}
	if d <= 0 || d%time.Minute != 0 {
		return 0, fmt.Errorf("scheduler: lead time %q must be a positive whole number of minutes", value)
	}
	return LeadTime(d), nil
}

// LeadTimes is an ordered set of lead times, longest first.
type LeadTimes []LeadTime

// ErrOverlappingWindows is returned when two lead times would share a detection window.
var ErrOverlappingWindows = errors.New("scheduler: reminder windows overlap")

// ParseLeadTimes parses a comma separated list such as "180m,60m,10m,1m".
func ParseLeadTimes(value string) (LeadTimes, error) {
	var leads LeadTimes
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		lead, err := ParseLeadTime(part)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads.Normalize()
}

// Normalize sorts the set longest first and rejects duplicates or windows
// that would overlap, so a meeting is classified under one lead time per tick.
func (ls LeadTimes) Normalize() (LeadTimes, error) {
	if len(ls) == 0 {
		return nil, errors.New("scheduler: at least one lead time is required")
	}
	out := make(LeadTimes, len(ls))
	copy(out, ls)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })

	for i := range out {
		if out[i].Duration() <= 0 {
			return nil, fmt.Errorf("scheduler: lead time %s must be positive", out[i].Duration())
		}
		if i == 0 {
			continue
		}
		if out[i-1].Duration()-out[i].Duration() < ReminderWindowWidth {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingWindows, out[i-1].Key(), out[i].Key())
		}
	}
	return out, nil
}

// Keys returns the flag keys of every lead time in order.
func (ls LeadTimes) Keys() []string {
	keys := make([]string, len(ls))
	for i, l := range ls {
		keys[i] = l.Key()
	}
	return keys
}
