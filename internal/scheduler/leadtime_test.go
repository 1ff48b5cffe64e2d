package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestParseLeadTimes(t *testing.T) {
	leads, err := ParseLeadTimes("10m, 3h,1m,60m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"180m", "60m", "10m", "1m"}
	got := leads.Keys()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	cases := map[string]string{
		"empty":        "",
		"duplicate":    "10m,10m",
		"sub minute":   "30s",
		"negative":     "-5m",
		"not duration": "soon",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseLeadTimes(value); err == nil {
				t.Fatalf("expected error for %q", value)
			}
		})
	}

	if _, err := ParseLeadTimes("10m,10m"); !errors.Is(err, ErrOverlappingWindows) {
		t.Fatalf("expected ErrOverlappingWindows, got %v", err)
	}
}

func TestLeadTime_Window(t *testing.T) {
	now := at(8, 50)
	w := LeadTime(10 * time.Minute).Window(now)
	if !w.Start.Equal(at(9, 0)) || !w.End.Equal(at(9, 1)) {
		t.Fatalf("unexpected window %s", w)
	}
	if !w.Contains(at(9, 0)) || w.Contains(at(9, 1)) {
		t.Fatal("window must be half-open")
	}
}

func TestDefaultLeadTimeWindowsAreDisjoint(t *testing.T) {
	now := at(6, 0)
	leads, err := DefaultLeadTimes.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range leads {
		for j := i + 1; j < len(leads); j++ {
			if leads[i].Window(now).Overlaps(leads[j].Window(now)) {
				t.Fatalf("windows %s and %s overlap", leads[i].Key(), leads[j].Key())
			}
		}
	}
}

func TestLeadTime_Humanize(t *testing.T) {
	cases := map[LeadTime]string{
		LeadTime(180 * time.Minute): "3 hours",
		LeadTime(60 * time.Minute):  "1 hour",
		LeadTime(10 * time.Minute):  "10 minutes",
		LeadTime(time.Minute):       "1 minute",
		LeadTime(90 * time.Minute):  "90 minutes",
	}
	for lead, want := range cases {
		if got := lead.Humanize(); got != want {
			t.Fatalf("Humanize(%s) = %q, want %q", lead.Key(), got, want)
		}
	}
}
