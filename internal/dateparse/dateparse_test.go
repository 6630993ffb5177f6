package dateparse

import (
	"testing"
	"time"
)

func TestParseFrom(t *testing.T) {
	now := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"exact date", "2026-04-01", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"exact datetime", "2026-04-01 09:15", time.Date(2026, 4, 1, 9, 15, 0, 0, time.UTC)},
		{"iso datetime", "2026-04-01T09:15", time.Date(2026, 4, 1, 9, 15, 0, 0, time.UTC)},
		{"today", "today", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"tomorrow", "tomorrow", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"yesterday", "yesterday", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"case insensitive", "Tomorrow", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrom(tt.input, now)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parse %q = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFromNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)

	got, err := ParseFrom("next friday", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Weekday() != time.Friday || !got.After(now) {
		t.Errorf("next friday = %v", got)
	}
}

func TestParseFromErrors(t *testing.T) {
	now := time.Now()

	for _, input := range []string{"", "   ", "not a date at all xyzzy"} {
		if _, err := ParseFrom(input, now); err == nil {
			t.Errorf("parse %q: expected error", input)
		}
	}
}
