package timeframe

import (
	"testing"
	"time"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name      string
		label     string
		lastRunAt *time.Time
		want      bool
	}{
		{"never run", "5m", nil, true},
		{"4m ago not due", "5m", ago(4 * time.Minute), false},
		{"exactly 5m due", "5m", ago(5 * time.Minute), true},
		{"6m ago due", "5m", ago(6 * time.Minute), true},
		{"1m boundary", "1m", ago(time.Minute), true},
		{"59m for 1h", "1h", ago(59 * time.Minute), false},
		{"unknown label never due", "7m", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(tt.label, now, tt.lastRunAt); got != tt.want {
				t.Fatalf("IsDue(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if d, ok := Duration("15m"); !ok || d != 15*time.Minute {
		t.Fatalf("Duration(15m) = %v, %v", d, ok)
	}
	if _, ok := Duration("42s"); ok {
		t.Fatal("expected unknown timeframe to be rejected")
	}
}
