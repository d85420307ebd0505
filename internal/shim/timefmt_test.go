package shim

import (
	"testing"
	"time"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// ---------------------------------------------------------------------------
// TestFormatDuration - SCORM timespans per version
// ---------------------------------------------------------------------------

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version scorm.Version
		in      time.Duration
		want    string
	}{
		{"2004 zero", scorm.V2004, 0, "PT0H0M0S"},
		{"2004 whole seconds", scorm.V2004, 35 * time.Second, "PT0H0M35S"},
		{"2004 one decimal", scorm.V2004, time.Hour + 2*time.Minute + 3500*time.Millisecond, "PT1H2M3.5S"},
		{"2004 two decimals", scorm.V2004, 61250 * time.Millisecond, "PT0H1M1.25S"},
		{"2004 rounds to centiseconds", scorm.V2004, 1999 * time.Millisecond, "PT0H0M2S"},
		{"2004 negative", scorm.V2004, -time.Second, "PT0H0M0S"},
		{"2004 beyond a day", scorm.V2004, 26 * time.Hour, "PT26H0M0S"},
		{"1.2 zero", scorm.V12, 0, "00:00:00.00"},
		{"1.2 fraction", scorm.V12, 90500 * time.Millisecond, "00:01:30.50"},
		{"1.2 hours", scorm.V12, 12*time.Hour + 5*time.Second, "12:00:05.00"},
		{"1.2 capped", scorm.V12, 20000 * time.Hour, "9999:59:59.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatDuration(tt.version, tt.in); got != tt.want {
				t.Errorf("FormatDuration(%s, %v) = %q, want %q", tt.version, tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	if got := FormatTimestamp(ts); got != "2024-01-02T03:04:05" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
	if got := formatClock(ts); got != "03:04:05" {
		t.Errorf("formatClock() = %q", got)
	}
}
