package shim

import (
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// maxTimespan12 is the largest CMITimespan SCORM 1.2 can express.
const maxTimespan12 = 9999*time.Hour + 59*time.Minute + 59*time.Second + 990*time.Millisecond

// FormatDuration renders d as a SCORM timespan: PT#H#M#S (seconds with up
// to two decimals) for 2004, HH:MM:SS.ss for 1.2. Negative durations are
// treated as zero.
func FormatDuration(v scorm.Version, d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if v == scorm.V12 && d > maxTimespan12 {
		d = maxTimespan12
	}

	cs := int64(d.Round(10*time.Millisecond) / (10 * time.Millisecond))
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	frac := cs % 100

	if v == scorm.V12 {
		return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, s, frac)
	}

	secs := fmt.Sprintf("%d", s)
	if frac != 0 {
		secs = strings.TrimSuffix(fmt.Sprintf("%d.%02d", s, frac), "0")
	}
	return fmt.Sprintf("PT%dH%dM%sS", h, m, secs)
}

// FormatTimestamp renders t as the 2004 time(second,10,0) type.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// formatClock renders t as a 1.2 CMITime (HH:MM:SS).
func formatClock(t time.Time) string {
	return t.Format("15:04:05")
}
