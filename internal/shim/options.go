package shim

import (
	"fmt"
	"time"
)

// Runtime defaults shared by the Go session and the rendered script.
const (
	DefaultCompletionThreshold = 0.9
	DefaultProgressCap         = 0.99
	DefaultScrollComplete      = 90
	DefaultDwellComplete       = 60 * time.Second
	DefaultDwellScroll         = 50
	DefaultDwellInterval       = 3 * time.Second
	DefaultSessionTimeInterval = 30 * time.Second
	DefaultCommitInterval      = 3 * time.Minute
)

// Options tunes tracking. Zero fields take the defaults above.
type Options struct {
	// CompletionThreshold is the progress measure at which the content
	// is marked completed.
	CompletionThreshold float64
	// ProgressCap bounds the progress reported from scrolling alone.
	ProgressCap float64
	// ScrollComplete is the scroll percentage that completes the content.
	ScrollComplete int
	// DwellComplete and DwellScroll complete the content once the learner
	// stayed long enough and scrolled at least DwellScroll percent.
	DwellComplete time.Duration
	DwellScroll   int
	// DwellInterval is the wrapper's dwell timer period.
	DwellInterval time.Duration
	// SessionTimeInterval is the period of session time reports.
	SessionTimeInterval time.Duration
	// CommitInterval is the period of forced commits.
	CommitInterval time.Duration
	// Debug makes the rendered script log every transition.
	Debug bool

	Discover DiscoverOptions
}

// DefaultOptions returns the defaults.
func DefaultOptions() Options {
	return Options{}.WithDefaults()
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.CompletionThreshold <= 0 {
		o.CompletionThreshold = DefaultCompletionThreshold
	}
	if o.ProgressCap <= 0 {
		o.ProgressCap = DefaultProgressCap
	}
	if o.ScrollComplete <= 0 {
		o.ScrollComplete = DefaultScrollComplete
	}
	if o.DwellComplete <= 0 {
		o.DwellComplete = DefaultDwellComplete
	}
	if o.DwellScroll <= 0 {
		o.DwellScroll = DefaultDwellScroll
	}
	if o.DwellInterval <= 0 {
		o.DwellInterval = DefaultDwellInterval
	}
	if o.SessionTimeInterval <= 0 {
		o.SessionTimeInterval = DefaultSessionTimeInterval
	}
	if o.CommitInterval <= 0 {
		o.CommitInterval = DefaultCommitInterval
	}
	o.Discover = o.Discover.withDefaults()
	return o
}

// Validate rejects out-of-range values after defaults are applied.
func (o Options) Validate() error {
	o = o.WithDefaults()
	if o.CompletionThreshold > 1 {
		return fmt.Errorf("completion threshold %.2f must be in (0, 1]", o.CompletionThreshold)
	}
	if o.ProgressCap > 1 {
		return fmt.Errorf("progress cap %.2f must be in (0, 1]", o.ProgressCap)
	}
	if o.ScrollComplete > 100 || o.DwellScroll > 100 {
		return fmt.Errorf("scroll percentages must be in (0, 100]")
	}
	return nil
}
