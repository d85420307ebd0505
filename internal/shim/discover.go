package shim

import (
	"context"
	"fmt"
	"time"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Discovery defaults.
const (
	DefaultMaxHops  = 10
	DefaultAttempts = 3
	DefaultBackoff  = 500 * time.Millisecond
)

// DiscoverOptions bounds the API search.
type DiscoverOptions struct {
	// Prefer lists versions in lookup order for each window.
	// Defaults to 2004 then 1.2.
	Prefer []scorm.Version
	// MaxHops bounds the parent walk from the starting window.
	MaxHops int
	// Attempts is the number of full searches before giving up.
	Attempts int
	// Backoff is multiplied by the attempt number between searches.
	Backoff time.Duration
	// SkipOpener disables the search through opener windows.
	SkipOpener bool
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o DiscoverOptions) withDefaults() DiscoverOptions {
	if len(o.Prefer) == 0 {
		o.Prefer = []scorm.Version{scorm.V2004, scorm.V12}
	}
	if o.MaxHops <= 0 {
		o.MaxHops = DefaultMaxHops
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	} else if o.Backoff == 0 {
		o.Backoff = DefaultBackoff
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// Discover looks for an LMS API starting at start: the window itself, then
// its parents up to MaxHops, then the opener of the start and top windows.
// Each window is checked for every preferred version before moving on.
// The search is repeated up to Attempts times with linear backoff.
func Discover(ctx context.Context, start Frame, opts DiscoverOptions) (API, scorm.Version, error) {
	opts = opts.withDefaults()

	for attempt := 1; ; attempt++ {
		if api, v, ok := searchOnce(start, opts); ok {
			return api, v, nil
		}
		if attempt >= opts.Attempts {
			break
		}
		if err := opts.Sleep(ctx, opts.Backoff*time.Duration(attempt)); err != nil {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%w after %d attempts", ErrAPINotFound, opts.Attempts)
}

func searchOnce(start Frame, opts DiscoverOptions) (API, scorm.Version, bool) {
	api, v, top, ok := walkParents(start, opts)
	if ok || opts.SkipOpener {
		return api, v, ok
	}

	for _, w := range []Frame{start, top} {
		if w == nil {
			continue
		}
		if opener, has := w.Opener(); has {
			if api, v, _, ok := walkParents(opener, opts); ok {
				return api, v, true
			}
		}
		if top == start {
			break
		}
	}
	return nil, "", false
}

// walkParents checks w and up to MaxHops ancestors. It also returns the
// last window it reached.
func walkParents(w Frame, opts DiscoverOptions) (API, scorm.Version, Frame, bool) {
	for hops := 0; ; hops++ {
		for _, v := range opts.Prefer {
			if api, ok := w.LookupAPI(v); ok && api != nil {
				return api, v, w, true
			}
		}
		if hops >= opts.MaxHops {
			return nil, "", w, false
		}
		parent, ok := w.Parent()
		if !ok || parent == nil {
			return nil, "", w, false
		}
		w = parent
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
