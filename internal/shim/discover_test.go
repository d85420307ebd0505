package shim

// Notes:
// - Windows are modeled as a linked list of fake frames; a frame can
//   publish its API only from a given search attempt on, which simulates
//   an LMS that attaches its API late.
// - Sleep is replaced so the backoff schedule is observed, not waited for.

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

type stubAPI struct{}

func (stubAPI) Initialize(string) bool       { return true }
func (stubAPI) Terminate(string) bool        { return true }
func (stubAPI) GetValue(string) string       { return "" }
func (stubAPI) SetValue(string, string) bool { return true }
func (stubAPI) Commit(string) bool           { return true }
func (stubAPI) GetLastError() string         { return "0" }
func (stubAPI) GetErrorString(string) string { return "" }
func (stubAPI) GetDiagnostic(string) string  { return "" }

type fakeWindow struct {
	apis    map[scorm.Version]API
	parent  *fakeWindow
	opener  *fakeWindow
	from    int // API visible from this lookup count on
	lookups *int
}

func (w *fakeWindow) LookupAPI(v scorm.Version) (API, bool) {
	if w.lookups != nil {
		*w.lookups++
		if *w.lookups < w.from {
			return nil, false
		}
	}
	api, ok := w.apis[v]
	return api, ok
}

func (w *fakeWindow) Parent() (Frame, bool) {
	if w.parent == nil {
		return nil, false
	}
	return w.parent, true
}

func (w *fakeWindow) Opener() (Frame, bool) {
	if w.opener == nil {
		return nil, false
	}
	return w.opener, true
}

// chain builds n windows where chain[i].parent is chain[i+1].
func chain(n int) []*fakeWindow {
	ws := make([]*fakeWindow, n)
	for i := range ws {
		ws[i] = &fakeWindow{}
	}
	for i := 0; i < n-1; i++ {
		ws[i].parent = ws[i+1]
	}
	return ws
}

func noSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

// ---------------------------------------------------------------------------
// TestDiscover - Parent walk, preference order, opener
// ---------------------------------------------------------------------------

func TestDiscover_FindsInAncestors(t *testing.T) {
	t.Parallel()

	api := stubAPI{}
	tests := []struct {
		name    string
		setup   func() *fakeWindow
		want    scorm.Version
		wantErr bool
	}{
		{
			name: "own window",
			setup: func() *fakeWindow {
				return &fakeWindow{apis: map[scorm.Version]API{scorm.V12: api}}
			},
			want: scorm.V12,
		},
		{
			name: "grandparent",
			setup: func() *fakeWindow {
				ws := chain(3)
				ws[2].apis = map[scorm.Version]API{scorm.V2004: api}
				return ws[0]
			},
			want: scorm.V2004,
		},
		{
			name: "2004 preferred on the same window",
			setup: func() *fakeWindow {
				return &fakeWindow{apis: map[scorm.Version]API{scorm.V12: api, scorm.V2004: api}}
			},
			want: scorm.V2004,
		},
		{
			name: "closer window wins over preference",
			setup: func() *fakeWindow {
				ws := chain(2)
				ws[0].apis = map[scorm.Version]API{scorm.V12: api}
				ws[1].apis = map[scorm.Version]API{scorm.V2004: api}
				return ws[0]
			},
			want: scorm.V12,
		},
		{
			name: "exactly MaxHops away",
			setup: func() *fakeWindow {
				ws := chain(DefaultMaxHops + 1)
				ws[DefaultMaxHops].apis = map[scorm.Version]API{scorm.V12: api}
				return ws[0]
			},
			want: scorm.V12,
		},
		{
			name: "beyond MaxHops",
			setup: func() *fakeWindow {
				ws := chain(DefaultMaxHops + 2)
				ws[DefaultMaxHops+1].apis = map[scorm.Version]API{scorm.V12: api}
				return ws[0]
			},
			wantErr: true,
		},
		{
			name: "opener of the top window",
			setup: func() *fakeWindow {
				ws := chain(2)
				opener := &fakeWindow{apis: map[scorm.Version]API{scorm.V2004: api}}
				ws[1].opener = opener
				return ws[0]
			},
			want: scorm.V2004,
		},
		{
			name: "opener chain parent",
			setup: func() *fakeWindow {
				lms := chain(2)
				lms[1].apis = map[scorm.Version]API{scorm.V12: api}
				return &fakeWindow{opener: lms[0]}
			},
			want: scorm.V12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var sleeps []time.Duration
			got, v, err := Discover(context.Background(), tt.setup(), DiscoverOptions{Sleep: noSleep(&sleeps)})
			if tt.wantErr {
				if !errors.Is(err, ErrAPINotFound) {
					t.Errorf("Discover() error = %v, want ErrAPINotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Discover() unexpected error: %v", err)
			}
			if got == nil || v != tt.want {
				t.Errorf("Discover() = %v, %q, want version %q", got, v, tt.want)
			}
		})
	}
}

func TestDiscover_SkipOpener(t *testing.T) {
	t.Parallel()

	w := &fakeWindow{opener: &fakeWindow{apis: map[scorm.Version]API{scorm.V12: stubAPI{}}}}
	var sleeps []time.Duration
	_, _, err := Discover(context.Background(), w, DiscoverOptions{SkipOpener: true, Sleep: noSleep(&sleeps)})
	if !errors.Is(err, ErrAPINotFound) {
		t.Errorf("Discover() error = %v, want ErrAPINotFound", err)
	}
}

// ---------------------------------------------------------------------------
// TestDiscover - Retry schedule
// ---------------------------------------------------------------------------

func TestDiscover_RetryBackoff(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	_, _, err := Discover(context.Background(), &fakeWindow{}, DiscoverOptions{Sleep: noSleep(&sleeps)})
	if !errors.Is(err, ErrAPINotFound) {
		t.Fatalf("Discover() error = %v, want ErrAPINotFound", err)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if !reflect.DeepEqual(sleeps, want) {
		t.Errorf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestDiscover_LateAPI(t *testing.T) {
	t.Parallel()

	lookups := 0
	// Two versions are checked per attempt: visible from the third lookup.
	w := &fakeWindow{
		apis:    map[scorm.Version]API{scorm.V2004: stubAPI{}},
		from:    3,
		lookups: &lookups,
	}
	var sleeps []time.Duration
	_, v, err := Discover(context.Background(), w, DiscoverOptions{SkipOpener: true, Sleep: noSleep(&sleeps)})
	if err != nil {
		t.Fatalf("Discover() unexpected error: %v", err)
	}
	if v != scorm.V2004 || len(sleeps) != 1 {
		t.Errorf("Discover() version = %q after %d sleeps, want 2004 after 1", v, len(sleeps))
	}
}

func TestDiscover_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Discover(ctx, &fakeWindow{}, DiscoverOptions{Backoff: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Discover() error = %v, want context.Canceled", err)
	}
}
