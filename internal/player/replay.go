package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/cmi"
	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

// Report is the outcome of playing a package against the data model.
type Report struct {
	Version  scorm.Version `json:"version"`
	Mode     string        `json:"mode"`
	Calls    []cmi.Call    `json:"calls"`
	Snapshot cmi.Snapshot  `json:"snapshot"`
	// Rejected lists the calls the data model answered with an error.
	Rejected []cmi.Call `json:"rejected,omitempty"`
}

// Playback modes.
const (
	ModeBrowser  = "browser"
	ModeSimulate = "simulate"
)

// Passed reports whether the attempt was opened, closed and every call
// accepted.
func (r *Report) Passed() bool {
	return r.Snapshot.Initialized && r.Snapshot.Terminated && len(r.Rejected) == 0
}

// Replay applies recorded calls to a fresh data model. Reads and error
// queries are replayed too so the log shows what a conforming LMS returns.
func Replay(v scorm.Version, calls []cmi.Call, logger *log.Logger) *Report {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	dm := cmi.New(v, cmi.WithLogger(logger))
	for _, c := range calls {
		dm.Apply(c)
	}
	return newReport(v, ModeBrowser, dm)
}

func newReport(v scorm.Version, mode string, dm *cmi.DataModel) *Report {
	r := &Report{Version: v, Mode: mode, Calls: dm.Calls(), Snapshot: dm.Snapshot()}
	for _, c := range r.Calls {
		if c.Error != cmi.NoError.String() {
			r.Rejected = append(r.Rejected, c)
		}
	}
	return r
}

// Verify serves the package extracted at root, plays it in b and replays
// the recorded calls against the data model.
func Verify(ctx context.Context, b *Browser, root string, v scorm.Version, dwell time.Duration, logger *log.Logger) (report *Report, err error) {
	srv, err := NewServer(root, v, logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, srv.Close(shutdownCtx))
	}()

	if err := b.Play(ctx, srv.URL(), dwell, srv.Recorder()); err != nil {
		return nil, err
	}
	calls := srv.Recorder().Calls()
	if len(calls) == 0 {
		return nil, ErrNoCalls
	}
	return Replay(v, calls, logger), nil
}

// SimulateOptions drives a scripted attempt.
type SimulateOptions struct {
	Runtime shim.Options
	// Steps is the number of progress updates before completion.
	Steps  int
	Logger *log.Logger
	// Now replaces the wall clock; each step advances it by the dwell
	// interval.
	Now func() time.Time
}

// Simulate runs the Go session model against the data model the way the
// packaged script does for a learner who scrolls through the content:
// initialize, report rising progress, complete, terminate.
func Simulate(ctx context.Context, v scorm.Version, opts SimulateOptions) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = 4
	}
	rt := opts.Runtime.WithDefaults()
	clock := newStepClock(opts.Now)

	dm := cmi.New(v, cmi.WithLogger(logger))
	sess := shim.NewSession(dm, v, shim.WithLogger(logger), shim.WithOptions(rt), shim.WithClock(clock.now))
	if err := sess.Initialize(); err != nil {
		return newReport(v, ModeSimulate, dm), fmt.Errorf("initializing: %w", err)
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clock.advance(rt.DwellInterval)
		progress := float64(i) / float64(steps+1)
		if err := sess.SetProgressMeasure(progress); err != nil {
			logger.Warn("progress rejected", "err", err)
		}
		if err := sess.SetLocation(fmt.Sprint(i)); err != nil {
			logger.Warn("location rejected", "err", err)
		}
		if err := sess.Tick(clock.now()); err != nil {
			logger.Warn("periodic flush rejected", "err", err)
		}
	}
	if err := sess.Complete(); err != nil {
		logger.Warn("completion rejected", "err", err)
	}
	if err := sess.Terminate(); err != nil {
		return newReport(v, ModeSimulate, dm), fmt.Errorf("terminating: %w", err)
	}
	return newReport(v, ModeSimulate, dm), nil
}

// stepClock is a manual clock starting at a fixed or given time.
type stepClock struct {
	t time.Time
}

func newStepClock(now func() time.Time) *stepClock {
	start := time.Now()
	if now != nil {
		start = now()
	}
	return &stepClock{t: start}
}

func (c *stepClock) now() time.Time           { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }
