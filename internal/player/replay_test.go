package player

// Notes:
// - Replay is fed call logs shaped like what the launcher stub posts.
// - Simulate uses a fixed start time so session time is deterministic.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alnah/go-doc2scorm/internal/cmi"
	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

// ---------------------------------------------------------------------------
// TestReplay - Recorded call logs
// ---------------------------------------------------------------------------

func TestReplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		version    scorm.Version
		calls      []cmi.Call
		passed     bool
		rejected   int
		completion string
		location   string
	}{
		{
			name:    "2004 complete attempt",
			version: scorm.V2004,
			calls: []cmi.Call{
				{Method: "Initialize"},
				{Method: "SetValue", Element: "cmi.completion_status", Value: "incomplete"},
				{Method: "SetValue", Element: "cmi.location", Value: "2"},
				{Method: "Commit"},
				{Method: "SetValue", Element: "cmi.completion_status", Value: "completed"},
				{Method: "SetValue", Element: "cmi.exit", Value: "normal"},
				{Method: "Terminate"},
			},
			passed:     true,
			completion: "completed",
			location:   "2",
		},
		{
			name:    "1.2 complete attempt",
			version: scorm.V12,
			calls: []cmi.Call{
				{Method: "LMSInitialize"},
				{Method: "LMSSetValue", Element: "cmi.core.lesson_status", Value: "completed"},
				{Method: "LMSSetValue", Element: "cmi.core.lesson_location", Value: "4"},
				{Method: "LMSGetValue", Element: "cmi.core.lesson_status"},
				{Method: "LMSFinish"},
			},
			passed:     true,
			completion: "completed",
			location:   "4",
		},
		{
			name:    "never terminated",
			version: scorm.V2004,
			calls: []cmi.Call{
				{Method: "Initialize"},
				{Method: "SetValue", Element: "cmi.progress_measure", Value: "0.5"},
			},
			completion: "unknown",
		},
		{
			name:    "invalid vocabulary rejected",
			version: scorm.V2004,
			calls: []cmi.Call{
				{Method: "Initialize"},
				{Method: "SetValue", Element: "cmi.completion_status", Value: "done"},
				{Method: "Terminate"},
			},
			rejected:   1,
			completion: "unknown",
		},
		{
			name:    "2004 element on 1.2",
			version: scorm.V12,
			calls: []cmi.Call{
				{Method: "LMSInitialize"},
				{Method: "LMSSetValue", Element: "cmi.completion_status", Value: "completed"},
				{Method: "LMSFinish"},
			},
			rejected:   1,
			completion: "not attempted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := Replay(tt.version, tt.calls, nil)
			if r.Mode != ModeBrowser {
				t.Errorf("Mode = %q, want %q", r.Mode, ModeBrowser)
			}
			if got := r.Passed(); got != tt.passed {
				t.Errorf("Passed() = %v, want %v (rejected %+v)", got, tt.passed, r.Rejected)
			}
			if len(r.Rejected) != tt.rejected {
				t.Errorf("Rejected = %d calls, want %d", len(r.Rejected), tt.rejected)
			}
			if r.Snapshot.Completion != tt.completion {
				t.Errorf("Completion = %q, want %q", r.Snapshot.Completion, tt.completion)
			}
			if r.Snapshot.Location != tt.location {
				t.Errorf("Location = %q, want %q", r.Snapshot.Location, tt.location)
			}
			if len(r.Calls) != len(tt.calls) {
				t.Errorf("Calls = %d, want %d", len(r.Calls), len(tt.calls))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSimulate - Scripted attempt through the session model
// ---------------------------------------------------------------------------

func TestSimulate(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		version     scorm.Version
		exit        string
		sessionTime string
		progress    string
	}{
		{scorm.V2004, "normal", "PT0H0M20S", "1"},
		{scorm.V12, "", "00:00:20.00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			t.Parallel()

			r, err := Simulate(context.Background(), tt.version, SimulateOptions{
				Runtime: shim.Options{DwellInterval: 5 * time.Second},
				Steps:   4,
				Now:     func() time.Time { return start },
			})
			if err != nil {
				t.Fatalf("Simulate() unexpected error: %v", err)
			}
			if !r.Passed() {
				t.Fatalf("Passed() = false, rejected %+v", r.Rejected)
			}
			s := r.Snapshot
			if r.Mode != ModeSimulate {
				t.Errorf("Mode = %q", r.Mode)
			}
			if s.Completion != "completed" {
				t.Errorf("Completion = %q, want completed", s.Completion)
			}
			if s.Exit != tt.exit {
				t.Errorf("Exit = %q, want %q", s.Exit, tt.exit)
			}
			if s.Location != "4" {
				t.Errorf("Location = %q, want 4", s.Location)
			}
			if s.SessionTime != tt.sessionTime {
				t.Errorf("SessionTime = %q, want %q", s.SessionTime, tt.sessionTime)
			}
			if s.Progress != tt.progress {
				t.Errorf("Progress = %q, want %q", s.Progress, tt.progress)
			}
			if s.Commits == 0 {
				t.Error("Commits = 0, want at least one")
			}
		})
	}
}

func TestSimulate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Simulate(ctx, scorm.V2004, SimulateOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Simulate() error = %v, want context.Canceled", err)
	}
}

func TestSimulate_DefaultSteps(t *testing.T) {
	t.Parallel()

	r, err := Simulate(context.Background(), scorm.V2004, SimulateOptions{})
	if err != nil {
		t.Fatalf("Simulate() unexpected error: %v", err)
	}
	if r.Snapshot.Location != "4" {
		t.Errorf("Location = %q, want 4 after default steps", r.Snapshot.Location)
	}
}
