package pipeline

// Notes:
// - The entry page's inline script runs in the embedded engine from
//   shimtest, after the rendered runtime, exactly as the browser loads them.
// - Every interval shares one manual trigger, so a dwell tick also fires
//   the runtime's session time and commit timers.

import (
	"bytes"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/go-doc2scorm/internal/cmi"
	"github.com/alnah/go-doc2scorm/internal/manifest"
	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim/shimtest"
)

func loadEntryPage(t *testing.T, v scorm.Version) *shimtest.Env {
	t.Helper()
	w := &Wrapper{}
	index, script, err := w.Build(manifest.Descriptor{Title: "Course", Version: v, CourseID: "c1"}, "lesson.html", KindHTML)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(index))
	if err != nil {
		t.Fatalf("parsing entry page: %v", err)
	}
	inline := doc.Find("script:not([src])").Text()
	if inline == "" {
		t.Fatal("entry page has no inline script")
	}

	env := shimtest.New(t, cmi.New(v))
	env.Mount(0)
	env.Load(script)
	env.Run(inline)
	env.Dispatch("load")
	return env
}

// ---------------------------------------------------------------------------
// TestEntryPage_Progress - Progress writes follow scroll changes only
// ---------------------------------------------------------------------------

func TestEntryPage_ProgressOnlyOnChange(t *testing.T) {
	t.Parallel()

	env := loadEntryPage(t, scorm.V2004)
	writes := func() int { return env.Count("SetValue", "cmi.progress_measure") }

	if got := writes(); got != 1 {
		t.Fatalf("progress writes after load = %d, want 1", got)
	}
	for range 5 {
		env.Advance(3 * time.Second)
		env.FireIntervals()
	}
	if got := writes(); got != 1 {
		t.Errorf("progress writes after idle ticks = %d, want 1", got)
	}

	env.Post(`{ type: 'updateProgress', scrollPercent: 40 }`)
	env.Post(`{ type: 'updateProgress', scrollPercent: 40.2 }`)
	if got := writes(); got != 2 {
		t.Errorf("progress writes after 40%% then 40.2%% = %d, want 2", got)
	}
	env.Post(`{ type: 'updateProgress', scrollPercent: 55 }`)
	if got := writes(); got != 3 {
		t.Errorf("progress writes after 55%% = %d, want 3", got)
	}
	if got, _ := env.LMS.Value("cmi.progress_measure"); got != "0.55" {
		t.Errorf("progress_measure = %q, want 0.55", got)
	}
}

func TestEntryPage_DwellCompletes(t *testing.T) {
	t.Parallel()

	env := loadEntryPage(t, scorm.V2004)
	env.Post(`{ type: 'updateProgress', scrollPercent: 60 }`)
	env.FireIntervals()
	if got, _ := env.LMS.Value("cmi.completion_status"); got != "incomplete" {
		t.Fatalf("completion before dwell = %q, want incomplete", got)
	}

	env.Advance(61 * time.Second)
	env.FireIntervals()
	if got, _ := env.LMS.Value("cmi.completion_status"); got != "completed" {
		t.Errorf("completion after dwell = %q, want completed", got)
	}
}

// ---------------------------------------------------------------------------
// TestEntryPage_Messages - Content messages reach the session
// ---------------------------------------------------------------------------

func TestEntryPage_Messages(t *testing.T) {
	t.Parallel()

	env := loadEntryPage(t, scorm.V2004)
	env.Post(`{ type: 'pageChanged', currentPage: 2, pageTitle: 'Hazards' }`)
	env.Post(`{ type: 'scorm-objective', objective: { id: 'obj-1', completion: 'completed', score: 90 } }`)
	env.Post(`{ type: 'scorm-comment', comment: 'clear', location: 'page 2' }`)

	if got, _ := env.LMS.Value("cmi.location"); got != "2" {
		t.Errorf("location = %q, want 2", got)
	}
	snap := env.LMS.Snapshot()
	if len(snap.Interactions) != 1 || snap.Interactions[0]["id"] != "page_view_2" || snap.Interactions[0]["description"] != "Viewed page: Hazards" {
		t.Errorf("page view interaction = %v", snap.Interactions)
	}
	if len(snap.Objectives) != 1 || snap.Objectives[0]["completion_status"] != "completed" || snap.Objectives[0]["score.raw"] != "90" {
		t.Errorf("objective = %v", snap.Objectives)
	}
	if got, _ := env.LMS.Value("cmi.comments_from_learner.0.comment"); got != "clear" {
		t.Errorf("comment = %q, want clear", got)
	}
}

func TestEntryPage_TerminatesOnce(t *testing.T) {
	t.Parallel()

	env := loadEntryPage(t, scorm.V12)
	env.Dispatch("pagehide")
	env.Dispatch("unload")
	env.Dispatch("beforeunload")

	if got := env.Count("Terminate", ""); got != 1 {
		t.Errorf("Terminate calls = %d, want 1", got)
	}
	if got, _ := env.LMS.Value("cmi.core.session_time"); got != "00:00:00.00" {
		t.Errorf("session_time = %q, want 00:00:00.00", got)
	}
}
