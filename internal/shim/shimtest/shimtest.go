// Package shimtest runs the rendered runtime script in an embedded
// JavaScript engine, against the in-memory LMS, without a browser.
//
// The engine exposes a window global with manual timers, a message and
// load event bus, and a stub content frame. Nothing runs until a test
// fires it.
package shimtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/alnah/go-doc2scorm/internal/cmi"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// prelude defines the browser surface the runtime and wrapper scripts
// touch. Timer callbacks are queued and only run through FireTimeouts and
// FireIntervals.
const prelude = `
var window = this;
var __timers = { next: 1, intervals: {}, timeouts: [] };
var __listeners = {};
window.setInterval = function (fn, ms) {
  var id = __timers.next++;
  __timers.intervals[id] = fn;
  return id;
};
window.clearInterval = function (id) { delete __timers.intervals[id]; };
window.setTimeout = function (fn, ms) {
  __timers.timeouts.push(fn);
  return __timers.next++;
};
window.clearTimeout = function () {};
window.addEventListener = function (type, fn) {
  (__listeners[type] = __listeners[type] || []).push(fn);
};
window.__frame = {
  contentWindow: { addEventListener: function () {} },
  contentDocument: null,
  addEventListener: function () {}
};
window.document = { getElementById: function () { return window.__frame; } };
function __fireTimeouts() {
  var n = 0;
  while (__timers.timeouts.length) {
    __timers.timeouts.shift()();
    n++;
  }
  return n;
}
function __fireIntervals() {
  var ids = Object.keys(__timers.intervals);
  for (var i = 0; i < ids.length; i++) {
    var fn = __timers.intervals[ids[i]];
    if (fn) { fn(); }
  }
  return ids.length;
}
function __intervals() { return Object.keys(__timers.intervals).length; }
function __dispatch(type, event) {
  var l = __listeners[type] || [];
  for (var i = 0; i < l.length; i++) { l[i](event || {}); }
  return l.length;
}
function __post(data) {
  return __dispatch('message', { source: window.__frame.contentWindow, data: data });
}
function __mount(depth, name, api) {
  var w = window;
  for (var i = 0; i < depth; i++) {
    var p = {};
    w.parent = p;
    w = p;
  }
  w[name] = api;
}
`

// Env is one engine with an LMS bound to it.
type Env struct {
	t   testing.TB
	VM  *goja.Runtime
	LMS *cmi.DataModel
	now time.Time
}

// New returns an engine whose clock starts at a fixed instant. The LMS is
// not reachable until Mount is called.
func New(t testing.TB, lms *cmi.DataModel) *Env {
	t.Helper()
	e := &Env{
		t:   t,
		VM:  goja.New(),
		LMS: lms,
		now: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
	}
	e.VM.SetTimeSource(func() time.Time { return e.now })
	e.Run(prelude)
	return e
}

// Advance moves the engine clock forward.
func (e *Env) Advance(d time.Duration) {
	e.now = e.now.Add(d)
}

// Mount exposes the LMS under its version's API name, depth parent
// windows above the script's window.
func (e *Env) Mount(depth int) {
	e.t.Helper()
	v := e.LMS.Version()
	var api any = e.LMS
	if v == scorm.V12 {
		api = &api12{lms: e.LMS}
	}
	mount, ok := goja.AssertFunction(e.VM.Get("__mount"))
	if !ok {
		e.t.Fatal("prelude missing __mount")
	}
	if _, err := mount(goja.Undefined(), e.VM.ToValue(depth), e.VM.ToValue(v.APIName()), e.VM.ToValue(api)); err != nil {
		e.t.Fatalf("mounting API: %v", err)
	}
}

// Run evaluates src and fails the test on a script error.
func (e *Env) Run(src string) goja.Value {
	e.t.Helper()
	v, err := e.VM.RunString(src)
	if err != nil {
		e.t.Fatalf("script error: %v", err)
	}
	return v
}

// Load evaluates a rendered script.
func (e *Env) Load(script []byte) {
	e.t.Helper()
	e.Run(string(script))
}

// Int evaluates src as an integer.
func (e *Env) Int(src string) int64 {
	e.t.Helper()
	return e.Run(src).ToInteger()
}

// Bool evaluates src as a boolean.
func (e *Env) Bool(src string) bool {
	e.t.Helper()
	return e.Run(src).ToBoolean()
}

// String evaluates src as a string.
func (e *Env) String(src string) string {
	e.t.Helper()
	return e.Run(src).String()
}

// FireTimeouts runs queued timeouts, including those they queue, and
// returns how many ran.
func (e *Env) FireTimeouts() int {
	e.t.Helper()
	return int(e.Int("__fireTimeouts()"))
}

// FireIntervals runs every registered interval once.
func (e *Env) FireIntervals() int {
	e.t.Helper()
	return int(e.Int("__fireIntervals()"))
}

// Intervals returns the number of registered intervals.
func (e *Env) Intervals() int {
	e.t.Helper()
	return int(e.Int("__intervals()"))
}

// Dispatch fires a window event with no payload, such as "load".
func (e *Env) Dispatch(event string) {
	e.t.Helper()
	e.Run(fmt.Sprintf("__dispatch(%q)", event))
}

// Post delivers a message from the content frame. data is a JavaScript
// object literal.
func (e *Env) Post(data string) {
	e.t.Helper()
	e.Run("__post(" + data + ")")
}

// Count returns how many LMS calls match method and element. An empty
// element matches any.
func (e *Env) Count(method, element string) int {
	n := 0
	for _, c := range e.LMS.Calls() {
		if c.Method == method && (element == "" || c.Element == element) {
			n++
		}
	}
	return n
}

// api12 exposes the LMS under the SCORM 1.2 method names.
type api12 struct{ lms *cmi.DataModel }

func (a *api12) LMSInitialize(p string) bool          { return a.lms.Initialize(p) }
func (a *api12) LMSFinish(p string) bool              { return a.lms.Terminate(p) }
func (a *api12) LMSGetValue(el string) string         { return a.lms.GetValue(el) }
func (a *api12) LMSSetValue(el, v string) bool        { return a.lms.SetValue(el, v) }
func (a *api12) LMSCommit(p string) bool              { return a.lms.Commit(p) }
func (a *api12) LMSGetLastError() string              { return a.lms.GetLastError() }
func (a *api12) LMSGetErrorString(code string) string { return a.lms.GetErrorString(code) }
func (a *api12) LMSGetDiagnostic(code string) string  { return a.lms.GetDiagnostic(code) }
