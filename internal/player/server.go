// Package player serves an extracted SCORM package next to a recording
// LMS stub so the package can be played in a real browser.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/alnah/go-doc2scorm/internal/cmi"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Sentinel errors for playback.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrNoCalls        = errors.New("content made no LMS calls")
)

// Route paths.
const (
	PackagePrefix = "/package/"
	CallsPath     = "/api/calls"
	HealthPath    = "/healthz"
)

// maxCallBody bounds one recorded call.
const maxCallBody = 64 << 10

// RecordedCall is one API call reported by the stub, in page order.
type RecordedCall struct {
	Seq int `json:"seq"`
	cmi.Call
}

// Recorder collects calls posted by the stub. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []RecordedCall
}

// Add stores c.
func (r *Recorder) Add(c RecordedCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns the recorded calls ordered by sequence number. Beacons
// may arrive out of order.
func (r *Recorder) Calls() []cmi.Call {
	r.mu.Lock()
	sorted := slices.Clone(r.calls)
	r.mu.Unlock()

	slices.SortStableFunc(sorted, func(a, b RecordedCall) int { return a.Seq - b.Seq })
	out := make([]cmi.Call, len(sorted))
	for i, c := range sorted {
		out[i] = c.Call
	}
	return out
}

// Terminated reports whether a Terminate or LMSFinish call was recorded.
func (r *Recorder) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.Method == "Terminate" || c.Method == "LMSFinish" {
			return true
		}
	}
	return false
}

// Server serves the launcher page, the package files and the call log.
type Server struct {
	root     string
	version  scorm.Version
	rec      *Recorder
	logger   *log.Logger
	launcher []byte

	httpServer *http.Server
	listener   net.Listener
}

// NewServer prepares a server for the package extracted at root.
func NewServer(root string, v scorm.Version, logger *log.Logger) (*Server, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", scorm.ErrInvalidVersion, v)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	page, err := renderLauncher(v)
	if err != nil {
		return nil, err
	}
	return &Server{root: root, version: v, rec: &Recorder{}, logger: logger, launcher: page}, nil
}

// Recorder returns the call recorder.
func (s *Server) Recorder() *Recorder {
	return s.rec
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/", s.handleLauncher)
	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post(CallsPath, s.handleRecord)
	r.Get(CallsPath, s.handleList)
	// FileServer redirects .../index.html to the directory, so the entry
	// page the launcher frames is served directly.
	r.Get(PackagePrefix+scorm.EntryFile, s.handleEntry)
	r.Handle(PackagePrefix+"*", http.StripPrefix(PackagePrefix, http.FileServer(http.Dir(s.root))))
	return r
}

// Start listens on a random loopback port and serves in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	s.listener = l
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("player server stopped", "err", err)
		}
	}()
	s.logger.Debug("player listening", "url", s.URL())
	return nil
}

// URL returns the launcher URL.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLauncher(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.launcher)
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	root, err := os.OpenRoot(s.root)
	if err != nil {
		http.Error(w, "package unavailable", http.StatusInternalServerError)
		return
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(scorm.EntryFile)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, scorm.EntryFile, info.ModTime(), f)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallBody+1))
	if err != nil || len(body) > maxCallBody {
		http.Error(w, "unreadable call", http.StatusBadRequest)
		return
	}
	var c RecordedCall
	if err := json.Unmarshal(body, &c); err != nil || c.Method == "" {
		http.Error(w, "malformed call", http.StatusBadRequest)
		return
	}
	s.rec.Add(c)
	s.logger.Debug("stub call", "seq", c.Seq, "method", c.Method, "element", c.Element, "value", c.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.rec.Calls())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// launcherTemplate hosts the package in a frame whose parent exposes a
// recording API object. Values written are echoed back on read so the
// content sees a consistent LMS; the Go data model judges the calls later.
const launcherTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>doc2scorm player</title>
<script>
(function () {
  var version = {{.Version}};
  var seq = 0;
  window.__lmsVersion = version;
  var store = {};
  window.__lmsCalls = [];

  function record(method, element, value, result) {
    var call = {seq: seq++, method: method, element: element || "", value: value || "", result: String(result)};
    window.__lmsCalls.push(call);
    try { navigator.sendBeacon({{.CallsPath}}, JSON.stringify(call)); } catch (e) {}
    return result;
  }
  function get(el) { return Object.prototype.hasOwnProperty.call(store, el) ? store[el] : ""; }
  function set(el, v) { store[el] = String(v); return "true"; }
{{if eq .Version "1.2"}}
  window.API = {
    LMSInitialize: function (p) { return record("LMSInitialize", "", p, "true"); },
    LMSFinish: function (p) { return record("LMSFinish", "", p, "true"); },
    LMSGetValue: function (el) { return record("LMSGetValue", el, "", get(el)); },
    LMSSetValue: function (el, v) { return record("LMSSetValue", el, v, set(el, v)); },
    LMSCommit: function (p) { return record("LMSCommit", "", p, "true"); },
    LMSGetLastError: function () { return "0"; },
    LMSGetErrorString: function () { return ""; },
    LMSGetDiagnostic: function () { return ""; }
  };
{{else}}
  window.API_1484_11 = {
    Initialize: function (p) { return record("Initialize", "", p, "true"); },
    Terminate: function (p) { return record("Terminate", "", p, "true"); },
    GetValue: function (el) { return record("GetValue", el, "", get(el)); },
    SetValue: function (el, v) { return record("SetValue", el, v, set(el, v)); },
    Commit: function (p) { return record("Commit", "", p, "true"); },
    GetLastError: function () { return "0"; },
    GetErrorString: function () { return ""; },
    GetDiagnostic: function () { return ""; }
  };
{{end}}
})();
</script>
<style>html, body { margin: 0; height: 100%; } iframe { border: 0; width: 100%; height: 100%; }</style>
</head>
<body>
<iframe id="sco" src="{{.Entry}}"></iframe>
</body>
</html>
`

var launcherTmpl = template.Must(template.New("launcher").Parse(launcherTemplate))

func renderLauncher(v scorm.Version) ([]byte, error) {
	var buf bytes.Buffer
	err := launcherTmpl.Execute(&buf, struct {
		Version   string
		CallsPath string
		Entry     string
	}{v.String(), CallsPath, PackagePrefix + scorm.EntryFile})
	if err != nil {
		return nil, fmt.Errorf("rendering launcher: %w", err)
	}
	return buf.Bytes(), nil
}
