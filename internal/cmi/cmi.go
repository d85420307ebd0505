// Package cmi implements an in-memory LMS: the SCORM run-time API and its
// CMI data model for SCORM 1.2 and 2004, with the standard error codes.
// It backs the runtime tests and replays the calls recorded while
// verifying a package in a browser.
package cmi

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

type lmsState int

const (
	notInitialized lmsState = iota
	running
	terminated
)

// Call is one API invocation as seen by the LMS.
type Call struct {
	Method  string `json:"method"`
	Element string `json:"element,omitempty"`
	Value   string `json:"value,omitempty"`
	Result  string `json:"result"`
	Error   string `json:"error"`
}

// DataModel is a single-attempt LMS. It is safe for concurrent use.
type DataModel struct {
	mu sync.Mutex

	version scorm.Version
	rules   map[string]rule
	values  map[string]string
	counts  map[string]int
	state   lmsState
	lastErr Code
	diag    string
	commits int
	calls   []Call

	failInit   Code
	failCommit Code
	logger     *log.Logger
}

// Option configures a DataModel.
type Option func(*dmConfig)

type dmConfig struct {
	learnerID   string
	learnerName string
	initial     map[string]string
	failInit    Code
	failCommit  Code
	logger      *log.Logger
}

// WithLearner sets the read-only learner identity.
func WithLearner(id, name string) Option {
	return func(c *dmConfig) {
		c.learnerID = id
		c.learnerName = name
	}
}

// WithValue seeds an element, as an LMS resuming an attempt would.
func WithValue(element, value string) Option {
	return func(c *dmConfig) {
		c.initial[element] = value
	}
}

// WithInitializeFailure makes Initialize fail with code.
func WithInitializeFailure(code Code) Option {
	return func(c *dmConfig) {
		c.failInit = code
	}
}

// WithCommitFailure makes every Commit fail with code.
func WithCommitFailure(code Code) Option {
	return func(c *dmConfig) {
		c.failCommit = code
	}
}

// WithLogger logs every call at debug level.
func WithLogger(l *log.Logger) Option {
	return func(c *dmConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns an LMS for version v.
func New(v scorm.Version, opts ...Option) *DataModel {
	cfg := dmConfig{
		learnerID:   "learner-1",
		learnerName: "Learner, Test",
		initial:     map[string]string{},
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dm := &DataModel{
		version:    v,
		values:     map[string]string{},
		counts:     map[string]int{},
		failInit:   cfg.failInit,
		failCommit: cfg.failCommit,
		logger:     cfg.logger,
	}
	if v == scorm.V12 {
		dm.rules = rules12(cfg.learnerID, cfg.learnerName)
	} else {
		dm.rules = rules2004(cfg.learnerID, cfg.learnerName)
	}
	for name, r := range dm.rules {
		if r.set && r.access != children && !strings.Contains(name, ".n.") {
			dm.values[name] = r.value
		}
	}
	for element, value := range cfg.initial {
		dm.values[element] = value
		dm.growCollections(element)
	}
	return dm
}

// Version returns the data model version.
func (d *DataModel) Version() scorm.Version {
	return d.version
}

func (d *DataModel) record(method, element, value, result string) {
	c := Call{Method: method, Element: element, Value: value, Result: result, Error: d.lastErr.String()}
	d.calls = append(d.calls, c)
	d.logger.Debug("lms call", "method", method, "element", element, "value", value, "result", result, "error", c.Error)
}

func (d *DataModel) fail(c Code, diag string) {
	d.lastErr = c
	d.diag = diag
}

func (d *DataModel) ok() {
	d.lastErr = NoError
	d.diag = ""
}

// stateError returns the code for calling op in the current state, or
// NoError when the call may proceed.
func (d *DataModel) stateError(op string) Code {
	if d.version == scorm.V12 {
		if d.state != running {
			return Err12NotInitialized
		}
		return NoError
	}
	switch d.state {
	case notInitialized:
		return map[string]Code{"get": RetrieveBeforeInit, "set": StoreBeforeInit, "commit": CommitBeforeInit, "terminate": TerminationBeforeInit}[op]
	case terminated:
		return map[string]Code{"get": RetrieveAfterTerm, "set": StoreAfterTerm, "commit": CommitAfterTerm, "terminate": TerminationAfterTerm}[op]
	}
	return NoError
}

func (d *DataModel) argError() Code {
	if d.version == scorm.V12 {
		return Err12InvalidArgument
	}
	return GeneralArgumentError
}

// Initialize begins the attempt.
func (d *DataModel) Initialize(param string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := d.initialize(param)
	d.record("Initialize", "", "", strconv.FormatBool(result))
	return result
}

func (d *DataModel) initialize(param string) bool {
	switch {
	case param != "":
		d.fail(d.argError(), "parameter must be empty")
	case d.failInit != NoError:
		d.fail(d.failInit, "initialization refused")
	case d.state == running && d.version == scorm.V2004:
		d.fail(AlreadyInitialized, "")
	case d.state == terminated && d.version == scorm.V2004:
		d.fail(ContentTerminated, "")
	case d.state != notInitialized:
		d.fail(Err12GeneralException, "already initialized")
	default:
		d.state = running
		d.ok()
		return true
	}
	return false
}

// Terminate ends the attempt, committing pending data.
func (d *DataModel) Terminate(param string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := false
	if param != "" {
		d.fail(d.argError(), "parameter must be empty")
	} else if c := d.stateError("terminate"); c != NoError {
		d.fail(c, "")
	} else {
		d.commits++
		d.state = terminated
		d.ok()
		result = true
	}
	d.record("Terminate", "", "", strconv.FormatBool(result))
	return result
}

// Commit persists the data model.
func (d *DataModel) Commit(param string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := false
	switch {
	case param != "":
		d.fail(d.argError(), "parameter must be empty")
	case d.stateError("commit") != NoError:
		d.fail(d.stateError("commit"), "")
	case d.failCommit != NoError:
		d.fail(d.failCommit, "commit refused")
	default:
		d.commits++
		d.ok()
		result = true
	}
	d.record("Commit", "", "", strconv.FormatBool(result))
	return result
}

// GetValue reads an element.
func (d *DataModel) GetValue(element string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := d.getValue(element)
	d.record("GetValue", element, "", value)
	return value
}

func (d *DataModel) getValue(element string) string {
	if c := d.stateError("get"); c != NoError {
		d.fail(c, "")
		return ""
	}
	if element == "" {
		d.fail(d.getFailure(), "empty element")
		return ""
	}

	name, idx, owners := normalize(element)
	r, known := d.rules[name]
	if !known {
		d.fail(d.unknownFailure(element).code(d.version), element)
		return ""
	}
	for i, owner := range owners {
		if idx[i] >= d.counts[owner] {
			d.fail(d.getFailure(), "index out of range: "+element)
			return ""
		}
	}

	switch r.access {
	case writeOnly:
		d.fail(fWriteOnly.code(d.version), element)
		return ""
	case children:
		d.ok()
		return r.value
	case count:
		d.ok()
		return strconv.Itoa(d.counts[strings.TrimSuffix(element, "._count")])
	}

	value, set := d.values[element]
	if !set && r.set {
		value, set = r.value, true
	}
	if !set {
		d.fail(fNotInit.code(d.version), element)
		return ""
	}
	d.ok()
	return value
}

func (d *DataModel) getFailure() Code {
	if d.version == scorm.V12 {
		return Err12InvalidArgument
	}
	return GeneralGetFailure
}

func (d *DataModel) unknownFailure(element string) failure {
	switch {
	case strings.HasSuffix(element, "._children"):
		return fNoChildren
	case strings.HasSuffix(element, "._count"):
		return fNoCount
	}
	return fUndefined
}

// SetValue writes an element.
func (d *DataModel) SetValue(element, value string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := d.setValue(element, value)
	d.record("SetValue", element, value, strconv.FormatBool(result))
	return result
}

func (d *DataModel) setValue(element, value string) bool {
	if c := d.stateError("set"); c != NoError {
		d.fail(c, "")
		return false
	}
	if element == "" {
		d.fail(d.setFailure(), "empty element")
		return false
	}

	name, idx, owners := normalize(element)
	r, known := d.rules[name]
	if !known {
		d.fail(d.unknownFailure(element).code(d.version), element)
		return false
	}

	switch r.access {
	case readOnly:
		d.fail(fReadOnly.code(d.version), element)
		return false
	case children, count:
		d.fail(fKeyword.code(d.version), element)
		return false
	}

	// Every index must address an existing record or the next free one.
	for i, owner := range owners {
		n := d.counts[owner]
		if idx[i] > n || (idx[i] == n && i < len(owners)-1) {
			d.fail(d.setFailure(), "index out of order: "+element)
			return false
		}
	}
	if d.version == scorm.V2004 && len(owners) > 0 {
		last := len(owners) - 1
		creating := idx[last] == d.counts[owners[last]]
		if creating && needsID(name) && !strings.HasSuffix(name, ".id") {
			d.fail(fDependency.code(d.version), "id must be set first: "+element)
			return false
		}
	}

	if f := r.check(value); f != fNone {
		d.fail(f.code(d.version), element+"="+value)
		return false
	}

	d.values[element] = value
	d.growCollections(element)
	d.ok()
	return true
}

// needsID reports whether records of the collection holding name are
// created by their id element.
func needsID(name string) bool {
	return strings.HasPrefix(name, "cmi.interactions.n.") && !strings.Contains(name, ".correct_responses.") ||
		strings.HasPrefix(name, "cmi.objectives.n.")
}

func (d *DataModel) setFailure() Code {
	if d.version == scorm.V12 {
		return Err12InvalidArgument
	}
	return GeneralSetFailure
}

// growCollections extends the count of every collection element indexes
// one past its end.
func (d *DataModel) growCollections(element string) {
	_, idx, owners := normalize(element)
	for i, owner := range owners {
		if idx[i] >= d.counts[owner] {
			d.counts[owner] = idx[i] + 1
		}
	}
}

// GetLastError returns the code of the last call.
func (d *DataModel) GetLastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr.String()
}

// GetErrorString describes code.
func (d *DataModel) GetErrorString(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	return Message(d.version, Code(n))
}

// GetDiagnostic returns details on the last error.
func (d *DataModel) GetDiagnostic(code string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code != "" && code != d.lastErr.String() {
		return d.GetErrorString(code)
	}
	return d.diag
}

// Calls returns a copy of the call log.
func (d *DataModel) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Value returns the stored value of element, bypassing access rules.
func (d *DataModel) Value(element string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[element]
	return v, ok
}

// Count returns the number of records in collection.
func (d *DataModel) Count(collection string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[collection]
}

// Apply dispatches a recorded call by method name. Both the 1.2 (LMS...)
// and 2004 names are accepted. It returns the API result as a string.
func (d *DataModel) Apply(c Call) string {
	switch strings.TrimPrefix(c.Method, "LMS") {
	case "Initialize":
		return strconv.FormatBool(d.Initialize(c.Value))
	case "Finish", "Terminate":
		return strconv.FormatBool(d.Terminate(c.Value))
	case "Commit":
		return strconv.FormatBool(d.Commit(c.Value))
	case "GetValue":
		return d.GetValue(c.Element)
	case "SetValue":
		return strconv.FormatBool(d.SetValue(c.Element, c.Value))
	case "GetLastError":
		return d.GetLastError()
	case "GetErrorString":
		return d.GetErrorString(c.Value)
	case "GetDiagnostic":
		return d.GetDiagnostic(c.Value)
	}
	d.mu.Lock()
	d.fail(d.argError(), "unknown method "+c.Method)
	d.mu.Unlock()
	return "false"
}

// elementsWithPrefix lists stored element names below prefix, sorted.
func (d *DataModel) elementsWithPrefix(prefix string) []string {
	var out []string
	for k := range d.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Compile-time interface check.
var _ shim.API = (*DataModel)(nil)
