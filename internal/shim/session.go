// Package shim models the SCORM runtime used by packaged content: API
// discovery across frames, the tracking session lifecycle, and the
// rendering of the scorm_api.js script that runs the same state machine
// in the browser.
package shim

import (
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// State is the lifecycle position of a Session.
type State int

// Session states. Terminated and InitFailed are final.
const (
	Uninitialized State = iota
	Searching
	Initialized
	Active
	Terminated
	InitFailed
)

var stateNames = [...]string{"uninitialized", "searching", "initialized", "active", "terminated", "init_failed"}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Interaction is one learner response to record.
type Interaction struct {
	ID              string
	Type            string
	Description     string
	LearnerResponse string
	Result          string
	CorrectPattern  string
	Latency         time.Duration
	Timestamp       time.Time
}

// Objective is one learning objective to record. Score is a percentage
// in [0, 100]; nil leaves the score unset.
type Objective struct {
	ID          string
	Description string
	Completion  string
	Success     string
	Score       *float64
}

// Session tracks one attempt against an LMS API. It is safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	api     API
	version scorm.Version
	el      scorm.Elements
	opts    Options
	logger  *log.Logger
	now     func() time.Time

	state        State
	started      time.Time
	lastCommit   time.Time
	lastTimeSync time.Time
	progress     float64
	completed    bool
	interactions int
	objectives   int
	comments     int
	failures     int
	lastErr      *APIError
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger for API failures and transitions.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOptions sets the tracking options.
func WithOptions(o Options) SessionOption {
	return func(s *Session) {
		s.opts = o.WithDefaults()
	}
}

// NewSession returns an uninitialized session bound to api.
func NewSession(api API, v scorm.Version, opts ...SessionOption) *Session {
	s := &Session{
		api:     api,
		version: v,
		el:      v.Elements(),
		opts:    DefaultOptions(),
		logger:  log.New(io.Discard),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start discovers the API from frame and initializes a session on it.
// When discovery or initialization fails the returned session is in
// InitFailed and every tracking call returns ErrNotActive.
func Start(ctx context.Context, frame Frame, opts ...SessionOption) (*Session, error) {
	s := NewSession(nil, "", opts...)
	s.state = Searching
	s.logger.Debug("searching for LMS API")

	api, v, err := Discover(ctx, frame, s.opts.Discover)
	if err != nil {
		s.state = InitFailed
		s.logger.Warn("LMS API not found, content runs untracked", "err", err)
		return s, err
	}
	s.api = api
	s.version = v
	s.el = v.Elements()
	s.state = Uninitialized
	s.logger.Debug("LMS API found", "version", v)

	return s, s.Initialize()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the SCORM version of the bound API.
func (s *Session) Version() scorm.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Progress returns the last progress measure written.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Completed reports whether the content was marked completed.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Failures returns the number of calls the LMS rejected.
func (s *Session) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// LastError returns the last LMS failure, or nil.
func (s *Session) LastError() *APIError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) active() bool {
	return s.state == Initialized || s.state == Active
}

// Initialize opens the attempt and writes the initial status.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Initialized, Active:
		return ErrAlreadyStarted
	case Terminated, InitFailed:
		return ErrNotActive
	}
	if s.api == nil || !s.version.Valid() {
		s.state = InitFailed
		return ErrAPINotFound
	}

	if !s.api.Initialize("") {
		apiErr := captureError(s.api, "Initialize", "")
		s.lastErr = apiErr
		s.state = InitFailed
		s.logger.Error("LMS initialize failed", "err", apiErr)
		return apiErr
	}

	now := s.now()
	s.started = now
	s.lastCommit = now
	s.lastTimeSync = now
	s.state = Initialized
	s.logger.Info("session initialized", "version", s.version)

	var errs []error
	// A resumed attempt keeps its final status.
	if !isFinalStatus(s.api.GetValue(s.el.CompletionStatus)) {
		errs = append(errs, s.set(s.el.CompletionStatus, "incomplete"))
	}
	if s.el.SuccessStatus != "" && !isFinalStatus(s.api.GetValue(s.el.SuccessStatus)) {
		errs = append(errs, s.set(s.el.SuccessStatus, "unknown"))
	}
	errs = append(errs,
		s.set(s.el.Exit, ""),
		s.set(s.el.SessionTime, FormatDuration(s.version, 0)),
		s.commit(),
	)
	return errors.Join(errs...)
}

func isFinalStatus(status string) bool {
	switch status {
	case "completed", "passed", "failed":
		return true
	}
	return false
}

// set writes one element. Failures are logged and counted; they never
// stop the session.
func (s *Session) set(element, value string) error {
	if element == "" {
		return nil
	}
	if s.api.SetValue(element, value) {
		if s.state == Initialized {
			s.state = Active
		}
		return nil
	}
	apiErr := captureError(s.api, "SetValue", element)
	s.failures++
	s.lastErr = apiErr
	s.logger.Warn("LMS rejected value", "element", element, "value", value, "err", apiErr)
	return apiErr
}

func (s *Session) commit() error {
	if !s.api.Commit("") {
		apiErr := captureError(s.api, "Commit", "")
		s.failures++
		s.lastErr = apiErr
		s.logger.Warn("LMS commit failed", "err", apiErr)
		return apiErr
	}
	s.lastCommit = s.now()
	if s.state == Active {
		s.state = Initialized
	}
	return nil
}

// Commit persists pending values.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	return s.commit()
}

// SetProgressMeasure records progress p, clamped to [0, 1]. Reaching the
// completion threshold completes the content. Once completed, progress
// never decreases.
func (s *Session) SetProgressMeasure(p float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}

	p = clamp(p)
	if s.completed {
		p = math.Max(p, s.progress)
	}
	s.progress = p
	score := strconv.Itoa(int(math.Round(p * 100)))

	errs := []error{
		s.set(s.el.ProgressMeasure, formatDecimal(p)),
		s.set(s.el.ScoreScaled, formatDecimal(p)),
		s.set(s.el.ScoreRaw, score),
		s.set(s.el.ScoreMin, "0"),
		s.set(s.el.ScoreMax, "100"),
	}
	if p >= s.opts.CompletionThreshold && !s.completed {
		errs = append(errs, s.complete())
	}
	errs = append(errs, s.commit())
	return errors.Join(errs...)
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// completionStatus maps a status onto the version vocabulary. The
// returned success value is non-empty when status belongs to 2004's
// success_status.
func (s *Session) completionStatus(status string) (completion, success string, err error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if s.version == scorm.V12 {
		switch status {
		case "unknown":
			return "incomplete", "", nil
		case "passed", "completed", "failed", "incomplete", "browsed", "not attempted":
			return status, "", nil
		}
		return "", "", ErrInvalidStatus
	}
	switch status {
	case "completed", "incomplete", "not attempted", "unknown":
		return status, "", nil
	case "passed", "failed":
		return "completed", status, nil
	case "browsed":
		return "incomplete", "", nil
	}
	return "", "", ErrInvalidStatus
}

// SetCompletion records a completion status and commits.
func (s *Session) SetCompletion(status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	completion, success, err := s.completionStatus(status)
	if err != nil {
		return err
	}
	errs := []error{s.set(s.el.CompletionStatus, completion)}
	if success != "" {
		errs = append(errs, s.set(s.el.SuccessStatus, success))
	}
	if completion == "completed" || completion == "passed" {
		s.completed = true
	}
	errs = append(errs, s.commit())
	return errors.Join(errs...)
}

// SetSuccess records passed or failed and commits.
func (s *Session) SetSuccess(status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "passed" && status != "failed" && status != "unknown" {
		return ErrInvalidStatus
	}
	element := s.el.SuccessStatus
	if s.version == scorm.V12 {
		if status == "unknown" {
			return nil
		}
		element = s.el.CompletionStatus
	}
	return errors.Join(s.set(element, status), s.commit())
}

// Complete marks the content completed and commits.
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	return errors.Join(s.complete(), s.commit())
}

func (s *Session) complete() error {
	s.completed = true
	s.progress = 1
	s.logger.Info("content completed")
	return errors.Join(
		s.set(s.el.CompletionStatus, "completed"),
		s.set(s.el.ProgressMeasure, "1"),
	)
}

// SetLocation records the learner's position, such as a page number.
func (s *Session) SetLocation(loc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	return s.set(s.el.Location, loc)
}

// SetSuspendData stores opaque resume data.
func (s *Session) SetSuspendData(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	return s.set(s.el.SuspendData, data)
}

// nextIndex returns the next free index of a collection, preferring the
// LMS count and never going back below the local counter.
func (s *Session) nextIndex(collection string, local int) int {
	n, err := strconv.Atoi(s.api.GetValue(collection + "._count"))
	if err != nil || n < local {
		return local
	}
	return n
}

// RecordInteraction appends an interaction and returns its index.
func (s *Session) RecordInteraction(in Interaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return -1, ErrNotActive
	}
	if strings.TrimSpace(in.ID) == "" {
		return -1, errors.Join(ErrInvalidInteraction, errors.New("empty id"))
	}
	if !scorm.IsInteractionType(in.Type) {
		return -1, errors.Join(ErrInvalidInteraction, errors.New("unknown type "+strconv.Quote(in.Type)))
	}

	idx := s.nextIndex(s.el.Interactions, s.interactions)
	s.interactions = idx + 1
	prefix := s.el.Interactions + "." + strconv.Itoa(idx) + "."
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	errs := []error{
		s.set(prefix+"id", in.ID),
		s.set(prefix+"type", in.Type),
	}
	if s.version == scorm.V2004 {
		if in.Description != "" {
			errs = append(errs, s.set(prefix+"description", in.Description))
		}
		errs = append(errs, s.set(prefix+"timestamp", FormatTimestamp(ts)))
	} else {
		errs = append(errs, s.set(prefix+"time", formatClock(ts)))
	}
	if in.LearnerResponse != "" {
		errs = append(errs, s.set(prefix+s.el.LearnerResponse, in.LearnerResponse))
	}
	if in.Result != "" {
		errs = append(errs, s.set(prefix+"result", s.interactionResult(in.Result)))
	}
	if in.CorrectPattern != "" {
		errs = append(errs, s.set(prefix+"correct_responses.0.pattern", in.CorrectPattern))
	}
	if in.Latency > 0 {
		errs = append(errs, s.set(prefix+"latency", FormatDuration(s.version, in.Latency)))
	}
	return idx, errors.Join(errs...)
}

func (s *Session) interactionResult(r string) string {
	r = strings.ToLower(strings.TrimSpace(r))
	if s.version == scorm.V12 {
		switch r {
		case "incorrect":
			return "wrong"
		case "unanticipated":
			return "unanticipated"
		}
		return r
	}
	if r == "wrong" {
		return "incorrect"
	}
	return r
}

// RecordObjective appends an objective and returns its index.
func (s *Session) RecordObjective(o Objective) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return -1, ErrNotActive
	}
	if strings.TrimSpace(o.ID) == "" {
		return -1, errors.Join(ErrInvalidObjective, errors.New("empty id"))
	}

	idx := s.nextIndex(s.el.Objectives, s.objectives)
	s.objectives = idx + 1
	prefix := s.el.Objectives + "." + strconv.Itoa(idx) + "."

	errs := []error{s.set(prefix+"id", o.ID)}
	if s.version == scorm.V2004 {
		if o.Description != "" {
			errs = append(errs, s.set(prefix+"description", o.Description))
		}
		if o.Completion != "" {
			completion, _, err := s.completionStatus(o.Completion)
			if err != nil {
				return idx, err
			}
			errs = append(errs, s.set(prefix+"completion_status", completion))
		}
		if o.Success != "" {
			errs = append(errs, s.set(prefix+"success_status", o.Success))
		}
	} else if status := objectiveStatus12(o); status != "" {
		errs = append(errs, s.set(prefix+"status", status))
	}

	if o.Score != nil {
		score := math.Max(0, math.Min(100, *o.Score))
		errs = append(errs,
			s.set(prefix+"score.raw", formatDecimal(score)),
			s.set(prefix+"score.min", "0"),
			s.set(prefix+"score.max", "100"),
		)
		if s.version == scorm.V2004 {
			errs = append(errs, s.set(prefix+"score.scaled", formatDecimal(score/100)))
		}
	}
	return idx, errors.Join(errs...)
}

// objectiveStatus12 folds completion and success into the single 1.2
// status; success wins.
func objectiveStatus12(o Objective) string {
	if o.Success == "passed" || o.Success == "failed" {
		return o.Success
	}
	if o.Completion == "unknown" {
		return "incomplete"
	}
	return o.Completion
}

// AddComment records a learner comment and commits. 2004 appends to
// cmi.comments_from_learner; 1.2 has a single string, extended with "; ".
func (s *Session) AddComment(comment, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	if strings.TrimSpace(comment) == "" {
		return ErrEmptyComment
	}

	var errs []error
	if s.version == scorm.V2004 {
		idx := s.nextIndex(s.el.Comments, s.comments)
		s.comments = idx + 1
		prefix := s.el.Comments + "." + strconv.Itoa(idx) + "."
		errs = append(errs, s.set(prefix+"comment", comment))
		if location != "" {
			errs = append(errs, s.set(prefix+"location", location))
		}
		errs = append(errs, s.set(prefix+"timestamp", FormatTimestamp(s.now())))
	} else {
		if prev := s.api.GetValue(s.el.Comments); prev != "" {
			comment = prev + "; " + comment
		}
		errs = append(errs, s.set(s.el.Comments, comment))
	}
	errs = append(errs, s.commit())
	return errors.Join(errs...)
}

// UpdateSessionTime reports the time elapsed since initialization.
func (s *Session) UpdateSessionTime() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	return s.updateSessionTime()
}

func (s *Session) updateSessionTime() error {
	now := s.now()
	s.lastTimeSync = now
	return s.set(s.el.SessionTime, FormatDuration(s.version, now.Sub(s.started)))
}

// Tick runs the periodic work due at now: a session time report every
// SessionTimeInterval and a commit every CommitInterval.
func (s *Session) Tick(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}
	var errs []error
	if now.Sub(s.lastTimeSync) >= s.opts.SessionTimeInterval {
		errs = append(errs, s.updateSessionTime())
	}
	if now.Sub(s.lastCommit) >= s.opts.CommitInterval {
		errs = append(errs, s.commit())
	}
	return errors.Join(errs...)
}

// Terminate reports the session time, marks a normal exit, commits and
// closes the attempt. Further calls return ErrNotActive.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrNotActive
	}

	exit := "normal"
	if s.version == scorm.V12 {
		exit = ""
	}
	errs := []error{
		s.updateSessionTime(),
		s.set(s.el.Exit, exit),
		s.commit(),
	}
	if !s.api.Terminate("") {
		apiErr := captureError(s.api, "Terminate", "")
		s.failures++
		s.lastErr = apiErr
		s.logger.Error("LMS terminate failed", "err", apiErr)
		errs = append(errs, apiErr)
	}
	s.state = Terminated
	s.logger.Info("session terminated", "completed", s.completed, "failures", s.failures)
	return errors.Join(errs...)
}
