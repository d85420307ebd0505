package shim

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Sentinel errors for session operations.
var (
	ErrAPINotFound        = errors.New("SCORM API not found")
	ErrNotActive          = errors.New("session is not active")
	ErrAlreadyStarted     = errors.New("session already initialized")
	ErrInvalidInteraction = errors.New("invalid interaction")
	ErrInvalidObjective   = errors.New("invalid objective")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrEmptyComment       = errors.New("empty comment")
)

// API is the runtime object an LMS exposes to content. Method names are
// version neutral: the SCORM 1.2 LMSInitialize/LMSFinish/LMSGetValue/...
// and SCORM 2004 Initialize/Terminate/GetValue/... calls map onto them.
type API interface {
	Initialize(param string) bool
	Terminate(param string) bool
	GetValue(element string) string
	SetValue(element, value string) bool
	Commit(param string) bool
	GetLastError() string
	GetErrorString(code string) string
	GetDiagnostic(code string) string
}

// APIError carries the LMS's own description of a rejected call.
type APIError struct {
	Op         string
	Element    string
	Code       string
	Message    string
	Diagnostic string
}

// Error formats the failure the way the runtime script logs it.
func (e *APIError) Error() string {
	s := fmt.Sprintf("Error (%s): %s - %s", e.Code, e.Message, e.Diagnostic)
	if e.Element != "" {
		return e.Op + " " + e.Element + ": " + s
	}
	return e.Op + ": " + s
}

// CodeInt returns the numeric error code, or -1 when it is not a number.
func (e *APIError) CodeInt() int {
	n, err := strconv.Atoi(e.Code)
	if err != nil {
		return -1
	}
	return n
}

// captureError reads the last error from api.
func captureError(api API, op, element string) *APIError {
	code := api.GetLastError()
	return &APIError{
		Op:         op,
		Element:    element,
		Code:       code,
		Message:    api.GetErrorString(code),
		Diagnostic: api.GetDiagnostic(code),
	}
}

// Frame is one browsing context in which an LMS may have placed its API.
type Frame interface {
	// LookupAPI returns the handle bound for version v on this window.
	LookupAPI(v scorm.Version) (API, bool)
	// Parent returns the enclosing window; false at the top.
	Parent() (Frame, bool)
	// Opener returns the window that opened this one, if any.
	Opener() (Frame, bool)
}
