// Package scorm holds the identifiers shared by every part of a package:
// SCORM versions, fixed file names and the CMI element names that differ
// between SCORM 1.2 and 2004.
package scorm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVersion indicates an unsupported SCORM version string.
var ErrInvalidVersion = errors.New("invalid SCORM version")

// Version is a SCORM edition.
type Version string

// Supported versions.
const (
	V12   Version = "1.2"
	V2004 Version = "2004"
)

// DefaultVersion is used when no version is requested.
const DefaultVersion = V2004

// Fixed package layout.
const (
	ManifestFile = "imsmanifest.xml"
	EntryFile    = "index.html"
	ShimFile     = "scorm_api.js"
	ResourcesDir = "resources"
)

// ParseVersion accepts "1.2", "12", "2004", "2004 4th edition" and
// surrounding whitespace; empty input yields DefaultVersion.
func ParseVersion(s string) (Version, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return DefaultVersion, nil
	case v == "1.2" || v == "12":
		return V12, nil
	case v == "2004" || strings.HasPrefix(v, "2004 "):
		return V2004, nil
	}
	return "", fmt.Errorf("%w: %q (must be 1.2 or 2004)", ErrInvalidVersion, s)
}

// Valid reports whether v is a supported version.
func (v Version) Valid() bool {
	return v == V12 || v == V2004
}

// String returns the version label.
func (v Version) String() string {
	return string(v)
}

// APIName returns the window property under which an LMS exposes the
// runtime API for this version.
func (v Version) APIName() string {
	if v == V12 {
		return "API"
	}
	return "API_1484_11"
}

// Elements maps version-neutral data model fields to CMI element names.
type Elements struct {
	CompletionStatus string
	SuccessStatus    string // empty for 1.2, folded into CompletionStatus
	ProgressMeasure  string // empty for 1.2
	ScoreScaled      string // empty for 1.2
	ScoreRaw         string
	ScoreMin         string
	ScoreMax         string
	Location         string
	SessionTime      string
	Exit             string
	SuspendData      string
	Interactions     string
	Objectives       string
	Comments         string // 1.2 single string, 2004 collection
	LearnerResponse  string // interaction sub-element
	ObjectiveStatus  string // objective sub-element for completion
}

var elements12 = Elements{
	CompletionStatus: "cmi.core.lesson_status",
	ScoreRaw:         "cmi.core.score.raw",
	ScoreMin:         "cmi.core.score.min",
	ScoreMax:         "cmi.core.score.max",
	Location:         "cmi.core.lesson_location",
	SessionTime:      "cmi.core.session_time",
	Exit:             "cmi.core.exit",
	SuspendData:      "cmi.suspend_data",
	Interactions:     "cmi.interactions",
	Objectives:       "cmi.objectives",
	Comments:         "cmi.comments",
	LearnerResponse:  "student_response",
	ObjectiveStatus:  "status",
}

var elements2004 = Elements{
	CompletionStatus: "cmi.completion_status",
	SuccessStatus:    "cmi.success_status",
	ProgressMeasure:  "cmi.progress_measure",
	ScoreScaled:      "cmi.score.scaled",
	ScoreRaw:         "cmi.score.raw",
	ScoreMin:         "cmi.score.min",
	ScoreMax:         "cmi.score.max",
	Location:         "cmi.location",
	SessionTime:      "cmi.session_time",
	Exit:             "cmi.exit",
	SuspendData:      "cmi.suspend_data",
	Interactions:     "cmi.interactions",
	Objectives:       "cmi.objectives",
	Comments:         "cmi.comments_from_learner",
	LearnerResponse:  "learner_response",
	ObjectiveStatus:  "completion_status",
}

// Elements returns the element names for v.
func (v Version) Elements() Elements {
	if v == V12 {
		return elements12
	}
	return elements2004
}

// InteractionTypes lists the interaction types accepted by both versions.
var InteractionTypes = []string{
	"true-false", "choice", "fill-in", "long-fill-in", "matching",
	"performance", "sequencing", "likert", "numeric", "other",
}

// IsInteractionType reports whether t is a known interaction type.
func IsInteractionType(t string) bool {
	for _, it := range InteractionTypes {
		if it == t {
			return true
		}
	}
	return false
}
