package cmi

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

type access int

const (
	readWrite access = iota
	readOnly
	writeOnly
	children
	count
)

// rule describes one data model element. Element names are normalized
// with every numeric segment replaced by "n".
type rule struct {
	access access
	check  func(string) failure
	value  string // default for plain elements, list for _children
	set    bool   // value is initialized
}

func rw(check func(string) failure) rule { return rule{access: readWrite, check: check} }

func rwDefault(check func(string) failure, v string) rule {
	return rule{access: readWrite, check: check, value: v, set: true}
}

func wo(check func(string) failure) rule { return rule{access: writeOnly, check: check} }
func ro(v string) rule                   { return rule{access: readOnly, value: v, set: true} }
func roUnset() rule                      { return rule{access: readOnly} }
func kids(list string) rule              { return rule{access: children, value: list, set: true} }
func counter() rule                      { return rule{access: count} }

var (
	reDuration2004 = regexp.MustCompile(`^P(?:\d+Y)?(?:\d+M)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d{1,2})?S)?)?$`)
	reTimestamp    = regexp.MustCompile(`^\d{4}(?:-\d{2}(?:-\d{2}(?:T\d{2}(?::\d{2}(?::\d{2}(?:\.\d{1,2})?)?)?)?)?)?(?:Z|[+-]\d{2}(?::\d{2})?)?$`)
	reTimespan12   = regexp.MustCompile(`^\d{2,4}:\d{2}:\d{2}(?:\.\d{1,2})?$`)
	reTime12       = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(?:\.\d{1,2})?$`)
)

func vocab(values ...string) func(string) failure {
	return func(s string) failure {
		for _, v := range values {
			if s == v {
				return fNone
			}
		}
		return fType
	}
}

func realRange(lo, hi float64) func(string) failure {
	return func(s string) failure {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fType
		}
		if f < lo || f > hi {
			return fRange
		}
		return fNone
	}
}

func anyReal(s string) failure {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fType
	}
	return fNone
}

func str(limit int) func(string) failure {
	return func(s string) failure {
		if len(s) > limit {
			return fRange
		}
		return fNone
	}
}

func identifier(limit int) func(string) failure {
	return func(s string) failure {
		if strings.TrimSpace(s) == "" || len(s) > limit {
			return fType
		}
		return fNone
	}
}

func identifier12(s string) failure {
	if s == "" || len(s) > 255 || strings.ContainsAny(s, " \t\r\n") {
		return fType
	}
	return fNone
}

func duration2004(s string) failure {
	if s == "P" || strings.HasSuffix(s, "T") || !reDuration2004.MatchString(s) {
		return fType
	}
	return fNone
}

func timestamp2004(s string) failure {
	if !reTimestamp.MatchString(s) {
		return fType
	}
	return fNone
}

func timespan12(s string) failure {
	if !reTimespan12.MatchString(s) {
		return fType
	}
	return fNone
}

func time12(s string) failure {
	if !reTime12.MatchString(s) {
		return fType
	}
	return fNone
}

func score12(s string) failure {
	if s == "" {
		return fNone
	}
	return realRange(0, 100)(s)
}

func result2004(s string) failure {
	if vocab("correct", "incorrect", "unanticipated", "neutral")(s) == fNone {
		return fNone
	}
	return anyReal(s)
}

func result12(s string) failure {
	if vocab("correct", "wrong", "unanticipated", "neutral")(s) == fNone {
		return fNone
	}
	return anyReal(s)
}

var interactionType = vocab(scorm.InteractionTypes...)

var completion2004 = vocab("completed", "incomplete", "not attempted", "unknown")
var success2004 = vocab("passed", "failed", "unknown")
var status12 = vocab("passed", "completed", "failed", "incomplete", "browsed", "not attempted")

func rules2004(learnerID, learnerName string) map[string]rule {
	return map[string]rule{
		"cmi._version":             ro("1.0"),
		"cmi.completion_status":    rwDefault(completion2004, "unknown"),
		"cmi.completion_threshold": roUnset(),
		"cmi.credit":               ro("credit"),
		"cmi.entry":                ro("ab-initio"),
		"cmi.exit":                 wo(vocab("time-out", "suspend", "logout", "normal", "")),
		"cmi.launch_data":          ro(""),
		"cmi.learner_id":           ro(learnerID),
		"cmi.learner_name":         ro(learnerName),
		"cmi.location":             rw(str(1000)),
		"cmi.max_time_allowed":     roUnset(),
		"cmi.mode":                 ro("normal"),
		"cmi.progress_measure":     rw(realRange(0, 1)),
		"cmi.scaled_passing_score": roUnset(),
		"cmi.score._children":      kids("scaled,raw,min,max"),
		"cmi.score.scaled":         rw(realRange(-1, 1)),
		"cmi.score.raw":            rw(anyReal),
		"cmi.score.min":            rw(anyReal),
		"cmi.score.max":            rw(anyReal),
		"cmi.session_time":         wo(duration2004),
		"cmi.success_status":       rwDefault(success2004, "unknown"),
		"cmi.suspend_data":         rw(str(64000)),
		"cmi.time_limit_action":    ro("continue,no message"),
		"cmi.total_time":           ro("PT0H0M0S"),

		"cmi.interactions._children":                     kids("id,type,objectives,timestamp,correct_responses,weighting,learner_response,result,latency,description"),
		"cmi.interactions._count":                        counter(),
		"cmi.interactions.n.id":                          rw(identifier(4000)),
		"cmi.interactions.n.type":                        rw(interactionType),
		"cmi.interactions.n.timestamp":                   rw(timestamp2004),
		"cmi.interactions.n.weighting":                   rw(anyReal),
		"cmi.interactions.n.learner_response":            rw(str(4000)),
		"cmi.interactions.n.result":                      rw(result2004),
		"cmi.interactions.n.latency":                     rw(duration2004),
		"cmi.interactions.n.description":                 rw(str(250)),
		"cmi.interactions.n.objectives._count":           counter(),
		"cmi.interactions.n.objectives.n.id":             rw(identifier(4000)),
		"cmi.interactions.n.correct_responses._count":    counter(),
		"cmi.interactions.n.correct_responses.n.pattern": rw(str(4000)),

		"cmi.comments_from_learner._children":   kids("comment,location,timestamp"),
		"cmi.comments_from_learner._count":      counter(),
		"cmi.comments_from_learner.n.comment":   rw(str(4000)),
		"cmi.comments_from_learner.n.location":  rw(str(250)),
		"cmi.comments_from_learner.n.timestamp": rw(timestamp2004),
		"cmi.comments_from_lms._children":       kids("comment,location,timestamp"),
		"cmi.comments_from_lms._count":          counter(),

		"cmi.objectives._children":           kids("id,score,success_status,completion_status,progress_measure,description"),
		"cmi.objectives._count":              counter(),
		"cmi.objectives.n.id":                rw(identifier(4000)),
		"cmi.objectives.n.score._children":   kids("scaled,raw,min,max"),
		"cmi.objectives.n.score.scaled":      rw(realRange(-1, 1)),
		"cmi.objectives.n.score.raw":         rw(anyReal),
		"cmi.objectives.n.score.min":         rw(anyReal),
		"cmi.objectives.n.score.max":         rw(anyReal),
		"cmi.objectives.n.success_status":    rwDefault(success2004, "unknown"),
		"cmi.objectives.n.completion_status": rwDefault(completion2004, "unknown"),
		"cmi.objectives.n.progress_measure":  rw(realRange(0, 1)),
		"cmi.objectives.n.description":       rw(str(250)),
	}
}

func rules12(learnerID, learnerName string) map[string]rule {
	return map[string]rule{
		"cmi.core._children":       kids("student_id,student_name,lesson_location,credit,lesson_status,entry,score,total_time,lesson_mode,exit,session_time"),
		"cmi.core.student_id":      ro(learnerID),
		"cmi.core.student_name":    ro(learnerName),
		"cmi.core.lesson_location": rwDefault(str(255), ""),
		"cmi.core.credit":          ro("credit"),
		"cmi.core.lesson_status":   rwDefault(status12, "not attempted"),
		"cmi.core.entry":           ro("ab-initio"),
		"cmi.core.score._children": kids("raw,min,max"),
		"cmi.core.score.raw":       rwDefault(score12, ""),
		"cmi.core.score.min":       rwDefault(score12, ""),
		"cmi.core.score.max":       rwDefault(score12, ""),
		"cmi.core.total_time":      ro("0000:00:00.00"),
		"cmi.core.lesson_mode":     ro("normal"),
		"cmi.core.exit":            wo(vocab("time-out", "suspend", "logout", "")),
		"cmi.core.session_time":    wo(timespan12),
		"cmi.suspend_data":         rwDefault(str(4096), ""),
		"cmi.launch_data":          ro(""),
		"cmi.comments":             rwDefault(str(4096), ""),
		"cmi.comments_from_lms":    ro(""),

		"cmi.student_data._children":         kids("mastery_score,max_time_allowed,time_limit_action"),
		"cmi.student_data.mastery_score":     ro(""),
		"cmi.student_data.max_time_allowed":  ro(""),
		"cmi.student_data.time_limit_action": ro(""),

		"cmi.objectives._children":         kids("id,score,status"),
		"cmi.objectives._count":            counter(),
		"cmi.objectives.n.id":              rw(identifier12),
		"cmi.objectives.n.score._children": kids("raw,min,max"),
		"cmi.objectives.n.score.raw":       rwDefault(score12, ""),
		"cmi.objectives.n.score.min":       rwDefault(score12, ""),
		"cmi.objectives.n.score.max":       rwDefault(score12, ""),
		"cmi.objectives.n.status":          rwDefault(status12, "not attempted"),

		"cmi.interactions._children":                     kids("id,objectives,time,type,correct_responses,weighting,student_response,result,latency"),
		"cmi.interactions._count":                        counter(),
		"cmi.interactions.n.id":                          wo(identifier12),
		"cmi.interactions.n.objectives._count":           counter(),
		"cmi.interactions.n.objectives.n.id":             wo(identifier12),
		"cmi.interactions.n.time":                        wo(time12),
		"cmi.interactions.n.type":                        wo(interactionType),
		"cmi.interactions.n.correct_responses._count":    counter(),
		"cmi.interactions.n.correct_responses.n.pattern": wo(str(255)),
		"cmi.interactions.n.weighting":                   wo(anyReal),
		"cmi.interactions.n.student_response":            wo(str(255)),
		"cmi.interactions.n.result":                      wo(result12),
		"cmi.interactions.n.latency":                     wo(timespan12),
	}
}

// normalize replaces numeric segments of element with "n" and returns the
// indices in order, together with the collection path owning each index.
func normalize(element string) (string, []int, []string) {
	segs := strings.Split(element, ".")
	name := make([]string, len(segs))
	copy(name, segs)
	var idx []int
	var owners []string
	for i, seg := range segs {
		n, err := strconv.Atoi(seg)
		if err != nil || seg == "" || (len(seg) > 1 && seg[0] == '0') || n < 0 {
			continue
		}
		idx = append(idx, n)
		// Owners keep the concrete indices of enclosing records.
		owners = append(owners, strings.Join(segs[:i], "."))
		name[i] = "n"
	}
	return strings.Join(name, "."), idx, owners
}
