package cmi

import (
	"strconv"
	"strings"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Record is one interaction or objective, keyed by sub-element name
// (for example "id", "type" or "score.raw").
type Record map[string]string

// Snapshot is the tracked state of an attempt.
type Snapshot struct {
	Version      scorm.Version `json:"version"`
	Initialized  bool          `json:"initialized"`
	Terminated   bool          `json:"terminated"`
	Commits      int           `json:"commits"`
	Completion   string        `json:"completion"`
	Success      string        `json:"success,omitempty"`
	Progress     string        `json:"progress,omitempty"`
	ScoreRaw     string        `json:"scoreRaw,omitempty"`
	ScoreScaled  string        `json:"scoreScaled,omitempty"`
	Location     string        `json:"location,omitempty"`
	SessionTime  string        `json:"sessionTime,omitempty"`
	Exit         string        `json:"exit"`
	SuspendData  string        `json:"suspendData,omitempty"`
	Interactions []Record      `json:"interactions,omitempty"`
	Objectives   []Record      `json:"objectives,omitempty"`
	Calls        int           `json:"calls"`
	Errors       int           `json:"errors"`
}

// Snapshot returns the current tracked state.
func (d *DataModel) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := d.version.Elements()
	s := Snapshot{
		Version:     d.version,
		Initialized: d.state != notInitialized,
		Terminated:  d.state == terminated,
		Commits:     d.commits,
		Completion:  d.values[el.CompletionStatus],
		Success:     d.values[el.SuccessStatus],
		Progress:    d.values[el.ProgressMeasure],
		ScoreRaw:    d.values[el.ScoreRaw],
		ScoreScaled: d.values[el.ScoreScaled],
		Location:    d.values[el.Location],
		SessionTime: d.values[el.SessionTime],
		Exit:        d.values[el.Exit],
		SuspendData: d.values[el.SuspendData],
		Calls:       len(d.calls),
	}
	for _, c := range d.calls {
		if c.Error != NoError.String() {
			s.Errors++
		}
	}
	s.Interactions = d.records(el.Interactions)
	s.Objectives = d.records(el.Objectives)
	return s
}

func (d *DataModel) records(collection string) []Record {
	n := d.counts[collection]
	if n == 0 {
		return nil
	}
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{}
	}
	prefix := collection + "."
	for _, name := range d.elementsWithPrefix(prefix) {
		rest := strings.TrimPrefix(name, prefix)
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			continue
		}
		i, err := strconv.Atoi(rest[:dot])
		if err != nil || i >= n {
			continue
		}
		out[i][rest[dot+1:]] = d.values[name]
	}
	return out
}
