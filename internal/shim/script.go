package shim

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/goccy/go-json"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// ScriptName is the asset name of the runtime script template.
const ScriptName = "scorm_api"

// ScriptLoader provides the runtime script template.
type ScriptLoader interface {
	LoadScript(name string) (string, error)
}

// scriptConfig is the literal injected into the runtime script.
type scriptConfig struct {
	Version               string   `json:"version"`
	Prefer                []string `json:"prefer"`
	MaxHops               int      `json:"maxHops"`
	Attempts              int      `json:"attempts"`
	BackoffMs             int64    `json:"backoffMs"`
	SkipOpener            bool     `json:"skipOpener"`
	CompletionThreshold   float64  `json:"completionThreshold"`
	ProgressCap           float64  `json:"progressCap"`
	ScrollComplete        int      `json:"scrollComplete"`
	DwellCompleteMs       int64    `json:"dwellCompleteMs"`
	DwellScroll           int      `json:"dwellScroll"`
	DwellIntervalMs       int64    `json:"dwellIntervalMs"`
	SessionTimeIntervalMs int64    `json:"sessionTimeIntervalMs"`
	CommitIntervalMs      int64    `json:"commitIntervalMs"`
	Debug                 bool     `json:"debug"`
}

func newScriptConfig(v scorm.Version, o Options) scriptConfig {
	o = o.WithDefaults()
	prefer := make([]string, 0, len(o.Discover.Prefer))
	for _, p := range o.Discover.Prefer {
		prefer = append(prefer, p.String())
	}
	return scriptConfig{
		Version:               v.String(),
		Prefer:                prefer,
		MaxHops:               o.Discover.MaxHops,
		Attempts:              o.Discover.Attempts,
		BackoffMs:             ms(o.Discover.Backoff),
		SkipOpener:            o.Discover.SkipOpener,
		CompletionThreshold:   o.CompletionThreshold,
		ProgressCap:           o.ProgressCap,
		ScrollComplete:        o.ScrollComplete,
		DwellCompleteMs:       ms(o.DwellComplete),
		DwellScroll:           o.DwellScroll,
		DwellIntervalMs:       ms(o.DwellInterval),
		SessionTimeIntervalMs: ms(o.SessionTimeInterval),
		CommitIntervalMs:      ms(o.CommitInterval),
		Debug:                 o.Debug,
	}
}

func ms(d time.Duration) int64 {
	return d.Milliseconds()
}

// Render produces scorm_api.js for version v. A nil loader uses the
// embedded script.
func Render(loader ScriptLoader, v scorm.Version, o Options) ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", scorm.ErrInvalidVersion, v)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		loader = assets.NewEmbeddedLoader()
	}

	src, err := loader.LoadScript(ScriptName)
	if err != nil {
		return nil, fmt.Errorf("loading runtime script: %w", err)
	}
	tmpl, err := template.New(ScriptName).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing runtime script: %w", err)
	}

	cfg, err := json.Marshal(newScriptConfig(v, o))
	if err != nil {
		return nil, fmt.Errorf("encoding runtime config: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Config string }{string(cfg)}); err != nil {
		return nil, fmt.Errorf("rendering runtime script: %w", err)
	}
	return buf.Bytes(), nil
}
