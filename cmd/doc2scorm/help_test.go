package main

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunHelp - Per-command help
// ---------------------------------------------------------------------------

func TestRunHelp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want string
	}{
		{nil, "Run 'doc2scorm help <command>'"},
		{[]string{"convert"}, "--scorm-version"},
		{[]string{"convert"}, "DOC2SCORM_VERSION"},
		{[]string{"inspect"}, "Usage: doc2scorm inspect <package.zip>"},
		{[]string{"verify"}, "--simulate"},
		{[]string{"doctor"}, "Usage: doc2scorm doctor"},
		{[]string{"completion"}, "Supported shells:"},
		{[]string{"version"}, "Show version information."},
		{[]string{"help"}, "Usage: doc2scorm help [command]"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			if code := runHelp(tt.args, env.Environment); code != ExitSuccess {
				t.Fatalf("runHelp(%v) = %d", tt.args, code)
			}
			if !strings.Contains(env.stdout.String(), tt.want) {
				t.Errorf("runHelp(%v) output missing %q:\n%s", tt.args, tt.want, env.stdout.String())
			}
		})
	}
}
