package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string
	Short    string
	Type     flagType
	Desc     string
	Values   []string
	FileGlob string
}

// commandDef describes a command for completion.
type commandDef struct {
	Name     string
	Desc     string
	Flags    []flagDef
	ArgGlob  string   // glob for file arguments, empty if none
	ArgWords []string // fixed positional words
}

// completionMeta holds completion hints the FlagSet cannot express.
type completionMeta struct {
	Values   []string
	FileGlob string
	IsDir    bool
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"scorm-version": {Values: []string{"1.2", "2004"}},
	"type":          {Values: []string{"html", "htm", "pdf", "docx", "md"}},
	"log-format":    {Values: []string{"text", "json", "logfmt"}},
	"config":        {FileGlob: "*.yaml,*.yml"},
	"output":        {IsDir: true},
	"asset-path":    {IsDir: true},
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet,
// enriched with flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}
		if f.Value.Type() == "bool" {
			fd.Type = flagBool
		}
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type, fd.Values = flagEnum, meta.Values
			case meta.FileGlob != "":
				fd.Type, fd.FileGlob = flagFile, meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry. Flags come from the same
// registration functions the commands parse with.
func getCommands() []commandDef {
	convertFS := flag.NewFlagSet("convert", flag.ContinueOnError)
	addConvertFlags(convertFS, &convertFlags{})
	inspectFS := flag.NewFlagSet("inspect", flag.ContinueOnError)
	addInspectFlags(inspectFS, &inspectFlags{})
	verifyFS := flag.NewFlagSet("verify", flag.ContinueOnError)
	addVerifyFlags(verifyFS, &verifyFlags{})
	doctorFS := flag.NewFlagSet("doctor", flag.ContinueOnError)
	doctorFS.Bool("json", false, "print the report as JSON")

	return []commandDef{
		{Name: "convert", Desc: "Package documents as SCORM courses", Flags: extractFlagsFromFlagSet(convertFS), ArgGlob: "*.html,*.htm,*.pdf,*.docx,*.md,*.markdown"},
		{Name: "inspect", Desc: "Show a package's manifest and check it", Flags: extractFlagsFromFlagSet(inspectFS), ArgGlob: "*.zip"},
		{Name: "verify", Desc: "Check a package and play it against a test LMS", Flags: extractFlagsFromFlagSet(verifyFS), ArgGlob: "*.zip"},
		{Name: "doctor", Desc: "Check PDF tools, browser and environment", Flags: extractFlagsFromFlagSet(doctorFS)},
		{Name: "completion", Desc: "Generate shell completion script", ArgWords: []string{"bash", "zsh", "fish"}},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command", ArgWords: []string{"convert", "inspect", "verify", "doctor", "completion", "version"}},
	}
}

// GenerateCompletion writes a shell completion script to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = generateBash(getCommands())
	case ShellZsh:
		script = generateZsh(getCommands())
	case ShellFish:
		script = generateFish(getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

func generateBash(cmds []commandDef) string {
	var b strings.Builder
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}

	b.WriteString("# bash completion for doc2scorm\n")
	b.WriteString("_doc2scorm() {\n")
	b.WriteString("  local cur prev cmd\n")
	b.WriteString("  cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("  prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("  cmd=\"${COMP_WORDS[1]}\"\n")
	b.WriteString("  if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "    COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(names, " "))
	b.WriteString("    return\n  fi\n")
	b.WriteString("  case \"$cmd\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		var valued []string
		for _, f := range c.Flags {
			if f.Type == flagBool {
				continue
			}
			pattern := "--" + f.Long
			if f.Short != "" {
				pattern += "|-" + f.Short
			}
			switch f.Type {
			case flagEnum:
				valued = append(valued, fmt.Sprintf("        %s) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;", pattern, strings.Join(f.Values, " ")))
			case flagDir:
				valued = append(valued, fmt.Sprintf("        %s) COMPREPLY=($(compgen -d -- \"$cur\")); return ;;", pattern))
			case flagFile:
				valued = append(valued, fmt.Sprintf("        %s) COMPREPLY=($(compgen -f -X '%s' -- \"$cur\")); return ;;", pattern, bashExclude(f.FileGlob)))
			default:
				valued = append(valued, fmt.Sprintf("        %s) return ;;", pattern))
			}
		}
		if len(valued) > 0 {
			b.WriteString("      case \"$prev\" in\n")
			b.WriteString(strings.Join(valued, "\n") + "\n")
			b.WriteString("      esac\n")
		}

		var words []string
		for _, f := range c.Flags {
			words = append(words, "--"+f.Long)
			if f.Short != "" {
				words = append(words, "-"+f.Short)
			}
		}
		if len(words) > 0 {
			b.WriteString("      if [[ \"$cur\" == -* ]]; then\n")
			fmt.Fprintf(&b, "        COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(words, " "))
			b.WriteString("        return\n      fi\n")
		}
		switch {
		case c.ArgGlob != "":
			fmt.Fprintf(&b, "      COMPREPLY=($(compgen -f -X '%s' -- \"$cur\"))\n", bashExclude(c.ArgGlob))
		case len(c.ArgWords) > 0:
			fmt.Fprintf(&b, "      COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(c.ArgWords, " "))
		}
		b.WriteString("      ;;\n")
	}

	b.WriteString("  esac\n")
	b.WriteString("}\n")
	b.WriteString("complete -o filenames -F _doc2scorm doc2scorm\n")
	return b.String()
}

// bashExclude turns "*.a,*.b" into the compgen -X pattern "!*.@(a|b)".
func bashExclude(glob string) string {
	var exts []string
	for _, g := range strings.Split(glob, ",") {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(g), "*."))
	}
	return "!*.@(" + strings.Join(exts, "|") + ")"
}

func generateZsh(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("#compdef doc2scorm\n\n")
	b.WriteString("_doc2scorm() {\n")
	b.WriteString("  local -a commands\n")
	b.WriteString("  commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "    '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("  )\n\n")
	b.WriteString("  if (( CURRENT == 2 )); then\n")
	b.WriteString("    _describe 'command' commands\n")
	b.WriteString("    return\n  fi\n\n")
	b.WriteString("  local cmd=$words[2]\n")
	b.WriteString("  shift words\n")
	b.WriteString("  (( CURRENT-- ))\n\n")
	b.WriteString("  case $cmd in\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		specs := make([]string, 0, len(c.Flags)+1)
		for _, f := range c.Flags {
			specs = append(specs, zshFlagSpec(f))
		}
		switch {
		case c.ArgGlob != "":
			specs = append(specs, fmt.Sprintf("'*:file:_files -g \"%s\"'", zshGlob(c.ArgGlob)))
		case len(c.ArgWords) > 0:
			specs = append(specs, fmt.Sprintf("'1:argument:(%s)'", strings.Join(c.ArgWords, " ")))
		}
		if len(specs) == 0 {
			b.WriteString("      ;;\n")
			continue
		}
		b.WriteString("      _arguments \\\n        ")
		b.WriteString(strings.Join(specs, " \\\n        "))
		b.WriteString("\n      ;;\n")
	}

	b.WriteString("  esac\n")
	b.WriteString("}\n\n")
	b.WriteString("if [ \"$funcstack[1]\" = \"_doc2scorm\" ]; then\n")
	b.WriteString("  _doc2scorm \"$@\"\n")
	b.WriteString("else\n")
	b.WriteString("  compdef _doc2scorm doc2scorm\n")
	b.WriteString("fi\n")
	return b.String()
}

func zshFlagSpec(f flagDef) string {
	desc := "[" + zshEscape(f.Desc) + "]"
	var action string
	switch f.Type {
	case flagBool:
	case flagEnum:
		action = ":value:(" + strings.Join(f.Values, " ") + ")"
	case flagDir:
		action = ":directory:_files -/"
	case flagFile:
		action = ":file:_files -g \"" + zshGlob(f.FileGlob) + "\""
	default:
		action = ":value: "
	}
	if f.Short == "" {
		return "'--" + f.Long + desc + action + "'"
	}
	return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'%s%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
}

// zshGlob turns "*.a,*.b" into "*.(a|b)".
func zshGlob(glob string) string {
	var exts []string
	for _, g := range strings.Split(glob, ",") {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(g), "*."))
	}
	if len(exts) == 1 {
		return "*." + exts[0]
	}
	return "*.(" + strings.Join(exts, "|") + ")"
}

func zshEscape(s string) string {
	r := strings.NewReplacer("'", "'\\''", "[", "\\[", "]", "\\]", ":", "\\:")
	return r.Replace(s)
}

func generateFish(cmds []commandDef) string {
	var b strings.Builder
	b.WriteString("# fish completion for doc2scorm\n")
	b.WriteString("complete -c doc2scorm -f\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c doc2scorm -n __fish_use_subcommand -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	for _, c := range cmds {
		cond := fmt.Sprintf("'__fish_seen_subcommand_from %s'", c.Name)
		for _, f := range c.Flags {
			line := "complete -c doc2scorm -n " + cond
			if f.Short != "" {
				line += " -s " + f.Short
			}
			line += " -l " + f.Long + " -d '" + fishEscape(f.Desc) + "'"
			switch f.Type {
			case flagEnum:
				line += " -x -a '" + strings.Join(f.Values, " ") + "'"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			case flagFile, flagString:
				line += " -r -F"
			}
			b.WriteString(line + "\n")
		}
		switch {
		case c.ArgGlob != "":
			fmt.Fprintf(&b, "complete -c doc2scorm -n %s -F\n", cond)
		case len(c.ArgWords) > 0:
			fmt.Fprintf(&b, "complete -c doc2scorm -n %s -x -a '%s'\n", cond, strings.Join(c.ArgWords, " "))
		}
	}
	return b.String()
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(doc2scorm completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(doc2scorm completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    doc2scorm completion fish > ~/.config/fish/completions/doc2scorm.fish")
}
