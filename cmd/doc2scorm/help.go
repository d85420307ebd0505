package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Package documents as SCORM courses")
	fmt.Fprintln(w, "  inspect     Show a package's manifest and check it")
	fmt.Fprintln(w, "  verify      Check a package and play it against a test LMS")
	fmt.Fprintln(w, "  doctor      Check PDF tools, browser and environment")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'doc2scorm help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm convert <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Package an HTML, PDF, DOCX or Markdown document as a SCORM course.")
	fmt.Fprintln(w, "A directory converts every supported file below it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>         Output .zip file or directory")
	fmt.Fprintln(w, "  -c, --config <name>         Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>           Parallel workers (0 = auto)")
	fmt.Fprintln(w, "      --type <type>           Input type for a single file: html, htm, pdf, docx, md")
	fmt.Fprintln(w, "      --max-size <size>       Maximum input size, e.g. 10MB")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Course:")
	fmt.Fprintln(w, "  -t, --title <s>             Course title (default: from the document)")
	fmt.Fprintln(w, "  -V, --scorm-version <v>     SCORM version: 1.2, 2004 (default: 2004)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Content:")
	fmt.Fprintln(w, "      --no-resources          Do not copy files referenced by HTML")
	fmt.Fprintln(w, "      --pdf-scale <f>         PDF page render scale (0.5-6.0)")
	fmt.Fprintln(w, "      --include-pdf           Package the original PDF with a download link")
	fmt.Fprintln(w, "      --dwell-seconds <n>     DOCX seconds on the viewer before completion")
	fmt.Fprintln(w, "      --asset-path <dir>      Custom templates, style and script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "      --keep-workdir          Keep the work directory for debugging")
	fmt.Fprintln(w, "  -q, --quiet                 Only show errors")
	fmt.Fprintln(w, "  -v, --verbose               Show debug logs and timing")
	fmt.Fprintln(w, "      --log-format <f>        Log format: text, json, logfmt")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  DOC2SCORM_VERSION, DOC2SCORM_MAX_INPUT_SIZE, DOC2SCORM_TEMP_DIR,")
	fmt.Fprintln(w, "  DOC2SCORM_RETAIN_WORKDIR override the config file; flags override both.")
}

// printInspectUsage prints usage for the inspect command.
func printInspectUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm inspect <package.zip> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show the manifest of a package and check it against the archive.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                  Print the report as JSON")
	fmt.Fprintln(w, "  -v, --verbose               List every file")
}

// printVerifyUsage prints usage for the verify command.
func printVerifyUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm verify <package.zip> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check a package, then play it in headless Chrome against a recording")
	fmt.Fprintln(w, "LMS and judge every API call against the SCORM data model.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --simulate              Run the tracking model without a browser")
	fmt.Fprintln(w, "      --dwell <d>             Time on the content before and after scrolling (default: 2s)")
	fmt.Fprintln(w, "      --timeout <d>           Browser page timeout (default: 30s)")
	fmt.Fprintln(w, "      --json                  Print the report as JSON")
	fmt.Fprintln(w, "  -c, --config <name>         Config file for --simulate runtime settings")
	fmt.Fprintln(w, "  -v, --verbose               List every API call")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: doc2scorm doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check PDF tools, browser, temp directory and container/CI settings.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "inspect":
		printInspectUsage(env.Stdout)
	case "verify":
		printVerifyUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: doc2scorm version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: doc2scorm help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
