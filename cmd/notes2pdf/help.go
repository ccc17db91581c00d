package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: notes2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export       Export notes to PDF (pandoc + typst)")
	fmt.Fprintln(w, "  doctor       Check that pandoc, typst and pdftocairo are usable")
	fmt.Fprintln(w, "  check-path   Validate an output folder or executable path")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w, "  help         Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'notes2pdf help <command>' for details on a specific command.")
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: notes2pdf export <file|dir>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export notes of a vault to PDF. Directories are searched for .md and")
	fmt.Fprintln(w, ".markdown files; hidden directories and the output folder are skipped.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Vault and output:")
	fmt.Fprintln(w, "      --vault <dir>         Vault root (default: current directory)")
	fmt.Fprintln(w, "  -o, --output <folder>     Output folder relative to the vault (default: exports)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --keep-intermediate   Keep the .md/.typ/.png work files")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: a4, letter, legal, a5, ... (default: a4)")
	fmt.Fprintln(w, "      --dpi <n>             Resolution of embedded PDF pages (36-600)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Execution:")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel documents (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Timeout per tool run (e.g., 90s, 2m)")
	fmt.Fprintln(w, "      --fail-fast           Stop at the first failed document")
	fmt.Fprintln(w)
	printToolFlags(w)
	printCommonFlags(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  NOTES2PDF_CONFIG, NOTES2PDF_VAULT, NOTES2PDF_OUTPUT_FOLDER, NOTES2PDF_PAGE_SIZE,")
	fmt.Fprintln(w, "  NOTES2PDF_WORKERS, NOTES2PDF_TIMEOUT, NOTES2PDF_RASTER_DPI,")
	fmt.Fprintln(w, "  NOTES2PDF_PANDOC_PATH, NOTES2PDF_TYPST_PATH, NOTES2PDF_PDFTOCAIRO_PATH")
	fmt.Fprintln(w, "  Precedence: flags > environment > config file > defaults.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  notes2pdf export --vault ~/notes ~/notes/projects")
	fmt.Fprintln(w, "  notes2pdf export -p letter -o pdf/2024 note.md")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: notes2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Report whether each external tool is found, its version, and how to")
	fmt.Fprintln(w, "install what is missing. Exits 1 when pandoc or typst is unavailable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Print the report as JSON")
	fmt.Fprintln(w, "      --watch               Re-run when the config file changes")
	fmt.Fprintln(w)
	printToolFlags(w)
	printCommonFlags(w)
}

// printCheckPathUsage prints usage for the check-path command.
func printCheckPathUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: notes2pdf check-path [--executable] <path>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Validate a path without touching the filesystem. Output folders must be")
	fmt.Fprintln(w, "relative, without '..', reserved names or control characters; executable")
	fmt.Fprintln(w, "paths must not contain shell metacharacters.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --executable          Validate as an executable path")
}

func printToolFlags(w io.Writer) {
	fmt.Fprintln(w, "Tools:")
	fmt.Fprintln(w, "      --pandoc <path>       pandoc executable path or name")
	fmt.Fprintln(w, "      --typst <path>        typst executable path or name")
	fmt.Fprintln(w, "      --pdftocairo <path>   pdftocairo executable path or name")
	fmt.Fprintln(w)
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Output control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show commands and timings")
	fmt.Fprintln(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "export":
		printExportUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "check-path":
		printCheckPathUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: notes2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: notes2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
