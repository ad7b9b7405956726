// Command greenhouse-log views and analyzes greenhouse event traces.
//
// Trace files are written by the greenhouse daemon when it runs with the
// -trace flag.
//
// Usage:
//
//	greenhouse-log <command> [flags] <trace.cbor>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSON or CSV format
//	filter   Filter trace and write to new file
//	stats    Show statistics about the trace
//
// Examples:
//
//	# View all events
//	greenhouse-log view trace.cbor
//
//	# Follow a single write through its lifecycle
//	greenhouse-log view -write-id 2f1c9a7e-... trace.cbor
//
//	# View only writes to the temperature setpoint
//	greenhouse-log view -category write -field setpointTemp trace.cbor
//
//	# Export to CSV
//	greenhouse-log export -format csv -o trace.csv trace.cbor
//
//	# Keep one session only
//	greenhouse-log filter -session 2f1c9a7e-... -o session.cbor trace.cbor
//
//	# Show statistics
//	greenhouse-log stats trace.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/siriussoftware2024/controlinvernadero/cmd/greenhouse-log/commands"
)

const usage = `greenhouse-log - Greenhouse Trace Analyzer

Usage:
  greenhouse-log <command> [flags] <trace.cbor>

Commands:
  view     View trace in human-readable format
  export   Export trace to JSON or CSV format
  filter   Filter trace and write to new file
  stats    Show statistics about the trace

Use "greenhouse-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// tracePath returns the single positional argument or exits.
func tracePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `greenhouse-log view - View trace in human-readable format

Usage:
  greenhouse-log view [flags] <trace.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	source := fs.String("source", "", "Filter by source (poller, dispatcher, reconciler, timer)")
	category := fs.String("category", "", "Filter by category (snapshot, write, connection, error)")
	fieldKey := fs.String("field", "", "Filter by field key (e.g. bulbOn)")
	writeID := fs.String("write-id", "", "Filter by write ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := tracePath(fs)

	filter := commands.ViewFilter{WriteID: *writeID}

	if *source != "" {
		s, err := commands.ParseSourceFlag(*source)
		if err != nil {
			fail(err)
		}
		filter.Source = &s
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if *fieldKey != "" {
		key, err := commands.ParseFieldFlag(*fieldKey)
		if err != nil {
			fail(err)
		}
		filter.Field = key
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `greenhouse-log export - Export trace to JSON or CSV format

Usage:
  greenhouse-log export [flags] <trace.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := tracePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `greenhouse-log filter - Filter trace and write to new file

Usage:
  greenhouse-log filter [flags] <trace.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	session := fs.String("session", "", "Filter by session ID")
	fieldKey := fs.String("field", "", "Filter by field key")
	writeID := fs.String("write-id", "", "Filter by write ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	source := fs.String("source", "", "Filter by source (poller, dispatcher, reconciler, timer)")
	category := fs.String("category", "", "Filter by category (snapshot, write, connection, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := tracePath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		SessionID: *session,
		Field:     *fieldKey,
		WriteID:   *writeID,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Source:    *source,
		Category:  *category,
	}

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `greenhouse-log stats - Show statistics about the trace

Usage:
  greenhouse-log stats <trace.cbor>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := tracePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
