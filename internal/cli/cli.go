package cli

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/entangled/brei/internal/app"
	"github.com/entangled/brei/internal/task"
)

// Version is the release identifier reported by --version.
const Version = "0.3.0"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("brei", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Brei - a portable, lazy, concurrent workflow runner.

Usage:
  brei [options] TARGET...

Arguments:
  TARGET
    Goal to run: a file path, a '#name' phony target, or 'var(name)'.

Options:
`)
		flagSet.PrintDefaults()
	}

	inputFlag := flagSet.String("input-file", "", "Program TOML, JSON or YAML file; use a `[...]` suffix to select a subsection.")
	iFlag := flagSet.String("i", "", "Program file (shorthand).")
	forceFlag := flagSet.Bool("force-run", false, "Rebuild all dependencies.")
	bFlag := flagSet.Bool("B", false, "Rebuild all dependencies (shorthand).")
	jobsFlag := flagSet.Int("jobs", 0, "Limit the number of concurrent jobs. 0 is unlimited.")
	jFlag := flagSet.Int("j", 0, "Limit the number of concurrent jobs (shorthand).")
	listRunnersFlag := flagSet.Bool("list-runners", false, "Show the default configured runners and exit.")
	versionFlag := flagSet.Bool("version", false, "Print the version number and exit.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	debugFlag := flagSet.Bool("debug", false, "More verbose logging; same as -log-level=debug.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *versionFlag {
		fmt.Fprintf(output, "Brei %s\n", Version)
		return nil, true, nil
	}
	if *listRunnersFlag {
		printRunners(output)
		return nil, true, nil
	}

	input := *inputFlag
	if input == "" {
		input = *iFlag
	}
	jobs := *jobsFlag
	if jobs == 0 {
		jobs = *jFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *debugFlag {
		logLevel = "debug"
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		InputFile: input,
		Targets:   flagSet.Args(),
		ForceRun:  *forceFlag || *bFlag,
		Jobs:      jobs,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}

// printRunners renders the default runner table.
func printRunners(output io.Writer) {
	header := color.New(color.Italic, color.FgGreen).SprintFunc()
	name := color.New(color.Bold, color.FgYellow).SprintFunc()

	fmt.Fprintf(output, "%s\n", header("Default Runners"))
	runners := task.DefaultRunners()
	keys := make([]string, 0, len(runners))
	for k := range runners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := runners[k]
		fmt.Fprintf(output, "  %s\t%s\t%v\n", name(k), r.Command, r.Args)
	}
}
