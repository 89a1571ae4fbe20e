package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	ctx := context.Background()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches to a subcommand; with no arguments the host hook runs
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return runHook(ctx, stdin, stdout, newApp)
	}

	command := args[0]
	switch command {
	case "hook":
		return runHook(ctx, stdin, stdout, newApp)
	case "check":
		return runCheck(ctx, args[1:], stdout, stderr)
	case "classify":
		return runClassify(args[1:], stdout, stderr)
	case "verify-policy":
		return runVerifyPolicy(ctx, args[1:], stdout, stderr)
	case "version":
		return runVersion(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `patchpilot - Vulnerability gate for package installs in agent shell commands

Usage:
  patchpilot [command] [options]

Commands:
  hook            Read a PreToolUse event on stdin and answer allow, ask or deny (default)
  check           Classify a command and check its packages, printing a report
  classify        Show which packages a command would install or run
  verify-policy   Verify the policy file's signature and syntax
  version         Print version information

Configuration is read from PATCHPILOT_* environment variables.
Use "patchpilot <command> --help" for more information about a command.`)
}
