package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/services"
	"github.com/ochairo/patchpilot/internal/external-adapters/shell"
)

type classificationJSON struct {
	Recognized    bool                     `json:"recognized"`
	DepthExceeded bool                     `json:"depth_exceeded"`
	Packages      []entities.ParsedPackage `json:"packages"`
}

// runClassify prints the packages a command installs or runs, without any lookup
func runClassify(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("classify", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	jsonOutput := fs.BoolP("json", "j", false, "Output the classification as JSON")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: patchpilot classify [options] <command>

Show which packages a shell command would install or execute.
No network access; exits 1 when nothing is recognized.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	command := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(command) == "" {
		fmt.Fprintf(stderr, "Error: a command is required\n\n")
		fs.Usage()
		return 1
	}

	classifier := services.NewClassifierService(shell.NewTokenizer())
	classification := classifier.Classify(command)

	if *jsonOutput {
		out := classificationJSON{
			Recognized:    classification.Recognized(),
			DepthExceeded: classification.DepthExceeded,
			Packages:      classification.Packages,
		}
		if out.Packages == nil {
			out.Packages = []entities.ParsedPackage{}
		}
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		if !classification.Recognized() {
			fmt.Fprintln(stdout, styleFaint.Render("No package installation or execution recognized."))
		}
		for _, pkg := range classification.Packages {
			version := pkg.Version
			if version == "" {
				version = styleFaint.Render("(unpinned)")
			}
			fmt.Fprintf(stdout, "%-9s %-30s %s\n", pkg.Ecosystem, pkg.Name, version)
		}
		if classification.DepthExceeded {
			fmt.Fprintln(stdout, styleAsk.Render("⚠️  Nesting limit reached; part of the command was not inspected"))
		}
	}

	if !classification.Recognized() {
		return 1
	}
	return 0
}
