package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	orchestrators "github.com/ochairo/patchpilot/internal/domain-orchestrators"
	"github.com/ochairo/patchpilot/internal/domain/entities"
)

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	var (
		jsonOutput  = fs.BoolP("json", "j", false, "Output the result as JSON")
		minSeverity = fs.StringP("min-severity", "s", "LOW", "Only list vulnerabilities at or above this severity")
		verbose     = fs.BoolP("verbose", "v", false, "Show vulnerability summaries")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: patchpilot check [options] <command>

Classify a shell command, look up its packages and apply the policy,
exactly as the hook would.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  patchpilot check npm install lodash@4.17.20
  patchpilot check --json -- "pip install requests==2.19.0 && npx cowsay hi"
`)
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

	threshold := entities.ParseSeverity(*minSeverity)
	if threshold == entities.SeverityUnknown && !strings.EqualFold(*minSeverity, "UNKNOWN") {
		fmt.Fprintf(stderr, "Error: unknown severity %q\n", *minSeverity)
		return 1
	}

	a, err := loadApp(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	result := a.guard.Inspect(ctx, command)
	for i, check := range result.Checks {
		if check.Report != nil {
			filtered := *check.Report
			filtered.Vulnerabilities = a.security.FilterVulnerabilities(check.Report.Vulnerabilities, threshold)
			result.Checks[i].Report = &filtered
		}
	}

	if *jsonOutput {
		if err := writeCheckJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		displayCheckResult(stdout, result, *verbose)
	}

	if result.Decision.Decision == entities.DecisionDeny {
		return 2
	}
	return 0
}

func displayCheckResult(w io.Writer, result *orchestrators.GuardResult, verbose bool) {
	decision := result.Decision.Decision
	fmt.Fprintf(w, "%s %s\n\n", decisionStyle(decision).Render(strings.ToUpper(string(decision))), result.Decision.Reason)

	if !result.Classification.Recognized() {
		return
	}

	fmt.Fprintln(w, styleHeading.Render("📦 Packages"))
	for _, pkg := range result.Skipped {
		fmt.Fprintf(w, "   %-30s %s\n", pkg.String(), styleFaint.Render(string(pkg.Ecosystem)+", settled by policy list"))
	}
	for _, check := range result.Checks {
		label := check.Package.String()
		switch check.Status {
		case entities.CheckFailed:
			fmt.Fprintf(w, "   %-30s %s\n", label, styleDeny.Render("lookup failed: "+check.Err.Error()))
			continue
		case entities.CheckUnchecked:
			fmt.Fprintf(w, "   %-30s %s\n", label, styleFaint.Render(string(check.Package.Ecosystem)+", no vulnerability database"))
			continue
		}

		if check.Report.QueriedVersion != "" && check.Report.QueriedVersion != check.Package.Version {
			label += " → " + check.Report.QueriedVersion
		}
		fmt.Fprintf(w, "   %-30s %d vulnerabilities\n", label, len(check.Report.Vulnerabilities))
		for _, vuln := range check.Report.Vulnerabilities {
			style, ok := severityStyles[vuln.Severity]
			if !ok {
				style = styleFaint
			}
			line := fmt.Sprintf("      %s %s", style.Render(fmt.Sprintf("%-8s", vuln.Severity)), vuln.ID)
			if vuln.FixedIn != "" {
				line += styleFaint.Render(" (fixed in " + vuln.FixedIn + ")")
			}
			fmt.Fprintln(w, line)
			if verbose && vuln.Summary != "" {
				fmt.Fprintf(w, "         %s\n", vuln.Summary)
			}
		}
	}

	if result.Classification.DepthExceeded {
		fmt.Fprintln(w, styleAsk.Render("\n   ⚠️  Nesting limit reached; part of the command was not inspected"))
	}
	fmt.Fprintf(w, "\n%s\n", styleFaint.Render(fmt.Sprintf("Duration: %v", result.Duration.Round(time.Millisecond))))
}

type checkJSON struct {
	Command       string             `json:"command"`
	Decision      entities.Decision  `json:"decision"`
	Reason        string             `json:"reason"`
	Recognized    bool               `json:"recognized"`
	DepthExceeded bool               `json:"depth_exceeded"`
	Packages      []checkPackageJSON `json:"packages"`
	DurationMS    int64              `json:"duration_ms"`
}

type checkPackageJSON struct {
	Name            string              `json:"name"`
	Version         string              `json:"version,omitempty"`
	Ecosystem       entities.Ecosystem  `json:"ecosystem"`
	Status          string              `json:"status"`
	QueriedVersion  string              `json:"queried_version,omitempty"`
	Error           string              `json:"error,omitempty"`
	Vulnerabilities []vulnerabilityJSON `json:"vulnerabilities,omitempty"`
}

type vulnerabilityJSON struct {
	ID       string            `json:"id"`
	Severity entities.Severity `json:"severity"`
	Score    float64           `json:"score,omitempty"`
	Summary  string            `json:"summary,omitempty"`
	FixedIn  string            `json:"fixed_in,omitempty"`
	Aliases  []string          `json:"aliases,omitempty"`
}

func writeCheckJSON(w io.Writer, result *orchestrators.GuardResult) error {
	out := checkJSON{
		Command:       result.Command,
		Decision:      result.Decision.Decision,
		Reason:        result.Decision.Reason,
		Recognized:    result.Classification.Recognized(),
		DepthExceeded: result.Classification.DepthExceeded,
		Packages:      make([]checkPackageJSON, 0, len(result.Checks)+len(result.Skipped)),
		DurationMS:    result.Duration.Milliseconds(),
	}

	for _, pkg := range result.Skipped {
		out.Packages = append(out.Packages, checkPackageJSON{
			Name: pkg.Name, Version: pkg.Version, Ecosystem: pkg.Ecosystem, Status: "policy",
		})
	}
	for _, check := range result.Checks {
		p := checkPackageJSON{
			Name:      check.Package.Name,
			Version:   check.Package.Version,
			Ecosystem: check.Package.Ecosystem,
			Status:    check.Status.String(),
		}
		if check.Err != nil {
			p.Error = check.Err.Error()
		}
		if check.Report != nil {
			p.QueriedVersion = check.Report.QueriedVersion
			for _, vuln := range check.Report.Vulnerabilities {
				p.Vulnerabilities = append(p.Vulnerabilities, vulnerabilityJSON{
					ID:       vuln.ID,
					Severity: vuln.Severity,
					Score:    vuln.Score,
					Summary:  vuln.Summary,
					FixedIn:  vuln.FixedIn,
					Aliases:  vuln.Aliases,
				})
			}
		}
		out.Packages = append(out.Packages, p)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
