package entities

import (
	"strings"
	"time"
)

// Severity is a normalized vulnerability severity label
type Severity string

// Severity labels, highest first
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityUnknown:  0,
}

// Severities returns all labels ordered from most to least severe
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityUnknown}
}

// ParseSeverity normalizes a label. MODERATE is the GitHub advisory name for MEDIUM.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// SeverityFromScore maps a CVSS base score onto a label
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Rank orders severities; higher is worse
func (s Severity) Rank() int {
	return severityRank[s]
}

// SecurityReport is the vulnerability lookup result for one package
type SecurityReport struct {
	Package         ParsedPackage
	QueriedVersion  string // version sent to the database, may be resolved from the registry
	Vulnerabilities []Vulnerability
	ScanDate        string
	Metadata        ScanMetadata
}

// Vulnerability represents a single security vulnerability
type Vulnerability struct {
	ID       string
	Severity Severity
	Summary  string
	Score    float64 // CVSS base score (0.0-10.0), zero when unscored
	Aliases  []string
	FixedIn  string // Version where vulnerability is fixed (optional)
}

// ScanMetadata contains information about the scan execution
type ScanMetadata struct {
	Scanner        string
	ScannerVersion string
	Duration       time.Duration
}

// CheckStatus describes what happened when a package was looked up
type CheckStatus int

const (
	// CheckSucceeded means the database answered, with or without findings
	CheckSucceeded CheckStatus = iota
	// CheckFailed means the lookup could not complete
	CheckFailed
	// CheckUnchecked means no vulnerability database covers the ecosystem
	CheckUnchecked
)

// String returns the status name
func (s CheckStatus) String() string {
	switch s {
	case CheckSucceeded:
		return "checked"
	case CheckFailed:
		return "failed"
	case CheckUnchecked:
		return "unchecked"
	default:
		return "unknown"
	}
}

// PackageCheck pairs a package with its lookup outcome
type PackageCheck struct {
	Package ParsedPackage
	Status  CheckStatus
	Report  *SecurityReport
	Err     error
}

// Finding is one vulnerability affecting one package
type Finding struct {
	Package       ParsedPackage
	Vulnerability Vulnerability
}

// Findings flattens the successful checks into findings, preserving order
func Findings(checks []PackageCheck) []Finding {
	findings := make([]Finding, 0)
	for _, check := range checks {
		if check.Status != CheckSucceeded || check.Report == nil {
			continue
		}
		for _, vuln := range check.Report.Vulnerabilities {
			findings = append(findings, Finding{Package: check.Package, Vulnerability: vuln})
		}
	}
	return findings
}
