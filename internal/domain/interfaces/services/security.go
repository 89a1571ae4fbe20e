// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// SecurityService checks packages against the vulnerability database
type SecurityService interface {
	// CheckPackages looks up every package; results keep the input order
	CheckPackages(ctx context.Context, pkgs []entities.ParsedPackage) []entities.PackageCheck

	// FilterVulnerabilities keeps vulnerabilities at or above minSeverity
	FilterVulnerabilities(vulnerabilities []entities.Vulnerability, minSeverity entities.Severity) []entities.Vulnerability
}
