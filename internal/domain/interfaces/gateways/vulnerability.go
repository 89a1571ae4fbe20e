// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// VulnerabilityGateway looks packages up in a vulnerability database.
// A returned error means the lookup failed, never that the package is clean.
type VulnerabilityGateway interface {
	// CheckPackage queries known vulnerabilities for one package
	CheckPackage(ctx context.Context, pkg entities.ParsedPackage) (*entities.SecurityReport, error)

	// Supports reports whether the database covers an ecosystem
	Supports(ecosystem entities.Ecosystem) bool
}

// VersionResolver finds the version a registry would install for an unpinned
// package, or for one given as a dist-tag or range
type VersionResolver interface {
	ResolveVersion(ctx context.Context, pkg entities.ParsedPackage) (string, error)
}
