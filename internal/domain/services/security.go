// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"strings"

	"github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/gateways"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/services"
)

const defaultCheckConcurrency = 8

// securityService implements SecurityService on top of a vulnerability gateway
type securityService struct {
	gateway     gateways.VulnerabilityGateway
	resolver    gateways.VersionResolver
	logger      interfaces.Logger
	concurrency int
}

// SecurityOption customizes the security service
type SecurityOption func(*securityService)

// WithVersionResolver resolves unpinned packages to the registry's current version
func WithVersionResolver(resolver gateways.VersionResolver) SecurityOption {
	return func(s *securityService) {
		s.resolver = resolver
	}
}

// WithLogger sets the logger
func WithLogger(logger interfaces.Logger) SecurityOption {
	return func(s *securityService) {
		s.logger = logger
	}
}

// WithConcurrency bounds the number of lookups in flight
func WithConcurrency(n int) SecurityOption {
	return func(s *securityService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSecurityService creates a new security service with dependency injection
func NewSecurityService(gateway gateways.VulnerabilityGateway, opts ...SecurityOption) services.SecurityService {
	s := &securityService{
		gateway:     gateway,
		logger:      &interfaces.NoOpLogger{},
		concurrency: defaultCheckConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPackages looks every package up concurrently. Duplicate packages are
// looked up once. A failed lookup is recorded on its check, never dropped.
func (s *securityService) CheckPackages(ctx context.Context, pkgs []entities.ParsedPackage) []entities.PackageCheck {
	checks := make([]entities.PackageCheck, len(pkgs))

	first := make(map[string]int, len(pkgs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, pkg := range pkgs {
		if _, seen := first[pkg.Key()]; seen {
			continue
		}
		first[pkg.Key()] = i
		g.Go(func() error {
			checks[i] = s.checkPackage(ctx, pkg)
			return nil
		})
	}
	_ = g.Wait()

	for i, pkg := range pkgs {
		if j := first[pkg.Key()]; j != i {
			checks[i] = checks[j]
			checks[i].Package = pkg
		}
	}
	return checks
}

func (s *securityService) checkPackage(ctx context.Context, pkg entities.ParsedPackage) entities.PackageCheck {
	if !s.gateway.Supports(pkg.Ecosystem) {
		s.logger.Debug("ecosystem has no vulnerability database",
			interfaces.F("package", pkg.Name), interfaces.F("ecosystem", pkg.Ecosystem))
		return entities.PackageCheck{Package: pkg, Status: entities.CheckUnchecked}
	}

	query := pkg
	if !isExactVersion(pkg) {
		// Tags and ranges match no advisory range; look up what they resolve to
		query.Version = ""
		if s.resolver != nil {
			resolved, err := s.resolver.ResolveVersion(ctx, pkg)
			if err != nil {
				s.logger.Warn("could not resolve version, querying all versions",
					interfaces.F("package", pkg.String()), interfaces.F("error", err))
			} else {
				query.Version = resolved
			}
		}
	}

	report, err := s.gateway.CheckPackage(ctx, query)
	if err != nil {
		s.logger.Error("vulnerability lookup failed",
			interfaces.F("package", pkg.String()), interfaces.F("error", err))
		return entities.PackageCheck{
			Package: pkg,
			Status:  entities.CheckFailed,
			Err:     &entities.LookupError{Package: pkg, Err: err},
		}
	}

	report.Package = pkg
	report.QueriedVersion = query.Version
	s.logger.Debug("package checked",
		interfaces.F("package", pkg.String()),
		interfaces.F("queried_version", query.Version),
		interfaces.F("vulnerabilities", len(report.Vulnerabilities)))

	return entities.PackageCheck{Package: pkg, Status: entities.CheckSucceeded, Report: report}
}

// isExactVersion reports whether pkg pins one release rather than a dist-tag
// or range. npm reads partial versions such as 4 or 4.17 as ranges.
func isExactVersion(pkg entities.ParsedPackage) bool {
	if pkg.Version == "" {
		return false
	}
	if _, err := version.NewVersion(pkg.Version); err != nil {
		return false
	}
	if pkg.Ecosystem != entities.EcosystemNPM {
		return true
	}
	core := strings.TrimPrefix(pkg.Version, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	return strings.Count(core, ".") == 2
}

// FilterVulnerabilities filters vulnerabilities by minimum severity
// Pure business logic - no I/O
func (s *securityService) FilterVulnerabilities(vulnerabilities []entities.Vulnerability, minSeverity entities.Severity) []entities.Vulnerability {
	minLevel := minSeverity.Rank()
	filtered := make([]entities.Vulnerability, 0)

	for _, vuln := range vulnerabilities {
		if vuln.Severity.Rank() >= minLevel {
			filtered = append(filtered, vuln)
		}
	}

	return filtered
}
