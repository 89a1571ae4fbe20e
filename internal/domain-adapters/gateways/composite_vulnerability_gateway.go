package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/gateways"
)

// compositeVulnerabilityGateway routes each ecosystem to the first source
// that supports it
type compositeVulnerabilityGateway struct {
	routes map[entities.Ecosystem]gateways.VulnerabilityGateway
}

// NewCompositeVulnerabilityGateway composes sources in priority order.
// With no sources every ecosystem is unsupported and packages go unchecked.
func NewCompositeVulnerabilityGateway(sources ...gateways.VulnerabilityGateway) gateways.VulnerabilityGateway {
	routes := make(map[entities.Ecosystem]gateways.VulnerabilityGateway)
	for _, ecosystem := range entities.Ecosystems() {
		for _, source := range sources {
			if source != nil && source.Supports(ecosystem) {
				routes[ecosystem] = source
				break
			}
		}
	}
	return &compositeVulnerabilityGateway{routes: routes}
}

// Supports reports whether any source covers the ecosystem
func (c *compositeVulnerabilityGateway) Supports(ecosystem entities.Ecosystem) bool {
	_, ok := c.routes[ecosystem]
	return ok
}

// CheckPackage delegates to the source routed for the package's ecosystem
func (c *compositeVulnerabilityGateway) CheckPackage(ctx context.Context, pkg entities.ParsedPackage) (*entities.SecurityReport, error) {
	source, ok := c.routes[pkg.Ecosystem]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrEcosystemUnsupported, pkg.Ecosystem)
	}
	return source.CheckPackage(ctx, pkg)
}
