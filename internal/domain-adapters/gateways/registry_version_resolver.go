package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

const (
	// DefaultNPMRegistryURL is the public npm registry
	DefaultNPMRegistryURL = "https://registry.npmjs.org"
	// DefaultPyPIURL is the PyPI JSON API root
	DefaultPyPIURL = "https://pypi.org/pypi"

	maxRegistryResponseBytes = 8 << 20
)

// registryResolver asks package registries which version an unpinned
// install would fetch
type registryResolver struct {
	npmURL     string
	pypiURL    string
	httpClient *http.Client
	retries    int
}

// NewRegistryResolver creates a resolver. Empty URLs and zero timeout use defaults.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewRegistryResolver(npmURL, pypiURL string, timeout time.Duration) *registryResolver {
	if npmURL == "" {
		npmURL = DefaultNPMRegistryURL
	}
	if pypiURL == "" {
		pypiURL = DefaultPyPIURL
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &registryResolver{
		npmURL:  strings.TrimSuffix(npmURL, "/"),
		pypiURL: strings.TrimSuffix(pypiURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retries: defaultRetries,
	}
}

// ResolveVersion returns the version the registry serves for pkg: latest
// when unpinned, otherwise what its dist-tag or range points at (npm only)
func (r *registryResolver) ResolveVersion(ctx context.Context, pkg entities.ParsedPackage) (string, error) {
	var (
		raw string
		err error
	)
	switch pkg.Ecosystem {
	case entities.EcosystemNPM:
		// Scoped names keep the @ but escape the slash
		name := strings.Replace(pkg.Name, "/", "%2F", 1)
		tag := pkg.Version
		if tag == "" {
			tag = "latest"
		}
		var doc struct {
			Version string `json:"version"`
		}
		err = r.getJSON(ctx, r.npmURL+"/"+name+"/"+url.PathEscape(tag), &doc)
		raw = doc.Version
	case entities.EcosystemPyPI:
		if pkg.Version != "" {
			return "", fmt.Errorf("cannot resolve version specifier %q of %s on PyPI", pkg.Version, pkg.Name)
		}
		var doc struct {
			Info struct {
				Version string `json:"version"`
			} `json:"info"`
		}
		err = r.getJSON(ctx, r.pypiURL+"/"+url.PathEscape(pkg.Name)+"/json", &doc)
		raw = doc.Info.Version
	default:
		return "", fmt.Errorf("%w: %s", entities.ErrEcosystemUnsupported, pkg.Ecosystem)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", pkg.Name, err)
	}

	if _, err := version.NewVersion(raw); err != nil {
		return "", fmt.Errorf("registry returned invalid version %q for %s", raw, pkg.Name)
	}
	return raw, nil
}

func (r *registryResolver) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	resp, err := doWithRetry(ctx, r.httpClient, r.retries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRegistryResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to parse registry response: %w", err)
	}
	return nil
}
