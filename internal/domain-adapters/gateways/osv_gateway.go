package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

const (
	// DefaultOSVURL is the public OSV query endpoint
	DefaultOSVURL = "https://api.osv.dev/v1/query"

	defaultLookupTimeout = 4 * time.Second
	maxOSVPages          = 10
	maxOSVResponseBytes  = 16 << 20
)

// osvEcosystems maps ecosystems to OSV's names. OSV has no Homebrew database.
var osvEcosystems = map[entities.Ecosystem]string{
	entities.EcosystemNPM:  "npm",
	entities.EcosystemPyPI: "PyPI",
}

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// osvGateway implements VulnerabilityGateway against the OSV HTTP API
type osvGateway struct {
	apiURL     string
	httpClient *http.Client
	retries    int
}

// NewOSVGateway creates a new OSV gateway. Empty apiURL and zero timeout use defaults.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewOSVGateway(apiURL string, timeout time.Duration) *osvGateway {
	if apiURL == "" {
		apiURL = DefaultOSVURL
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &osvGateway{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retries: defaultRetries,
	}
}

// Supports reports whether OSV covers the ecosystem
func (g *osvGateway) Supports(ecosystem entities.Ecosystem) bool {
	_, ok := osvEcosystems[ecosystem]
	return ok
}

// CheckPackage queries OSV for one package. Any non-200 answer is an error:
// an unreachable or confused database must not read as "no vulnerabilities".
func (g *osvGateway) CheckPackage(ctx context.Context, pkg entities.ParsedPackage) (*entities.SecurityReport, error) {
	ecosystem, ok := osvEcosystems[pkg.Ecosystem]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrEcosystemUnsupported, pkg.Ecosystem)
	}

	start := time.Now()
	query := OSVQueryRequest{
		Package: OSVPackage{
			Name:      pkg.Name,
			Ecosystem: ecosystem,
		},
		Version: pkg.Version,
	}

	vulnerabilities := make([]entities.Vulnerability, 0)
	for page := 0; page < maxOSVPages; page++ {
		osvResp, err := g.query(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, vuln := range osvResp.Vulns {
			vulnerabilities = append(vulnerabilities, convertVulnerability(vuln, pkg))
		}
		if osvResp.NextPageToken == "" {
			break
		}
		query.PageToken = osvResp.NextPageToken
	}

	return &entities.SecurityReport{
		Package:         pkg,
		QueriedVersion:  pkg.Version,
		Vulnerabilities: vulnerabilities,
		ScanDate:        time.Now().Format(time.RFC3339),
		Metadata: entities.ScanMetadata{
			Scanner:        "OSV API",
			ScannerVersion: "v1",
			Duration:       time.Since(start),
		},
	}, nil
}

func (g *osvGateway) query(ctx context.Context, payload OSVQueryRequest) (*OSVQueryResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := doWithRetry(ctx, g.httpClient, g.retries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("OSV API request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OSV API returned status %d", resp.StatusCode)
	}

	var osvResp OSVQueryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOSVResponseBytes)).Decode(&osvResp); err != nil {
		return nil, fmt.Errorf("failed to parse OSV response: %w", err)
	}
	return &osvResp, nil
}

func convertVulnerability(vuln OSVVulnerability, pkg entities.ParsedPackage) entities.Vulnerability {
	severity, score := extractSeverity(vuln)
	summary := vuln.Summary
	if summary == "" {
		summary = firstLine(vuln.Details)
	}
	return entities.Vulnerability{
		ID:       preferredID(vuln),
		Severity: severity,
		Summary:  summary,
		Score:    score,
		Aliases:  vuln.Aliases,
		FixedIn:  fixedVersion(vuln, pkg),
	}
}

// preferredID returns the first CVE alias, falling back to the OSV id
func preferredID(vuln OSVVulnerability) string {
	for _, alias := range vuln.Aliases {
		if cveIDPattern.MatchString(alias) {
			return alias
		}
	}
	return vuln.ID
}

// extractSeverity takes the highest CVSS score, then the database's own
// label. Malicious-package advisories carry no score but are critical.
func extractSeverity(vuln OSVVulnerability) (entities.Severity, float64) {
	best := 0.0
	for _, s := range vuln.Severity {
		if score, ok := cvssScore(s.Score); ok && score > best {
			best = score
		}
	}
	if best > 0 {
		return entities.SeverityFromScore(best), best
	}

	if sev := databaseSeverity(vuln.DatabaseSpecific); sev != entities.SeverityUnknown {
		return sev, 0
	}
	for _, affected := range vuln.Affected {
		if sev := databaseSeverity(affected.DatabaseSpecific); sev != entities.SeverityUnknown {
			return sev, 0
		}
		if sev := databaseSeverity(affected.EcosystemSpecific); sev != entities.SeverityUnknown {
			return sev, 0
		}
	}

	if strings.HasPrefix(vuln.ID, "MAL-") {
		return entities.SeverityCritical, 0
	}
	return entities.SeverityUnknown, 0
}

// cvssScore reads a numeric score or computes the base score of a CVSS v3 vector
func cvssScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if score, err := strconv.ParseFloat(raw, 64); err == nil {
		return score, true
	}

	switch {
	case strings.HasPrefix(raw, "CVSS:3.1/"):
		vector, err := gocvss31.ParseVector(raw)
		if err != nil {
			return 0, false
		}
		return vector.BaseScore(), true
	case strings.HasPrefix(raw, "CVSS:3.0/"):
		vector, err := gocvss30.ParseVector(raw)
		if err != nil {
			return 0, false
		}
		return vector.BaseScore(), true
	default:
		return 0, false
	}
}

func databaseSeverity(fields map[string]interface{}) entities.Severity {
	label, ok := fields["severity"].(string)
	if !ok {
		return entities.SeverityUnknown
	}
	return entities.ParseSeverity(label)
}

// fixedVersion returns the lowest fix above the queried version, or the
// highest fix when no version was queried
func fixedVersion(vuln OSVVulnerability, pkg entities.ParsedPackage) string {
	var fixes []string
	for _, affected := range vuln.Affected {
		if affected.Package.Name != "" && normalizeName(affected.Package.Name) != normalizeName(pkg.Name) {
			continue
		}
		for _, r := range affected.Ranges {
			for _, event := range r.Events {
				if event.Fixed != "" {
					fixes = append(fixes, event.Fixed)
				}
			}
		}
	}
	return pickFix(fixes, pkg.Version)
}

func pickFix(fixes []string, current string) string {
	if len(fixes) == 0 {
		return ""
	}

	currentVersion, currentErr := version.NewVersion(current)
	var (
		best    *version.Version
		bestRaw string
	)
	for _, raw := range fixes {
		v, err := version.NewVersion(raw)
		if err != nil {
			continue
		}
		if currentErr == nil {
			if !v.GreaterThan(currentVersion) {
				continue
			}
			if best == nil || v.LessThan(best) {
				best, bestRaw = v, raw
			}
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}

	if bestRaw == "" {
		return fixes[0]
	}
	return bestRaw
}

// normalizeName folds the spellings PyPI treats as equal (PEP 503)
func normalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// OSV API request/response types

// OSVQueryRequest represents a query to the OSV API for vulnerability information.
type OSVQueryRequest struct {
	Package   OSVPackage `json:"package"`
	Version   string     `json:"version,omitempty"`
	PageToken string     `json:"page_token,omitempty"`
}

// OSVPackage identifies a software package in a specific ecosystem.
type OSVPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// OSVQueryResponse contains the vulnerability results from the OSV API.
type OSVQueryResponse struct {
	Vulns         []OSVVulnerability `json:"vulns"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

// OSVVulnerability represents a single vulnerability from the OSV database.
type OSVVulnerability struct {
	ID               string                 `json:"id"`
	Summary          string                 `json:"summary"`
	Details          string                 `json:"details"`
	Aliases          []string               `json:"aliases,omitempty"`
	Severity         []OSVSeverity          `json:"severity,omitempty"`
	Affected         []OSVAffected          `json:"affected,omitempty"`
	DatabaseSpecific map[string]interface{} `json:"database_specific,omitempty"`
}

// OSVSeverity contains severity scoring information for a vulnerability.
type OSVSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// OSVAffected lists the affected versions of one package.
type OSVAffected struct {
	Package           OSVPackage             `json:"package"`
	Ranges            []OSVRange             `json:"ranges,omitempty"`
	Versions          []string               `json:"versions,omitempty"`
	DatabaseSpecific  map[string]interface{} `json:"database_specific,omitempty"`
	EcosystemSpecific map[string]interface{} `json:"ecosystem_specific,omitempty"`
}

// OSVRange is a sequence of version events.
type OSVRange struct {
	Type   string     `json:"type"`
	Events []OSVEvent `json:"events"`
}

// OSVEvent marks where a range is introduced, fixed or last affected.
type OSVEvent struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
}
