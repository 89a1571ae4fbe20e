package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/services"
)

// policyService implements PolicyService
type policyService struct {
	policy    *entities.Policy
	tiers     map[entities.Severity]entities.Decision
	allow     []glob.Glob
	deny      []glob.Glob
	typosquat *typosquatDetector
}

// NewPolicyService compiles a policy into a decision engine
func NewPolicyService(policy *entities.Policy) (services.PolicyService, error) {
	if policy == nil {
		policy = entities.DefaultPolicy()
	}
	if policy.Unchecked == "" {
		policy.Unchecked = entities.DecisionAllow
	}
	if policy.DepthExceeded == "" {
		policy.DepthExceeded = entities.DecisionAsk
	}

	allow, err := compileGlobs(policy.AllowPackages)
	if err != nil {
		return nil, fmt.Errorf("%w: allow_packages: %w", entities.ErrPolicyInvalid, err)
	}
	deny, err := compileGlobs(policy.DenyPackages)
	if err != nil {
		return nil, fmt.Errorf("%w: deny_packages: %w", entities.ErrPolicyInvalid, err)
	}

	tiers := make(map[entities.Severity]entities.Decision)
	for _, sev := range policy.AskSeverities {
		tiers[sev] = entities.DecisionAsk
	}
	for _, sev := range policy.DenySeverities {
		tiers[sev] = entities.DecisionDeny
	}

	return &policyService{
		policy:    policy,
		tiers:     tiers,
		allow:     allow,
		deny:      deny,
		typosquat: newTyposquatDetector(policy.Typosquat),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, pkg entities.ParsedPackage) bool {
	qualified := string(pkg.Ecosystem) + ":" + pkg.Name
	for _, g := range globs {
		if g.Match(qualified) || g.Match(pkg.Name) {
			return true
		}
	}
	return false
}

// IsAllowed reports whether the policy trusts a package without lookup
func (p *policyService) IsAllowed(pkg entities.ParsedPackage) bool {
	return matchesAny(p.allow, pkg) && !p.IsDenied(pkg)
}

// IsDenied reports whether the policy blocks a package outright
func (p *policyService) IsDenied(pkg entities.ParsedPackage) bool {
	return matchesAny(p.deny, pkg)
}

func (p *policyService) tier(sev entities.Severity) entities.Decision {
	if d, ok := p.tiers[sev]; ok {
		return d
	}
	return entities.DecisionAllow
}

// DecideFindings maps findings onto a decision. Counts cover every finding;
// the named package is the first one that reached the deciding tier.
func (p *policyService) DecideFindings(findings []entities.Finding) entities.DecisionResult {
	if len(findings) == 0 {
		return entities.DecisionResult{Decision: entities.DecisionAllow, Reason: "No vulnerabilities found."}
	}

	decision := entities.DecisionAllow
	for _, f := range findings {
		decision = decision.Stricter(p.tier(f.Vulnerability.Severity))
	}
	if decision == entities.DecisionAllow {
		return entities.DecisionResult{
			Decision: entities.DecisionAllow,
			Reason:   "Vulnerabilities found, but none are above LOW severity.",
		}
	}

	counts := make(map[entities.Severity]int)
	var culprit *entities.Finding
	offenders := make(map[string]bool)
	for i, f := range findings {
		sev := f.Vulnerability.Severity
		if p.tier(sev) == entities.DecisionAllow {
			continue
		}
		counts[sev]++
		offenders[f.Package.Key()] = true
		if culprit == nil && p.tier(sev) == decision {
			culprit = &findings[i]
		}
	}

	parts := make([]string, 0, len(counts))
	for _, sev := range entities.Severities() {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
		}
	}

	reason := fmt.Sprintf("🚨 %s has %s vulnerabilities", displayName(culprit.Package), strings.Join(parts, ", "))
	if culprit.Vulnerability.FixedIn != "" {
		reason += ", recommended fix: " + culprit.Vulnerability.FixedIn
	}
	if others := len(offenders) - 1; others > 0 {
		reason += fmt.Sprintf(" (and %d more affected %s)", others, plural(others, "package", "packages"))
	}
	return entities.DecisionResult{Decision: decision, Reason: reason}
}

// Evaluate combines every signal about a command into one decision.
// Only the reasons behind the final decision are reported, except that
// unchecked packages are always named.
func (p *policyService) Evaluate(classification entities.Classification, checks []entities.PackageCheck) entities.DecisionResult {
	var v verdict

	var blocked []string
	for _, pkg := range classification.Packages {
		if p.IsDenied(pkg) {
			blocked = append(blocked, displayName(pkg))
		}
	}
	if len(blocked) > 0 {
		v.add(entities.DecisionDeny, "⛔ Blocked by policy: "+strings.Join(blocked, ", "))
	}

	for _, check := range checks {
		if check.Status == entities.CheckFailed {
			v.add(entities.DecisionDeny, fmt.Sprintf("Could not check %s for vulnerabilities: %v", displayName(check.Package), check.Err))
		}
	}

	if findings := entities.Findings(checks); len(findings) > 0 {
		result := p.DecideFindings(findings)
		v.add(result.Decision, result.Reason)
	}

	for _, pkg := range classification.Packages {
		if p.IsAllowed(pkg) {
			continue
		}
		if popular, ok := p.typosquat.lookalike(pkg); ok {
			v.add(entities.DecisionAsk, fmt.Sprintf("⚠️ %s looks like the popular package %q; check the name for typos.", pkg.Name, popular))
		}
	}

	if classification.DepthExceeded {
		v.add(p.policy.DepthExceeded, fmt.Sprintf("Command nests shells more than %d levels deep and could not be fully inspected.", maxNestingDepth))
	}

	unchecked := uncheckedNote(checks)
	if unchecked != "" {
		v.add(p.policy.Unchecked, unchecked)
	}

	if len(v.entries) == 0 {
		if len(checks) == 0 && classification.Recognized() {
			return entities.DecisionResult{Decision: entities.DecisionAllow, Reason: "All packages are allowed by policy."}
		}
		return entities.DecisionResult{Decision: entities.DecisionAllow, Reason: "No vulnerabilities found."}
	}

	result := v.result()
	if unchecked != "" && !strings.Contains(result.Reason, unchecked) {
		result.Reason += " " + unchecked
	}
	return result
}

// uncheckedNote names the packages no database could check, grouped by ecosystem
func uncheckedNote(checks []entities.PackageCheck) string {
	byEcosystem := make(map[entities.Ecosystem][]string)
	for _, check := range checks {
		if check.Status == entities.CheckUnchecked {
			byEcosystem[check.Package.Ecosystem] = append(byEcosystem[check.Package.Ecosystem], displayName(check.Package))
		}
	}
	if len(byEcosystem) == 0 {
		return ""
	}

	ecosystems := make([]string, 0, len(byEcosystem))
	for ecosystem := range byEcosystem {
		ecosystems = append(ecosystems, string(ecosystem))
	}
	sort.Strings(ecosystems)

	groups := make([]string, 0, len(ecosystems))
	for _, ecosystem := range ecosystems {
		names := byEcosystem[entities.Ecosystem(ecosystem)]
		groups = append(groups, ecosystem+": "+strings.Join(names, ", "))
	}
	return "Not checked for vulnerabilities (no database for ecosystem) - " + strings.Join(groups, "; ") + "."
}

// verdict accumulates decisions with their reasons
type verdict struct {
	entries []verdictEntry
}

type verdictEntry struct {
	decision entities.Decision
	reason   string
}

func (v *verdict) add(decision entities.Decision, reason string) {
	v.entries = append(v.entries, verdictEntry{decision: decision, reason: reason})
}

func (v *verdict) result() entities.DecisionResult {
	final := entities.DecisionAllow
	for _, e := range v.entries {
		final = final.Stricter(e.decision)
	}
	reasons := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		if e.decision == final {
			reasons = append(reasons, e.reason)
		}
	}
	return entities.DecisionResult{Decision: final, Reason: strings.Join(reasons, " ")}
}

// displayName renders name@version, or the bare name when unpinned
func displayName(pkg entities.ParsedPackage) string {
	if pkg.Version == "" {
		return pkg.Name
	}
	return pkg.Name + "@" + pkg.Version
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
