package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	domainservices "github.com/ochairo/patchpilot/internal/domain/services"
)

type mockClassifier struct {
	classification entities.Classification
}

func (m *mockClassifier) Classify(_ string) entities.Classification {
	return m.classification
}

type mockSecurityService struct {
	vulns   map[string][]entities.Vulnerability
	failing map[string]bool
	checked []entities.ParsedPackage
}

func (m *mockSecurityService) CheckPackages(_ context.Context, pkgs []entities.ParsedPackage) []entities.PackageCheck {
	m.checked = append(m.checked, pkgs...)
	checks := make([]entities.PackageCheck, 0, len(pkgs))
	for _, pkg := range pkgs {
		switch {
		case pkg.Ecosystem == entities.EcosystemHomebrew:
			checks = append(checks, entities.PackageCheck{Package: pkg, Status: entities.CheckUnchecked})
		case m.failing[pkg.Name]:
			checks = append(checks, entities.PackageCheck{
				Package: pkg,
				Status:  entities.CheckFailed,
				Err:     &entities.LookupError{Package: pkg, Err: errors.New("OSV API returned status 503")},
			})
		default:
			checks = append(checks, entities.PackageCheck{
				Package: pkg,
				Status:  entities.CheckSucceeded,
				Report:  &entities.SecurityReport{Package: pkg, QueriedVersion: "1.0.0", Vulnerabilities: m.vulns[pkg.Name]},
			})
		}
	}
	return checks
}

func (m *mockSecurityService) FilterVulnerabilities(v []entities.Vulnerability, _ entities.Severity) []entities.Vulnerability {
	return v
}

func newTestOrchestrator(t *testing.T, classification entities.Classification, security *mockSecurityService, policy *entities.Policy) *GuardOrchestrator {
	t.Helper()
	if policy == nil {
		policy = entities.DefaultPolicy()
	}
	policyService, err := domainservices.NewPolicyService(policy)
	if err != nil {
		t.Fatalf("NewPolicyService failed: %v", err)
	}
	return NewGuardOrchestrator(&mockClassifier{classification: classification}, security, policyService, nil)
}

func npm(name, version string) entities.ParsedPackage {
	return entities.ParsedPackage{Name: name, Version: version, Ecosystem: entities.EcosystemNPM}
}

func TestGuardOrchestrator_NotRecognized(t *testing.T) {
	security := &mockSecurityService{}
	o := newTestOrchestrator(t, entities.NewClassification(nil, false), security, nil)

	result := o.Inspect(context.Background(), "ls -la")

	if result.Decision.Decision != entities.DecisionAllow {
		t.Errorf("Decision = %s, want allow", result.Decision.Decision)
	}
	if result.Decision.Reason != NotRecognizedReason {
		t.Errorf("Reason = %q, want %q", result.Decision.Reason, NotRecognizedReason)
	}
	if len(security.checked) != 0 {
		t.Errorf("checked %v, want no lookups", security.checked)
	}
}

func TestGuardOrchestrator_Inspect(t *testing.T) {
	tests := []struct {
		name        string
		packages    []entities.ParsedPackage
		vulns       map[string][]entities.Vulnerability
		failing     map[string]bool
		policy      *entities.Policy
		want        entities.Decision
		wantReason  string
		wantChecked int
		wantSkipped int
	}{
		{
			name:        "clean package",
			packages:    []entities.ParsedPackage{npm("lodash", "4.17.21")},
			want:        entities.DecisionAllow,
			wantReason:  "No vulnerabilities found.",
			wantChecked: 1,
		},
		{
			name:     "critical vulnerability",
			packages: []entities.ParsedPackage{npm("lodash", "4.17.20")},
			vulns: map[string][]entities.Vulnerability{
				"lodash": {{ID: "CVE-2021-23337", Severity: entities.SeverityCritical, FixedIn: "4.17.21"}},
			},
			want:        entities.DecisionDeny,
			wantReason:  "lodash@4.17.20 has 1 CRITICAL",
			wantChecked: 1,
		},
		{
			name:        "lookup failure fails closed",
			packages:    []entities.ParsedPackage{npm("lodash", "")},
			failing:     map[string]bool{"lodash": true},
			want:        entities.DecisionDeny,
			wantReason:  "Could not check lodash",
			wantChecked: 1,
		},
		{
			name:     "allow-listed package is not looked up",
			packages: []entities.ParsedPackage{npm("@myorg/tool", "")},
			policy: func() *entities.Policy {
				p := entities.DefaultPolicy()
				p.AllowPackages = []string{"npm:@myorg/*"}
				return p
			}(),
			want:        entities.DecisionAllow,
			wantReason:  "All packages are allowed by policy.",
			wantSkipped: 1,
		},
		{
			name:     "deny-listed package is not looked up",
			packages: []entities.ParsedPackage{npm("event-stream", ""), npm("lodash", "")},
			policy: func() *entities.Policy {
				p := entities.DefaultPolicy()
				p.DenyPackages = []string{"event-stream"}
				return p
			}(),
			want:        entities.DecisionDeny,
			wantReason:  "Blocked by policy: event-stream",
			wantChecked: 1,
			wantSkipped: 1,
		},
		{
			name:        "homebrew is named as unchecked",
			packages:    []entities.ParsedPackage{{Name: "wget", Ecosystem: entities.EcosystemHomebrew}},
			want:        entities.DecisionAllow,
			wantReason:  "homebrew: wget",
			wantChecked: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			security := &mockSecurityService{vulns: tt.vulns, failing: tt.failing}
			o := newTestOrchestrator(t, entities.NewClassification(tt.packages, false), security, tt.policy)

			result := o.Inspect(context.Background(), "irrelevant")

			if result.Decision.Decision != tt.want {
				t.Errorf("Decision = %s, want %s (reason %q)", result.Decision.Decision, tt.want, result.Decision.Reason)
			}
			if !strings.Contains(result.Decision.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", result.Decision.Reason, tt.wantReason)
			}
			if len(security.checked) != tt.wantChecked {
				t.Errorf("checked %d packages, want %d", len(security.checked), tt.wantChecked)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("skipped %d packages, want %d", len(result.Skipped), tt.wantSkipped)
			}
		})
	}
}

func TestGuardOrchestrator_DepthExceeded(t *testing.T) {
	o := newTestOrchestrator(t, entities.NewClassification([]entities.ParsedPackage{npm("lodash", "4.17.21")}, true), &mockSecurityService{}, nil)

	result := o.Inspect(context.Background(), "bash -c ...")
	if result.Decision.Decision != entities.DecisionAsk {
		t.Errorf("Decision = %s, want ask", result.Decision.Decision)
	}
}

func TestGuardOrchestrator_DepthExceededWithoutPackages(t *testing.T) {
	tests := []struct {
		name   string
		policy *entities.Policy
		want   entities.Decision
	}{
		{"default policy asks", nil, entities.DecisionAsk},
		{"deny policy", &entities.Policy{DepthExceeded: entities.DecisionDeny, Unchecked: entities.DecisionAllow}, entities.DecisionDeny},
		{"allow policy", &entities.Policy{DepthExceeded: entities.DecisionAllow, Unchecked: entities.DecisionAllow}, entities.DecisionAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			security := &mockSecurityService{}
			o := newTestOrchestrator(t, entities.NewClassification(nil, true), security, tt.policy)

			result := o.Inspect(context.Background(), "bash -c 'sh -c ...'")

			if result.Decision.Decision != tt.want {
				t.Errorf("Decision = %s, want %s", result.Decision.Decision, tt.want)
			}
			if result.Decision.Reason == NotRecognizedReason {
				t.Errorf("Reason = %q, want the depth reason", result.Decision.Reason)
			}
			if len(security.checked) != 0 {
				t.Errorf("checked %v, want no lookups", security.checked)
			}
		})
	}
}
