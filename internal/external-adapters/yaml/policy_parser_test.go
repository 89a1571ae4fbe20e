package yaml

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

func TestPolicyParser_Parse(t *testing.T) {
	parser := NewPolicyParser()

	data := []byte(`deny_severities: [critical]
ask_severities: [HIGH, moderate]
unchecked: ask
depth_exceeded: deny
allow_packages:
  - "npm:@myorg/*"
deny_packages:
  - event-stream
typosquat:
  max_distance: 2
  popular:
    npm: [left-pad]
`)

	policy, err := parser.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if want := []entities.Severity{entities.SeverityCritical}; !reflect.DeepEqual(policy.DenySeverities, want) {
		t.Errorf("DenySeverities = %v, want %v", policy.DenySeverities, want)
	}
	if want := []entities.Severity{entities.SeverityHigh, entities.SeverityMedium}; !reflect.DeepEqual(policy.AskSeverities, want) {
		t.Errorf("AskSeverities = %v, want %v", policy.AskSeverities, want)
	}
	if policy.Unchecked != entities.DecisionAsk {
		t.Errorf("Unchecked = %s, want ask", policy.Unchecked)
	}
	if policy.DepthExceeded != entities.DecisionDeny {
		t.Errorf("DepthExceeded = %s, want deny", policy.DepthExceeded)
	}
	if len(policy.AllowPackages) != 1 || policy.AllowPackages[0] != "npm:@myorg/*" {
		t.Errorf("AllowPackages = %v", policy.AllowPackages)
	}
	if len(policy.DenyPackages) != 1 || policy.DenyPackages[0] != "event-stream" {
		t.Errorf("DenyPackages = %v", policy.DenyPackages)
	}
	if !policy.Typosquat.Enabled {
		t.Error("Typosquat.Enabled = false, want default true")
	}
	if policy.Typosquat.MaxDistance != 2 {
		t.Errorf("Typosquat.MaxDistance = %d, want 2", policy.Typosquat.MaxDistance)
	}

	npm := policy.Typosquat.Popular[entities.EcosystemNPM]
	if npm[len(npm)-1] != "left-pad" {
		t.Errorf("popular npm list should end with left-pad, got %v", npm)
	}
	if len(npm) <= 1 {
		t.Error("popular npm list should keep the built-in names")
	}
}

func TestPolicyParser_Defaults(t *testing.T) {
	parser := NewPolicyParser()

	for _, data := range []string{"", "# only a comment\n", "typosquat: {}\n"} {
		policy, err := parser.Parse([]byte(data))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", data, err)
		}
		if !reflect.DeepEqual(policy, entities.DefaultPolicy()) {
			t.Errorf("Parse(%q) = %+v, want defaults", data, policy)
		}
	}
}

func TestPolicyParser_EmptyListClearsTier(t *testing.T) {
	policy, err := NewPolicyParser().Parse([]byte("ask_severities: []\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(policy.AskSeverities) != 0 {
		t.Errorf("AskSeverities = %v, want empty", policy.AskSeverities)
	}
	if len(policy.DenySeverities) != 2 {
		t.Errorf("DenySeverities = %v, want defaults", policy.DenySeverities)
	}
}

func TestPolicyParser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown severity", "deny_severities: [SEVERE]\n"},
		{"unknown decision", "unchecked: maybe\n"},
		{"unknown key", "deny_severity: [HIGH]\n"},
		{"unknown ecosystem", "typosquat:\n  popular:\n    cargo: [serde]\n"},
		{"distance too large", "typosquat:\n  max_distance: 9\n"},
		{"empty pattern", "allow_packages: ['']\n"},
		{"malformed yaml", "deny_severities: [HIGH\n"},
		{"wrong type", "deny_severities: HIGH\n"},
	}

	parser := NewPolicyParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.data))
			if !errors.Is(err, entities.ErrPolicyInvalid) {
				t.Errorf("Parse() error = %v, want ErrPolicyInvalid", err)
			}
		})
	}
}

func TestPolicyParser_ParseFile_Missing(t *testing.T) {
	_, err := NewPolicyParser().ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
