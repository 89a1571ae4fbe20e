package yaml

import (
	"testing"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// FuzzPolicyParser tests the YAML parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzPolicyParser -fuzztime=30s
func FuzzPolicyParser(f *testing.F) {
	f.Add([]byte(`deny_severities: [CRITICAL, HIGH]
ask_severities: [MEDIUM, UNKNOWN]
unchecked: allow
depth_exceeded: ask
`))
	f.Add([]byte(`allow_packages: ["npm:@myorg/*", "requests"]
deny_packages: ["*-stealer"]
typosquat:
  enabled: false
`))
	f.Add([]byte(`typosquat: {popular: {pypi: [numpy]}, max_distance: 1}`))
	f.Add([]byte(`: : :`))
	f.Add([]byte{})

	parser := NewPolicyParser()
	f.Fuzz(func(t *testing.T, data []byte) {
		policy, err := parser.Parse(data)
		if err != nil {
			return
		}

		if policy == nil {
			t.Fatal("Parse returned nil policy without error")
		}
		for _, d := range []entities.Decision{policy.Unchecked, policy.DepthExceeded} {
			if _, err := entities.ParseDecision(string(d)); err != nil {
				t.Errorf("accepted policy has invalid decision %q", d)
			}
		}
		if policy.Typosquat.MaxDistance < 1 || policy.Typosquat.MaxDistance > 3 {
			t.Errorf("accepted policy has max_distance %d", policy.Typosquat.MaxDistance)
		}
	})
}
