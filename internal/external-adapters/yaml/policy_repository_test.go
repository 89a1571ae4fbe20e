package yaml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/repositories"
)

// mockVerifier accepts signatures whose content is "good"
type mockVerifier struct {
	calls int
}

func (m *mockVerifier) VerifyFile(_, sigPath string) (string, error) {
	m.calls++
	data, err := os.ReadFile(sigPath)
	if err != nil {
		return "", err
	}
	if string(data) != "good" {
		return "", entities.ErrSignatureInvalid
	}
	return "Security Team <security@example.com>", nil
}

func writePolicy(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write policy: %v", err)
	}
	return path
}

func TestPolicyRepository_ImplementsInterface(t *testing.T) {
	var _ repositories.PolicyRepository = NewPolicyRepository("", nil, nil)
}

func TestPolicyRepository_LoadPolicy(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "unchecked: deny\n")

	repo := NewPolicyRepository(path, nil, nil)
	policy, err := repo.LoadPolicy(context.Background())
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if policy.Unchecked != entities.DecisionDeny {
		t.Errorf("Unchecked = %s, want deny", policy.Unchecked)
	}
}

func TestPolicyRepository_MissingFileUsesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		repo := NewPolicyRepository(path, nil, nil)
		policy, err := repo.LoadPolicy(context.Background())
		if err != nil {
			t.Fatalf("LoadPolicy(%q) failed: %v", path, err)
		}
		if !reflect.DeepEqual(policy, entities.DefaultPolicy()) {
			t.Errorf("LoadPolicy(%q) = %+v, want defaults", path, policy)
		}
	}
}

func TestPolicyRepository_InvalidPolicy(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "unchecked: sometimes\n")

	_, err := NewPolicyRepository(path, nil, nil).LoadPolicy(context.Background())
	if !errors.Is(err, entities.ErrPolicyInvalid) {
		t.Errorf("err = %v, want ErrPolicyInvalid", err)
	}
}

func TestPolicyRepository_Signed(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		suffix    string
		wantErr   error
	}{
		{"valid asc", "good", ".asc", nil},
		{"valid sig", "good", ".sig", nil},
		{"bad signature", "forged", ".asc", entities.ErrSignatureInvalid},
		{"no signature", "", "", entities.ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePolicy(t, t.TempDir(), "deny_packages: [event-stream]\n")
			if tt.suffix != "" {
				if err := os.WriteFile(path+tt.suffix, []byte(tt.signature), 0600); err != nil {
					t.Fatal(err)
				}
			}

			verifier := &mockVerifier{}
			policy, err := NewPolicyRepository(path, verifier, nil).LoadPolicy(context.Background())

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				if policy != nil {
					t.Error("Expected nil policy on signature failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadPolicy failed: %v", err)
			}
			if verifier.calls != 1 {
				t.Errorf("verifier calls = %d, want 1", verifier.calls)
			}
			if len(policy.DenyPackages) != 1 {
				t.Errorf("DenyPackages = %v", policy.DenyPackages)
			}
		})
	}
}

// A configured key must not fall back to defaults when the policy is removed
func TestPolicyRepository_SignedButMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")

	_, err := NewPolicyRepository(path, &mockVerifier{}, nil).LoadPolicy(context.Background())
	if !errors.Is(err, entities.ErrPolicyInvalid) {
		t.Errorf("err = %v, want ErrPolicyInvalid", err)
	}
}

func TestPolicyRepository_VerifyWithoutKey(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "")

	_, err := NewPolicyRepository(path, nil, nil).Verify()
	if !errors.Is(err, entities.ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

// mockChecksum accepts a single digest
type mockChecksum struct {
	want string
}

func (m *mockChecksum) VerifyChecksum(_, expectedSum string) error {
	if expectedSum != m.want {
		return entities.ErrPolicyInvalid
	}
	return nil
}

func TestPolicyRepository_PinDigest(t *testing.T) {
	dir := t.TempDir()
	path := writePolicy(t, dir, "unchecked: ask\n")

	tests := []struct {
		name    string
		path    string
		digest  string
		wantErr bool
	}{
		{name: "matching digest", path: path, digest: "abc"},
		{name: "mismatched digest", path: path, digest: "def", wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "absent.yaml"), digest: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewPolicyRepository(tt.path, nil, nil)
			repo.PinDigest(tt.digest, &mockChecksum{want: "abc"})

			policy, err := repo.LoadPolicy(context.Background())
			if tt.wantErr {
				if !errors.Is(err, entities.ErrPolicyInvalid) {
					t.Errorf("err = %v, want ErrPolicyInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadPolicy failed: %v", err)
			}
			if policy.Unchecked != entities.DecisionAsk {
				t.Errorf("Unchecked = %s, want ask", policy.Unchecked)
			}
		})
	}
}
