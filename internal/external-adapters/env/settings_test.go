package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.OSVURL != "https://api.osv.dev/v1/query" {
		t.Errorf("OSVURL = %s", s.OSVURL)
	}
	if s.Timeout != 4*time.Second {
		t.Errorf("Timeout = %v, want 4s", s.Timeout)
	}
	if s.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", s.Concurrency)
	}
	if !s.ResolveLatest {
		t.Error("ResolveLatest = false, want true")
	}
	if s.Offline {
		t.Error("Offline = true, want false")
	}
	if s.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", s.LogLevel)
	}
	if len(s.ShellTools) != 1 || s.ShellTools[0] != "Bash" {
		t.Errorf("ShellTools = %v, want [Bash]", s.ShellTools)
	}
}

func TestLoad_Overrides(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "key.asc")
	if err := os.WriteFile(keyPath, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PATCHPILOT_POLICY", "/etc/patchpilot/policy.yaml")
	t.Setenv("PATCHPILOT_POLICY_KEY", keyPath)
	t.Setenv("PATCHPILOT_TIMEOUT", "2500ms")
	t.Setenv("PATCHPILOT_CONCURRENCY", "2")
	t.Setenv("PATCHPILOT_RESOLVE_LATEST", "false")
	t.Setenv("PATCHPILOT_OFFLINE", "true")
	t.Setenv("PATCHPILOT_LOG_LEVEL", "DEBUG")
	t.Setenv("PATCHPILOT_SHELL_TOOLS", "Bash,Shell")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.Policy != "/etc/patchpilot/policy.yaml" {
		t.Errorf("Policy = %s", s.Policy)
	}
	if s.PolicyKey != keyPath {
		t.Errorf("PolicyKey = %s, want %s", s.PolicyKey, keyPath)
	}
	if s.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %v, want 2.5s", s.Timeout)
	}
	if s.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", s.Concurrency)
	}
	if s.ResolveLatest {
		t.Error("ResolveLatest = true, want false")
	}
	if !s.Offline {
		t.Error("Offline = false, want true")
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", s.LogLevel)
	}
	if !s.IsShellTool("Shell") || s.IsShellTool("Read") {
		t.Errorf("IsShellTool mismatch for %v", s.ShellTools)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"bad url", "PATCHPILOT_OSV_URL", "not a url", "PATCHPILOT_OSV_URL must be a valid URL"},
		{"missing key file", "PATCHPILOT_POLICY_KEY", "/nonexistent/key.asc", "PATCHPILOT_POLICY_KEY must point to an existing file"},
		{"bad level", "PATCHPILOT_LOG_LEVEL", "verbose", "PATCHPILOT_LOG_LEVEL must be one of"},
		{"zero concurrency", "PATCHPILOT_CONCURRENCY", "0", "PATCHPILOT_CONCURRENCY is out of range"},
		{"timeout too long", "PATCHPILOT_TIMEOUT", "5m", "PATCHPILOT_TIMEOUT is out of range"},
		{"unparseable timeout", "PATCHPILOT_TIMEOUT", "soon", "failed to load settings"},
		{"short digest", "PATCHPILOT_POLICY_SHA256", "abc123", "PATCHPILOT_POLICY_SHA256 must be a 64-character hex SHA256 digest"},
		{"non-hex digest", "PATCHPILOT_POLICY_SHA256", strings.Repeat("z", 64), "PATCHPILOT_POLICY_SHA256 must be a 64-character hex SHA256 digest"},
		{"unparseable bool", "PATCHPILOT_OFFLINE", "perhaps", "failed to load settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
