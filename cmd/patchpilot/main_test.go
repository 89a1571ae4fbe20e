package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

// osvStub answers OSV queries with the advisories listed per package name
func osvStub(t *testing.T, vulns map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Package struct {
				Name string `json:"name"`
			} `json:"package"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad OSV request: %v", err)
		}
		body, ok := vulns[req.Package.Name]
		if !ok {
			body = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// setTestEnv isolates settings from the caller's environment
func setTestEnv(t *testing.T, osvURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATCHPILOT_OSV_URL", osvURL)
	t.Setenv("PATCHPILOT_RESOLVE_LATEST", "false")
	t.Setenv("PATCHPILOT_OFFLINE", "false")
	t.Setenv("PATCHPILOT_POLICY", filepath.Join(dir, "policy.yaml"))
	t.Setenv("PATCHPILOT_POLICY_KEY", "")
	t.Setenv("PATCHPILOT_POLICY_SHA256", "")
	t.Setenv("PATCHPILOT_LOG_FILE", filepath.Join(dir, "patchpilot.log"))
	t.Setenv("PATCHPILOT_LOG_LEVEL", "debug")
	t.Setenv("PATCHPILOT_SHELL_TOOLS", "Bash")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"help"}, strings.NewReader(""), &stdout, &stderr)

	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "patchpilot - ") {
		t.Errorf("help output = %q", stdout.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"frobnicate"}, strings.NewReader(""), &stdout, &stderr)

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command: frobnicate") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// With no arguments the hook reads stdin
func TestRun_DefaultsToHook(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)

	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stdout.String(), "No input provided on stdin") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runVersion([]string{"--check"}, &stdout, &stderr)

	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), "patchpilot dev") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "skipping update check") {
		t.Errorf("stderr = %q, want dev builds to skip the network check", stderr.String())
	}
}
