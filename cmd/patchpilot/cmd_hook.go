package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces"
	"github.com/ochairo/patchpilot/internal/external-adapters/env"
)

const (
	defaultHookEventName = "PreToolUse"

	// Hosts give hooks about ten seconds; answer before that
	hookDeadline = 9 * time.Second

	maxHookInputBytes = 1 << 20
)

// hookOutput is the envelope the host reads from stdout
type hookOutput struct {
	HookSpecificOutput hookDecision `json:"hookSpecificOutput"`
}

type hookDecision struct {
	HookEventName            string            `json:"hookEventName"`
	PermissionDecision       entities.Decision `json:"permissionDecision"`
	PermissionDecisionReason string            `json:"permissionDecisionReason"`
}

// hookInput holds the event fields patchpilot reads. Fields with an
// unexpected JSON type are treated as absent.
type hookInput struct {
	HookEventName string
	ToolName      string
	Command       string
	HasCommand    bool
	Cwd           string
	SessionID     string
}

// runHook answers one host event. Every path writes exactly one envelope;
// deny exits 2, allow and ask exit 0.
func runHook(ctx context.Context, stdin io.Reader, stdout io.Writer, build appBuilder) (code int) {
	eventName := defaultHookEventName
	defer func() {
		if r := recover(); r != nil {
			code = writeHook(stdout, eventName, entities.DecisionDeny, "Unhandled error running hook")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(stdin, maxHookInputBytes))
	if err != nil {
		return writeHook(stdout, eventName, entities.DecisionDeny, "Could not read stdin")
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return writeHook(stdout, eventName, entities.DecisionDeny, "No input provided on stdin")
	}

	input, err := parseHookInput(raw)
	if err != nil {
		return writeHook(stdout, eventName, entities.DecisionDeny, "Invalid JSON input")
	}
	if input.HookEventName != "" {
		eventName = input.HookEventName
	}

	settings, err := env.Load()
	if err != nil {
		return writeHook(stdout, eventName, entities.DecisionDeny, "Configuration error: "+err.Error())
	}
	if !settings.IsShellTool(input.ToolName) {
		return writeHook(stdout, eventName, entities.DecisionAllow, fmt.Sprintf("Allowing %s: not a shell command.", toolLabel(input.ToolName)))
	}
	if !input.HasCommand || strings.TrimSpace(input.Command) == "" {
		return writeHook(stdout, eventName, entities.DecisionAllow, "No command to check.")
	}

	ctx, cancel := context.WithTimeout(ctx, hookDeadline)
	defer cancel()

	a, err := build(ctx, settings)
	if err != nil {
		return writeHook(stdout, eventName, entities.DecisionDeny, "Configuration error: "+err.Error())
	}
	defer a.Close()

	a.logger.Debug("checking command",
		interfaces.F("session", input.SessionID),
		interfaces.F("cwd", input.Cwd),
		interfaces.F("command", input.Command),
	)
	result := a.guard.Inspect(ctx, input.Command)
	return writeHook(stdout, eventName, result.Decision.Decision, result.Decision.Reason)
}

// parseHookInput requires a JSON object but tolerates odd field types
func parseHookInput(raw []byte) (*hookInput, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("input is not an object")
	}

	input := &hookInput{}
	input.HookEventName, _ = stringField(fields, "hook_event_name")
	input.ToolName, _ = stringField(fields, "tool_name")
	input.Cwd, _ = stringField(fields, "cwd")
	input.SessionID, _ = stringField(fields, "session_id")

	var toolInput map[string]json.RawMessage
	if rawToolInput, ok := fields["tool_input"]; ok && json.Unmarshal(rawToolInput, &toolInput) == nil {
		input.Command, input.HasCommand = stringField(toolInput, "command")
	}
	return input, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func writeHook(stdout io.Writer, eventName string, decision entities.Decision, reason string) int {
	out := hookOutput{
		HookSpecificOutput: hookDecision{
			HookEventName:            eventName,
			PermissionDecision:       decision,
			PermissionDecisionReason: reason,
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		// Marshaling fixed string fields cannot fail
		data = []byte(`{"hookSpecificOutput":{"hookEventName":"PreToolUse","permissionDecision":"deny","permissionDecisionReason":"Unhandled error running hook"}}`)
		decision = entities.DecisionDeny
	}
	_, _ = fmt.Fprintf(stdout, "%s\n", data)

	if decision == entities.DecisionDeny {
		return 2
	}
	return 0
}

func toolLabel(name string) string {
	if name == "" {
		return "tool"
	}
	return name + " tool"
}
