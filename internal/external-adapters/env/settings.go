// Package env loads runtime settings from PATCHPILOT_* environment variables.
package env

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name
const Prefix = "PATCHPILOT"

// validate is the shared validator instance
var validate = validator.New()

// Settings holds the runtime configuration.
// Env names are PATCHPILOT_ followed by the envconfig tag.
type Settings struct {
	// Policy is the YAML policy path; empty or missing means built-in defaults
	Policy string `envconfig:"POLICY"`
	// PolicyKey is an OpenPGP public key; when set the policy must be signed
	PolicyKey string `envconfig:"POLICY_KEY" validate:"omitempty,file"`
	// PolicySHA256 pins the policy file to a hex digest
	PolicySHA256 string `envconfig:"POLICY_SHA256" validate:"omitempty,len=64,hexadecimal"`

	OSVURL         string `envconfig:"OSV_URL" default:"https://api.osv.dev/v1/query" validate:"required,url"`
	NPMRegistryURL string `envconfig:"NPM_REGISTRY_URL" default:"https://registry.npmjs.org" validate:"required,url"`
	PyPIURL        string `envconfig:"PYPI_URL" default:"https://pypi.org/pypi" validate:"required,url"`

	// Timeout bounds each lookup request
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"4s" validate:"min=100ms,max=60s"`
	Concurrency int           `envconfig:"CONCURRENCY" default:"8" validate:"min=1,max=64"`
	// ResolveLatest looks up the registry version of unpinned packages
	ResolveLatest bool `envconfig:"RESOLVE_LATEST" default:"true"`
	// Offline skips vulnerability lookups; every package is reported unchecked
	Offline bool `envconfig:"OFFLINE" default:"false"`

	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn" validate:"oneof=debug info warn error"`

	// ShellTools names the host tools whose input carries a shell command
	ShellTools []string `envconfig:"SHELL_TOOLS" default:"Bash" validate:"min=1,dive,required"`
}

// Load reads and validates settings from the environment
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return nil, fmt.Errorf("failed to load settings from environment: %w", err)
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints and reports each problem by variable name
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid settings: %w", err)
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, describe(fieldErr))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
}

// IsShellTool reports whether a host tool name carries shell commands
func (s *Settings) IsShellTool(name string) bool {
	for _, tool := range s.ShellTools {
		if strings.TrimSpace(tool) == name {
			return true
		}
	}
	return false
}

func describe(fieldErr validator.FieldError) string {
	field, _, _ := strings.Cut(fieldErr.StructField(), "[")
	name := Prefix + "_" + variableNames[field]
	switch fieldErr.Tag() {
	case "url":
		return name + " must be a valid URL"
	case "file":
		return name + " must point to an existing file"
	case "oneof":
		return name + " must be one of: " + fieldErr.Param()
	case "len", "hexadecimal":
		return name + " must be a 64-character hex SHA256 digest"
	case "min", "max":
		return fmt.Sprintf("%s is out of range (%s %s)", name, fieldErr.Tag(), fieldErr.Param())
	default:
		return name + " is invalid"
	}
}

var variableNames = map[string]string{
	"Policy":         "POLICY",
	"PolicyKey":      "POLICY_KEY",
	"PolicySHA256":   "POLICY_SHA256",
	"OSVURL":         "OSV_URL",
	"NPMRegistryURL": "NPM_REGISTRY_URL",
	"PyPIURL":        "PYPI_URL",
	"Timeout":        "TIMEOUT",
	"Concurrency":    "CONCURRENCY",
	"LogFile":        "LOG_FILE",
	"LogLevel":       "LOG_LEVEL",
	"ShellTools":     "SHELL_TOOLS",
}
