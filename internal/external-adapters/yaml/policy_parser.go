// Package yaml provides YAML-based policy parsing and repository implementations.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// yamlPolicy represents the raw YAML structure.
// Absent severity lists keep the defaults; an explicit [] clears them.
type yamlPolicy struct {
	DenySeverities []string      `yaml:"deny_severities" validate:"omitempty,dive,severity"`
	AskSeverities  []string      `yaml:"ask_severities" validate:"omitempty,dive,severity"`
	Unchecked      string        `yaml:"unchecked" validate:"omitempty,oneof=allow ask deny"`
	DepthExceeded  string        `yaml:"depth_exceeded" validate:"omitempty,oneof=allow ask deny"`
	AllowPackages  []string      `yaml:"allow_packages" validate:"omitempty,dive,required"`
	DenyPackages   []string      `yaml:"deny_packages" validate:"omitempty,dive,required"`
	Typosquat      yamlTyposquat `yaml:"typosquat"`
}

type yamlTyposquat struct {
	Enabled     *bool               `yaml:"enabled"`
	MaxDistance *int                `yaml:"max_distance" validate:"omitempty,min=1,max=3"`
	Popular     map[string][]string `yaml:"popular" validate:"omitempty,dive,keys,ecosystem,endkeys,dive,required"`
}

// PolicyParser parses YAML policy files
type PolicyParser struct {
	validate *validator.Validate
}

// NewPolicyParser creates a new YAML policy parser
func NewPolicyParser() *PolicyParser {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs
	_ = validate.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		label := fl.Field().String()
		return entities.ParseSeverity(label) != entities.SeverityUnknown ||
			strings.EqualFold(strings.TrimSpace(label), string(entities.SeverityUnknown))
	})
	_ = validate.RegisterValidation("ecosystem", func(fl validator.FieldLevel) bool {
		_, ok := entities.ParseEcosystem(fl.Field().String())
		return ok
	})
	return &PolicyParser{validate: validate}
}

// ParseFile parses a YAML policy file into a Policy entity
func (p *PolicyParser) ParseFile(filePath string) (*entities.Policy, error) {
	//nolint:gosec // G304: filePath is the configured policy path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Policy entity, starting from the defaults.
// Unknown keys are rejected so a typo cannot silently weaken the policy.
func (p *PolicyParser) Parse(data []byte) (*entities.Policy, error) {
	var raw yamlPolicy
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", entities.ErrPolicyInvalid, err)
	}

	if err := p.validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrPolicyInvalid, err)
	}

	return convertPolicy(raw), nil
}

func convertPolicy(raw yamlPolicy) *entities.Policy {
	policy := entities.DefaultPolicy()

	if raw.DenySeverities != nil {
		policy.DenySeverities = convertSeverities(raw.DenySeverities)
	}
	if raw.AskSeverities != nil {
		policy.AskSeverities = convertSeverities(raw.AskSeverities)
	}
	if raw.Unchecked != "" {
		policy.Unchecked = entities.Decision(raw.Unchecked)
	}
	if raw.DepthExceeded != "" {
		policy.DepthExceeded = entities.Decision(raw.DepthExceeded)
	}
	policy.AllowPackages = raw.AllowPackages
	policy.DenyPackages = raw.DenyPackages

	if raw.Typosquat.Enabled != nil {
		policy.Typosquat.Enabled = *raw.Typosquat.Enabled
	}
	if raw.Typosquat.MaxDistance != nil {
		policy.Typosquat.MaxDistance = *raw.Typosquat.MaxDistance
	}
	// Extra popular names extend the built-in lists
	for name, packages := range raw.Typosquat.Popular {
		ecosystem, _ := entities.ParseEcosystem(name)
		policy.Typosquat.Popular[ecosystem] = append(policy.Typosquat.Popular[ecosystem], packages...)
	}

	return policy
}

func convertSeverities(labels []string) []entities.Severity {
	severities := make([]entities.Severity, 0, len(labels))
	for _, label := range labels {
		severities = append(severities, entities.ParseSeverity(label))
	}
	return severities
}
