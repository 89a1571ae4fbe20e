// Package entities defines core domain models and data structures.
package entities

import "strings"

// Ecosystem identifies the package registry a package belongs to
type Ecosystem string

// Supported ecosystems
const (
	EcosystemNPM      Ecosystem = "npm"
	EcosystemPyPI     Ecosystem = "pypi"
	EcosystemHomebrew Ecosystem = "homebrew"
)

// Ecosystems returns every supported ecosystem in display order
func Ecosystems() []Ecosystem {
	return []Ecosystem{EcosystemNPM, EcosystemPyPI, EcosystemHomebrew}
}

// ParseEcosystem converts a user-supplied name into an Ecosystem
func ParseEcosystem(name string) (Ecosystem, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "npm", "node", "javascript":
		return EcosystemNPM, true
	case "pypi", "pip", "python":
		return EcosystemPyPI, true
	case "homebrew", "brew":
		return EcosystemHomebrew, true
	default:
		return "", false
	}
}

// ParsedPackage is a package reference extracted from a command line
type ParsedPackage struct {
	Name      string    `json:"name"`
	Version   string    `json:"version,omitempty"` // empty when the command did not pin a version
	Ecosystem Ecosystem `json:"ecosystem"`
}

// HasVersion reports whether the command pinned an explicit version
func (p ParsedPackage) HasVersion() bool {
	return p.Version != ""
}

// String renders the package the way its ecosystem writes a pinned reference
func (p ParsedPackage) String() string {
	if p.Version == "" {
		return p.Name
	}
	if p.Ecosystem == EcosystemPyPI {
		return p.Name + "==" + p.Version
	}
	return p.Name + "@" + p.Version
}

// Key identifies a package independently of how it was spelled
func (p ParsedPackage) Key() string {
	return string(p.Ecosystem) + ":" + strings.ToLower(p.Name) + "@" + p.Version
}

// CommandSegment is one simple command as an argument vector
type CommandSegment []string
